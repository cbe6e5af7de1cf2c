package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type notificationMessage struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	SentAt      time.Time `json:"sent_at"`
}

// PubSubNotifier publishes notifications to a Redis channel consumed by the
// external dispatcher. Delivery is best effort; the caller decides whether a
// publish failure matters.
type PubSubNotifier struct {
	client  *redis.Client
	channel string
}

func NewPubSubNotifier(client *redis.Client, channel string) *PubSubNotifier {
	return &PubSubNotifier{client: client, channel: channel}
}

func (n *PubSubNotifier) Notify(ctx context.Context, recipientID uuid.UUID, title, message string) error {
	msg := notificationMessage{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		SentAt:      time.Now().UTC(),
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}
