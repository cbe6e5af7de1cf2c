package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/clinicdesk/scheduling/internal/redis"
)

// AvailabilityCache keeps a doctor's templates and exceptions in Redis so the
// resolver does not hit Postgres for the read-mostly half of its inputs.
// Everything here is best effort: a cache failure degrades to a repo read.
type AvailabilityCache struct {
	cache *redisclient.JSONCache
	log   zerolog.Logger
}

func NewAvailabilityCache(cache *redisclient.JSONCache, log zerolog.Logger) *AvailabilityCache {
	return &AvailabilityCache{
		cache: cache,
		log:   log.With().Str("component", "availability_cache").Logger(),
	}
}

type cachedAvailability struct {
	Templates  []AvailabilityTemplate `json:"templates"`
	Exceptions []ScheduleException    `json:"exceptions"`
}

func availabilityKey(doctorID uuid.UUID) string {
	return fmt.Sprintf("avail:doctor:%s", doctorID)
}

func (c *AvailabilityCache) Get(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityTemplate, []ScheduleException, bool) {
	var entry cachedAvailability
	hit, err := c.cache.Get(ctx, availabilityKey(doctorID), &entry)
	if err != nil {
		c.log.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("availability cache read failed")
		return nil, nil, false
	}
	if !hit {
		return nil, nil, false
	}
	return entry.Templates, entry.Exceptions, true
}

func (c *AvailabilityCache) Set(ctx context.Context, doctorID uuid.UUID, templates []AvailabilityTemplate, exceptions []ScheduleException) {
	entry := cachedAvailability{Templates: templates, Exceptions: exceptions}
	if err := c.cache.Set(ctx, availabilityKey(doctorID), entry); err != nil {
		c.log.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("availability cache write failed")
	}
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, doctorID uuid.UUID) {
	if err := c.cache.Delete(ctx, availabilityKey(doctorID)); err != nil {
		c.log.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("availability cache invalidation failed")
	}
}
