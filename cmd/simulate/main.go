// simulate drives concurrent booking traffic against a running api-server and
// then checks the no-double-booking invariant directly in Postgres. Many
// workers race for a deliberately small set of slots, so most attempts should
// end in conflicts and never in duplicate live appointments.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/scheduling/internal/db"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	SlotLimit   int
	PatientLimit int
	PostgresDSN string
}

type slotTarget struct {
	DoctorID uuid.UUID
	ClinicID uuid.UUID
	Date     string
	Start    string
}

type DataPool struct {
	Patients []uuid.UUID
	Slots    []slotTarget
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := loadSimConfig()
	log.Printf("simulate starting: url=%s workers=%d duration=%s slots=%d",
		cfg.APIBaseURL, cfg.Workers, cfg.Duration, cfg.SlotLimit)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	data, err := loadDataPool(context.Background(), pool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	if len(data.Patients) == 0 || len(data.Slots) == 0 {
		log.Fatal("no patients or slots to simulate with, run seed first")
	}
	log.Printf("loaded %d patients and %d slot targets", len(data.Patients), len(data.Slots))

	metrics := &OperationMetrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	deadline := time.Now().Add(cfg.Duration)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for time.Now().Before(deadline) {
				patient := data.Patients[rng.Intn(len(data.Patients))]
				slot := data.Slots[rng.Intn(len(data.Slots))]
				bookOnce(client, cfg.APIBaseURL, patient, slot, metrics)
			}
		}(time.Now().UnixNano() + int64(w))
	}

	wg.Wait()

	report(metrics)

	if err := checkInvariant(context.Background(), pool); err != nil {
		log.Fatalf("invariant check: %v", err)
	}
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:     getDurationEnv("SIM_DURATION", 30*time.Second),
		Workers:      getIntEnv("SIM_WORKERS", 50),
		SlotLimit:    getIntEnv("SIM_SLOT_LIMIT", 20),
		PatientLimit: getIntEnv("SIM_PATIENT_LIMIT", 500),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	return cfg
}

// loadDataPool picks patients plus a small set of bookable slot targets
// derived from templates, all on the same upcoming date per template weekday.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	data := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients WHERE active LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		data.Patients = append(data.Patients, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = pool.Query(ctx, `
		SELECT doctor_id, clinic_id, day_of_week, start_minute
		FROM availability_templates
		WHERE active AND clinic_id IS NOT NULL
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var doctorID, clinicID uuid.UUID
		var day, start int16
		if err := rows.Scan(&doctorID, &clinicID, &day, &start); err != nil {
			return nil, err
		}
		data.Slots = append(data.Slots, slotTarget{
			DoctorID: doctorID,
			ClinicID: clinicID,
			Date:     nextWeekday(time.Weekday(day)).Format("2006-01-02"),
			Start:    fmt.Sprintf("%02d:%02d", start/60, start%60),
		})
	}

	return data, rows.Err()
}

// nextWeekday returns the next occurrence of day, at least one day out.
func nextWeekday(day time.Weekday) time.Time {
	t := time.Now().UTC().AddDate(0, 0, 1)
	for t.Weekday() != day {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func bookOnce(client *http.Client, baseURL string, patient uuid.UUID, slot slotTarget, metrics *OperationMetrics) {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":  slot.DoctorID.String(),
		"clinic_id":  slot.ClinicID.String(),
		"date":       slot.Date,
		"start_time": slot.Start,
		"reason":     "simulated booking",
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		metrics.Record(0, false, false)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", patient.String())
	req.Header.Set("X-User-Role", "patient")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		metrics.Record(latency, false, false)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		metrics.Record(latency, true, false)
	case http.StatusConflict:
		metrics.Record(latency, false, true)
	default:
		metrics.Record(latency, false, false)
	}
}

func report(metrics *OperationMetrics) {
	avg, min, max, p50, p95 := metrics.Stats()
	log.Printf("bookings: total=%d success=%d conflict=%d error=%d",
		atomic.LoadInt64(&metrics.Total),
		atomic.LoadInt64(&metrics.Success),
		atomic.LoadInt64(&metrics.Conflict),
		atomic.LoadInt64(&metrics.Error))
	log.Printf("latency: avg=%s min=%s max=%s p50=%s p95=%s", avg, min, max, p50, p95)
}

// checkInvariant fails if any doctor/clinic/date/start combination holds more
// than one live appointment.
func checkInvariant(ctx context.Context, pool *pgxpool.Pool) error {
	var duplicates int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT doctor_id, clinic_id, on_date, start_minute
			FROM appointments
			WHERE status NOT IN ('cancelled', 'rejected')
			GROUP BY doctor_id, clinic_id, on_date, start_minute
			HAVING count(*) > 1
		) d
	`).Scan(&duplicates)
	if err != nil {
		return err
	}

	if duplicates > 0 {
		return fmt.Errorf("found %d double-booked slots", duplicates)
	}

	log.Println("invariant holds: no double-booked slots")
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
