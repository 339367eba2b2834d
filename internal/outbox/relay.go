package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/shopadmin/internal/logging"
	"github.com/dshills/shopadmin/internal/metrics"
	"github.com/dshills/shopadmin/internal/storage"
)

// Relay moves pending outbox rows to a Publisher
type Relay struct {
	store     storage.Storage
	publisher Publisher
	interval  time.Duration
	batchSize int
	retry     RetryConfig
	logger    *logging.Logger
	metrics   *metrics.OutboxMetrics
	now       func() time.Time
}

// Config configures a Relay
type Config struct {
	Interval  time.Duration
	BatchSize int
	Retry     RetryConfig
	Logger    *logging.Logger
	Metrics   *metrics.OutboxMetrics
}

// NewRelay creates a relay. Zero config values fall back to defaults.
func NewRelay(store storage.Storage, publisher Publisher, cfg Config) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		retry:     cfg.Retry,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
	if r.interval <= 0 {
		r.interval = 2 * time.Second
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.retry.MaxRetries == 0 {
		r.retry = DefaultRetryConfig()
	}
	if r.logger == nil {
		r.logger = logging.Nop()
	}
	return r
}

// Run drains the outbox every interval until ctx is cancelled
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.DrainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("outbox.drain", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DrainOnce publishes one batch of pending events and returns how many were sent.
// Events are handled oldest first. After a failure the remaining events of the
// same order are held back so consumers never see them out of order.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	events, err := r.store.ListPendingOutbox(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending events: %w", err)
	}

	sent := 0
	blocked := make(map[string]bool)
	for _, ev := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if blocked[ev.AggregateID] {
			continue
		}
		start := time.Now()
		msg := Message{
			Topic:     ev.Topic,
			Key:       ev.AggregateID,
			EventID:   ev.EventID,
			EventType: ev.EventType,
			Value:     ev.Payload,
			Time:      ev.OccurredAt,
		}

		_, pubErr := retryWithBackoff(ctx, r.retry, func() (struct{}, error) {
			return struct{}{}, r.publisher.Publish(ctx, msg)
		})
		if pubErr != nil {
			blocked[ev.AggregateID] = true
			if r.metrics != nil {
				r.metrics.Failed.WithLabelValues(ev.EventType).Inc()
			}
			r.logger.Log(logging.Fields{
				Op: "outbox.publish", OrderID: ev.AggregateID, EventID: ev.EventID,
				Status: "error", Error: pubErr.Error(), DurationMS: logging.Since(start),
			})
			if err := r.store.MarkOutboxFailed(ctx, ev.EventID, pubErr.Error()); err != nil {
				return sent, err
			}
			continue
		}

		if err := r.store.MarkOutboxSent(ctx, ev.EventID, r.now()); err != nil {
			return sent, err
		}
		if r.metrics != nil {
			r.metrics.Published.WithLabelValues(ev.EventType).Inc()
		}
		r.logger.Log(logging.Fields{
			Op: "outbox.publish", OrderID: ev.AggregateID, EventID: ev.EventID,
			Status: "sent", DurationMS: logging.Since(start),
		})
		sent++
	}
	return sent, nil
}
