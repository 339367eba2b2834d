package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outbox operations

func (s *SQLStorage) InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error {
	return s.insertOutboxEventWithQuerier(ctx, s.querier(), event)
}

func (s *SQLStorage) insertOutboxEventWithQuerier(ctx context.Context, q querier, event *OutboxEvent) error {
	query := `
		INSERT INTO outbox (event_id, topic, event_type, aggregate_id, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, s.rebind(query),
		event.EventID, event.Topic, event.EventType, event.AggregateID,
		string(event.Payload), toNanos(event.OccurredAt))
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", classifyError(err))
	}
	return nil
}

func (s *SQLStorage) ListPendingOutbox(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	return s.listPendingOutboxWithQuerier(ctx, s.querier(), limit)
}

// listPendingOutboxWithQuerier returns unsent events, oldest first
func (s *SQLStorage) listPendingOutboxWithQuerier(ctx context.Context, q querier, limit int) ([]*OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT event_id, topic, event_type, aggregate_id, payload, occurred_at, sent_at, attempts, last_error
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY occurred_at, event_id
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", classifyError(err))
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e          OutboxEvent
			payload    string
			occurredAt int64
			sentAt     sql.NullInt64
		)
		if err := rows.Scan(&e.EventID, &e.Topic, &e.EventType, &e.AggregateID, &payload,
			&occurredAt, &sentAt, &e.Attempts, &e.LastError); err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		e.OccurredAt = fromNanos(occurredAt)
		e.SentAt = timePtr(sentAt)
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *SQLStorage) MarkOutboxSent(ctx context.Context, eventID string, at time.Time) error {
	return s.markOutboxSentWithQuerier(ctx, s.querier(), eventID, at)
}

func (s *SQLStorage) markOutboxSentWithQuerier(ctx context.Context, q querier, eventID string, at time.Time) error {
	result, err := q.ExecContext(ctx,
		s.rebind(`UPDATE outbox SET sent_at = ?, attempts = attempts + 1, last_error = '' WHERE event_id = ?`),
		toNanos(at), eventID)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", classifyError(err))
	}
	return requireRow(result, "outbox event", eventID)
}

func (s *SQLStorage) MarkOutboxFailed(ctx context.Context, eventID string, cause string) error {
	return s.markOutboxFailedWithQuerier(ctx, s.querier(), eventID, cause)
}

func (s *SQLStorage) markOutboxFailedWithQuerier(ctx context.Context, q querier, eventID string, cause string) error {
	result, err := q.ExecContext(ctx,
		s.rebind(`UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE event_id = ?`),
		cause, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event failed: %w", classifyError(err))
	}
	return requireRow(result, "outbox event", eventID)
}

func requireRow(result sql.Result, what, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return nil
}
