package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/harga-api/internal/events"
)

// EventRepo persists domain events.
type EventRepo struct {
	Pool *pgxpool.Pool
}

// InsertDomainEvent appends the event and returns the stored row.
func (r EventRepo) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload json.RawMessage) (events.Event, error) {
	ev := events.Event{Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := r.Pool.QueryRow(ctx, `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, occurred_at`, topic, aggregateID, []byte(payload),
	).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("repo: insert domain event: %w", err)
	}
	return ev, nil
}
