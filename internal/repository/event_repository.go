package repository

import (
	"context"
	"fmt"

	"lastbite/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// eventRepository implements the append-only EventRepository using PostgreSQL.
type eventRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewEventRepository creates a new PostgreSQL-backed event repository.
func NewEventRepository(pool *pgxpool.Pool, logger zerolog.Logger) EventRepository {
	return &eventRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "event").Logger(),
	}
}

// Append inserts an event within the provided transaction.
func (r *eventRepository) Append(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error {
	query := `
		INSERT INTO order_events (id, order_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := tx.Exec(ctx, query,
		event.ID, event.OrderID, string(event.Type), metadata, event.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", event.OrderID.String()).
			Str("type", string(event.Type)).
			Msg("failed to append order event")
		return fmt.Errorf("failed to append order event: %w", err)
	}

	return nil
}

// ListByOrder retrieves all events of an order, oldest first.
func (r *eventRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderEvent, error) {
	query := `
		SELECT id, order_id, type, metadata, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order events: %w", err)
	}
	defer rows.Close()

	var events []model.OrderEvent
	for rows.Next() {
		var (
			event     model.OrderEvent
			eventType string
		)
		if err := rows.Scan(&event.ID, &event.OrderID, &eventType, &event.Metadata, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order event: %w", err)
		}
		event.Type = model.EventType(eventType)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order events: %w", err)
	}

	return events, nil
}
