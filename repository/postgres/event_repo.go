package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/repository"
)

type eventRepository struct {
	db querier
}

// NewEventRepository creates a Postgres-backed task activity log.
func NewEventRepository(db querier) repository.EventRepository {
	return &eventRepository{db: db}
}

// Append is idempotent on event id so a replayed buffer item is stored once.
func (r *eventRepository) Append(ctx context.Context, event *domain.TaskEvent) error {
	if event == nil {
		return domain.ErrInvalidPayload
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO task_events (id, task_id, owner_id, name, metadata, occurred_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query,
		event.ID,
		event.TaskID,
		event.OwnerID,
		string(event.Name),
		marshalMap(event.Metadata),
		nullTime(&event.OccurredAt),
	); err != nil {
		return fmt.Errorf("append task event: %w", err)
	}
	return nil
}

func (r *eventRepository) ListByTask(ctx context.Context, ownerID, taskID int64, limit int) ([]domain.TaskEvent, error) {
	const query = `
	SELECT id, task_id, owner_id, name, metadata, occurred_at
	FROM task_events
	WHERE owner_id = $1 AND task_id = $2
	ORDER BY occurred_at ASC, id ASC
	LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, ownerID, taskID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TaskEvent, 0)
	for rows.Next() {
		var (
			event    domain.TaskEvent
			name     string
			metadata []byte
		)
		if err := rows.Scan(&event.ID, &event.TaskID, &event.OwnerID, &name, &metadata, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan task event: %w", err)
		}
		event.Name = domain.TaskEventName(name)
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &event.Metadata)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
