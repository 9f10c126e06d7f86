package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/repository"
)

type eventRepository struct {
	db dbtx
}

// NewEventRepository creates a SQLite-backed task activity log.
func NewEventRepository(db dbtx) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, event *domain.TaskEvent) error {
	if event == nil {
		return domain.ErrInvalidPayload
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_events (id, task_id, owner_id, name, metadata, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, event.TaskID, event.OwnerID, string(event.Name), marshalMap(event.Metadata), event.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append task event: %w", err)
	}
	return nil
}

func (r *eventRepository) ListByTask(ctx context.Context, ownerID, taskID int64, limit int) ([]domain.TaskEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, owner_id, name, metadata, occurred_at
		 FROM task_events WHERE owner_id = ? AND task_id = ?
		 ORDER BY occurred_at ASC, id ASC
		 LIMIT ?`, ownerID, taskID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TaskEvent, 0)
	for rows.Next() {
		var (
			event    domain.TaskEvent
			name     string
			metadata sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.TaskID, &event.OwnerID, &name, &metadata, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan task event: %w", err)
		}
		event.Name = domain.TaskEventName(name)
		event.OccurredAt = event.OccurredAt.UTC()
		if metadata.Valid && metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &event.Metadata)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
