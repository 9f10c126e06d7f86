package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/internal/infrastructure/buffer"
	"github.com/fastygo/todolist/usecase"
)

// ActivityBridge turns committed task events into buffer items.
type ActivityBridge struct {
	processor *ActivityProcessor
}

func NewActivityBridge(processor *ActivityProcessor) *ActivityBridge {
	return &ActivityBridge{processor: processor}
}

func (b *ActivityBridge) RecordTaskEvents(ctx context.Context, events ...domain.TaskEvent) error {
	if len(events) == 0 {
		return nil
	}
	if b == nil || b.processor == nil {
		return domain.ErrInvalidPayload
	}

	items := make([]buffer.Item, 0, len(events))
	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		items = append(items, buffer.Item{
			ID:        event.ID,
			OwnerID:   event.OwnerID,
			Kind:      buffer.KindTaskEvent,
			Data:      payload,
			Priority:  priorityFor(event.Name),
			Timestamp: event.OccurredAt,
		})
	}
	return b.processor.Submit(ctx, items)
}

func priorityFor(name domain.TaskEventName) int {
	if name == domain.TaskDeleted {
		return 2
	}
	return 3
}

var _ usecase.ActivityRecorder = (*ActivityBridge)(nil)
