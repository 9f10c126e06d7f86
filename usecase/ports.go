package usecase

import (
	"context"

	"github.com/fastygo/todolist/domain"
)

// ActivityRecorder receives task events after their transaction committed.
// Implementations must not block the caller on storage outages.
type ActivityRecorder interface {
	RecordTaskEvents(ctx context.Context, events ...domain.TaskEvent) error
}
