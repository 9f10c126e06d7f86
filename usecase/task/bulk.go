package task

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/repository"
)

// MarkAllCompleted completes every pending task of the owner and returns how
// many changed. Tasks that were already completed keep their timestamps.
func (uc *UseCase) MarkAllCompleted(ctx context.Context, ownerID int64) (int, error) {
	return uc.bulkTransition(ctx, ownerID, (*domain.Task).MarkCompleted)
}

// MarkAllPending reopens every completed task of the owner and returns how many changed.
func (uc *UseCase) MarkAllPending(ctx context.Context, ownerID int64) (int, error) {
	return uc.bulkTransition(ctx, ownerID, func(task *domain.Task, _ time.Time) bool {
		return task.MarkPending()
	})
}

// DeleteCompleted removes every completed task of the owner and returns the number removed.
func (uc *UseCase) DeleteCompleted(ctx context.Context, ownerID int64) (int, error) {
	var deleted []domain.Task
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		deleted = deleted[:0]
		if err := requireOwner(ctx, repos, ownerID); err != nil {
			return err
		}
		snapshot, err := repos.Tasks.ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		for i := range snapshot {
			if !snapshot[i].Completed {
				continue
			}
			if err := repos.Tasks.Delete(ctx, snapshot[i].ID); err != nil {
				return fmt.Errorf("delete task %d: %w", snapshot[i].ID, err)
			}
			deleted = append(deleted, snapshot[i])
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	uc.log(ctx).Info("completed tasks deleted", zap.Int64("owner_id", ownerID), zap.Int("count", len(deleted)))
	now := uc.now()
	uc.record(ctx, eventsFor(deleted, now, func(*domain.Task) domain.TaskEventName { return domain.TaskDeleted })...)
	return len(deleted), nil
}

// CountCompleted returns the number of completed tasks of the owner.
func (uc *UseCase) CountCompleted(ctx context.Context, ownerID int64) (int, error) {
	stats, err := uc.Stats(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return stats.Completed, nil
}

// CountPending returns the number of pending tasks of the owner.
func (uc *UseCase) CountPending(ctx context.Context, ownerID int64) (int, error) {
	stats, err := uc.Stats(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return stats.Pending, nil
}

// PercentCompleted returns completed/total*100, or exactly 0 for an empty list.
func (uc *UseCase) PercentCompleted(ctx context.Context, ownerID int64) (float64, error) {
	stats, err := uc.Stats(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return stats.PercentCompleted, nil
}

// Stats derives every counter from one snapshot of the owner's list.
func (uc *UseCase) Stats(ctx context.Context, ownerID int64) (*domain.TaskStats, error) {
	tasks, err := uc.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats := domain.ComputeTaskStats(tasks)
	return &stats, nil
}

// bulkTransition applies apply to a snapshot of the owner's tasks taken at the
// start of the transaction. Any failed update rolls the whole batch back.
func (uc *UseCase) bulkTransition(ctx context.Context, ownerID int64, apply transitionFunc) (int, error) {
	var changed []domain.Task
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		changed = changed[:0]
		if err := requireOwner(ctx, repos, ownerID); err != nil {
			return err
		}
		snapshot, err := repos.Tasks.ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		now := uc.now()
		for i := range snapshot {
			task := &snapshot[i]
			if !apply(task, now) {
				continue
			}
			if err := repos.Tasks.Update(ctx, task); err != nil {
				return fmt.Errorf("update task %d: %w", task.ID, err)
			}
			changed = append(changed, *task)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	uc.log(ctx).Info("bulk transition applied", zap.Int64("owner_id", ownerID), zap.Int("changed", len(changed)))
	uc.record(ctx, eventsFor(changed, uc.now(), func(t *domain.Task) domain.TaskEventName {
		return domain.TransitionEvent(t)
	})...)
	return len(changed), nil
}

func eventsFor(tasks []domain.Task, at time.Time, name func(*domain.Task) domain.TaskEventName) []domain.TaskEvent {
	events := make([]domain.TaskEvent, 0, len(tasks))
	for i := range tasks {
		events = append(events, domain.NewTaskEvent(name(&tasks[i]), &tasks[i], at))
	}
	return events
}

// Status selects which part of a task list Overview returns.
type Status string

const (
	StatusAll       Status = ""
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// Overview returns the owner's tasks filtered by status together with the
// statistics of the whole list, both taken from the same snapshot.
func (uc *UseCase) Overview(ctx context.Context, ownerID int64, status Status) ([]domain.Task, *domain.TaskStats, error) {
	var keep func(*domain.Task) bool
	switch status {
	case StatusAll:
	case StatusCompleted:
		keep = (*domain.Task).IsCompleted
	case StatusPending:
		keep = (*domain.Task).IsPending
	default:
		return nil, nil, domain.NewError(domain.ErrCodeInvalid, "status must be completed or pending")
	}

	tasks, err := uc.snapshot(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	stats := domain.ComputeTaskStats(tasks)
	if keep == nil {
		return tasks, &stats, nil
	}
	out := make([]domain.Task, 0, len(tasks))
	for i := range tasks {
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out, &stats, nil
}
