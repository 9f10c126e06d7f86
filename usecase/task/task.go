// Package task implements the task lifecycle: creation, title edits,
// completion transitions, bulk transitions and derived statistics for one
// owner's task list.
//
// Every operation runs inside a single storage transaction. Callers are
// expected to have authorized the owner before invoking a mutating
// operation; this package never inspects who is calling.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/pkg/logger"
	"github.com/fastygo/todolist/repository"
	"github.com/fastygo/todolist/usecase"
)

const defaultEventLimit = 50

type UseCase struct {
	tx       repository.Transactor
	activity usecase.ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes a UseCase.
type Option func(*UseCase)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func New(tx repository.Transactor, activity usecase.ActivityRecorder, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		tx:       tx,
		activity: activity,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateTask adds a pending task to the owner's list.
func (uc *UseCase) CreateTask(ctx context.Context, ownerID int64, title string) (*domain.Task, error) {
	var created *domain.Task
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := requireOwner(ctx, repos, ownerID); err != nil {
			return err
		}
		task, err := domain.NewTask(ownerID, title, uc.now())
		if err != nil {
			return err
		}
		if err := repos.Tasks.Create(ctx, task); err != nil {
			return err
		}
		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log(ctx).Debug("task created", zap.Int64("task_id", created.ID), zap.Int64("owner_id", ownerID))
	uc.record(ctx, domain.NewTaskEvent(domain.TaskCreated, created, created.CreatedAt))
	return created, nil
}

// ListTasks returns every task of the owner ordered by ascending id.
func (uc *UseCase) ListTasks(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return uc.snapshot(ctx, ownerID)
}

func (uc *UseCase) ListCompleted(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return uc.filtered(ctx, ownerID, (*domain.Task).IsCompleted)
}

func (uc *UseCase) ListPending(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return uc.filtered(ctx, ownerID, (*domain.Task).IsPending)
}

// FindTask returns nil without error when the task does not exist.
func (uc *UseCase) FindTask(ctx context.Context, id int64) (*domain.Task, error) {
	var found *domain.Task
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		task, err := repos.Tasks.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return nil
			}
			return err
		}
		found = task
		return nil
	})
	return found, err
}

// UpdateTitle renames a task; completion state is left untouched.
func (uc *UseCase) UpdateTitle(ctx context.Context, id int64, title string) (*domain.Task, error) {
	var updated *domain.Task
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		task, err := repos.Tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := task.Rename(title); err != nil {
			return err
		}
		if err := repos.Tasks.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, domain.NewTaskEvent(domain.TaskRenamed, updated, uc.now()))
	return updated, nil
}

// DeleteTask removes a task; the owner's list no longer contains it afterwards.
func (uc *UseCase) DeleteTask(ctx context.Context, id int64) error {
	var deleted *domain.Task
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		task, err := repos.Tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Tasks.Delete(ctx, id); err != nil {
			return err
		}
		deleted = task
		return nil
	})
	if err != nil {
		return err
	}

	uc.log(ctx).Debug("task deleted", zap.Int64("task_id", id))
	uc.record(ctx, domain.NewTaskEvent(domain.TaskDeleted, deleted, uc.now()))
	return nil
}

// ToggleCompletion flips the completion flag, stamping or clearing CompletedAt.
func (uc *UseCase) ToggleCompletion(ctx context.Context, id int64) (*domain.Task, error) {
	return uc.transition(ctx, id, func(task *domain.Task, now time.Time) bool {
		task.Toggle(now)
		return true
	})
}

// MarkCompleted is idempotent: an already completed task keeps its timestamp.
func (uc *UseCase) MarkCompleted(ctx context.Context, id int64) (*domain.Task, error) {
	return uc.transition(ctx, id, (*domain.Task).MarkCompleted)
}

// MarkPending is idempotent.
func (uc *UseCase) MarkPending(ctx context.Context, id int64) (*domain.Task, error) {
	return uc.transition(ctx, id, func(task *domain.Task, _ time.Time) bool {
		return task.MarkPending()
	})
}

// OwnsTask reports whether taskID belongs to ownerID. Both must exist.
func (uc *UseCase) OwnsTask(ctx context.Context, ownerID, taskID int64) (bool, error) {
	var owns bool
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		task, err := repos.Tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireOwner(ctx, repos, ownerID); err != nil {
			return err
		}
		owns = task.OwnerID == ownerID
		return nil
	})
	return owns, err
}

// TaskEvents lists the activity the owner recorded for a task. History stays
// readable after the task is deleted since events carry their owner id.
func (uc *UseCase) TaskEvents(ctx context.Context, ownerID, taskID int64, limit int) ([]domain.TaskEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	var events []domain.TaskEvent
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := requireOwner(ctx, repos, ownerID); err != nil {
			return err
		}
		task, err := repos.Tasks.GetByID(ctx, taskID)
		switch {
		case err == nil && task.OwnerID != ownerID:
			return domain.ErrOwnershipMismatch
		case err != nil && !errors.Is(err, domain.ErrTaskNotFound):
			return err
		}
		list, err := repos.Events.ListByTask(ctx, ownerID, taskID, limit)
		if err != nil {
			return err
		}
		if len(list) == 0 && task == nil {
			return domain.ErrTaskNotFound
		}
		events = list
		return nil
	})
	return events, err
}

type transitionFunc func(task *domain.Task, now time.Time) bool

func (uc *UseCase) transition(ctx context.Context, id int64, apply transitionFunc) (*domain.Task, error) {
	var (
		result  *domain.Task
		changed bool
	)
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		task, err := repos.Tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		changed = apply(task, uc.now())
		if changed {
			if err := repos.Tasks.Update(ctx, task); err != nil {
				return err
			}
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		uc.log(ctx).Debug("task transitioned",
			zap.Int64("task_id", id),
			zap.Bool("completed", result.Completed))
		uc.record(ctx, domain.NewTaskEvent(domain.TransitionEvent(result), result, uc.now()))
	}
	return result, nil
}

func (uc *UseCase) snapshot(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	var tasks []domain.Task
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := requireOwner(ctx, repos, ownerID); err != nil {
			return err
		}
		list, err := repos.Tasks.ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		tasks = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (uc *UseCase) filtered(ctx context.Context, ownerID int64, keep func(*domain.Task) bool) ([]domain.Task, error) {
	tasks, err := uc.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(tasks))
	for i := range tasks {
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out, nil
}

func (uc *UseCase) log(ctx context.Context) *zap.Logger {
	return logger.WithRequestID(ctx, uc.logger)
}

func (uc *UseCase) record(ctx context.Context, events ...domain.TaskEvent) {
	if uc.activity == nil || len(events) == 0 {
		return
	}
	if err := uc.activity.RecordTaskEvents(ctx, events...); err != nil {
		uc.log(ctx).Warn("failed to record task activity", zap.Int("events", len(events)), zap.Error(err))
	}
}

func requireOwner(ctx context.Context, repos repository.Repositories, ownerID int64) error {
	if _, err := repos.Users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.WrapError(domain.ErrCodeNotFound, domain.ErrOwnerNotFound.Message, fmt.Errorf("owner %d", ownerID))
		}
		return err
	}
	return nil
}
