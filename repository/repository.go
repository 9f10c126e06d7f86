package repository

import (
	"context"

	"github.com/fastygo/todolist/domain"
)

// UserRepository persists task owners.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
}

// TaskRepository is a key-addressed task table. ListByOwner returns tasks
// ordered by ascending id.
type TaskRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id int64) error
}

// EventRepository stores the task activity log.
type EventRepository interface {
	Append(ctx context.Context, event *domain.TaskEvent) error
	ListByTask(ctx context.Context, ownerID, taskID int64, limit int) ([]domain.TaskEvent, error)
}

// SessionRepository keeps authentication sessions.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}

// Repositories groups the stores bound to one unit of work.
type Repositories struct {
	Users  UserRepository
	Tasks  TaskRepository
	Events EventRepository
}

// Transactor runs fn inside a single storage transaction. The repositories
// handed to fn are bound to that transaction; returning an error rolls
// every write back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is a storage engine exposing both direct and transactional access.
type Store interface {
	Transactor
	Repositories() Repositories
	Ping(ctx context.Context) error
	Close() error
}
