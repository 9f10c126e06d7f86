package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/repository"
)

type userRepository struct {
	db dbtx
}

// NewUserRepository creates a SQLite-backed user repository.
func NewUserRepository(db dbtx) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, display_name, email, password_hash, birth_date, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (display_name, email, password_hash, birth_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.DisplayName, user.Email, user.PasswordHash, nullTime(user.BirthDate), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, birth_date = ?, updated_at = ? WHERE id = ?`,
		user.DisplayName, nullTime(user.BirthDate), now, user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = now
	return nil
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user      domain.User
		birthDate sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.DisplayName,
		&user.Email,
		&user.PasswordHash,
		&birthDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.BirthDate = timePtr(birthDate)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}
