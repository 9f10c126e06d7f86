package profile

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/pkg/logger"
	"github.com/fastygo/todolist/repository"
)

// UpdateInput carries optional profile changes; nil fields are left untouched.
type UpdateInput struct {
	DisplayName    *string
	BirthDate      *time.Time
	ClearBirthDate bool
}

type UseCase struct {
	tx     repository.Transactor
	logger *zap.Logger
}

func New(tx repository.Transactor, log *zap.Logger) *UseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &UseCase{tx: tx, logger: log}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	var user *domain.User
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, userID)
		return err
	})
	return user, err
}

func (uc *UseCase) UpdateProfile(ctx context.Context, userID int64, in UpdateInput) (*domain.User, error) {
	var user *domain.User
	err := uc.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if in.DisplayName != nil {
			name := strings.TrimSpace(*in.DisplayName)
			if name == "" {
				return domain.NewError(domain.ErrCodeInvalid, "display name is required")
			}
			user.DisplayName = name
		}
		switch {
		case in.ClearBirthDate:
			user.BirthDate = nil
		case in.BirthDate != nil:
			if in.BirthDate.After(time.Now()) {
				return domain.NewError(domain.ErrCodeInvalid, "birth date is in the future")
			}
			bd := in.BirthDate.UTC()
			user.BirthDate = &bd
		}
		return repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	logger.WithRequestID(ctx, uc.logger).Info("profile updated", zap.Int64("user_id", userID))
	return user, nil
}
