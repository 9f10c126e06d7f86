package profile_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/repository/sqlite"
	"github.com/fastygo/todolist/usecase/profile"
)

func setup(t *testing.T) (*profile.UseCase, int64) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "profile.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })

	user := &domain.User{DisplayName: "Ana", Email: "ana@example.com", PasswordHash: "hash"}
	require.NoError(t, store.Repositories().Users.Create(context.Background(), user))
	return profile.New(store, nil), user.ID
}

func TestGetProfile(t *testing.T) {
	uc, id := setup(t)

	user, err := uc.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.DisplayName)

	_, err = uc.GetProfile(context.Background(), id+100)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	uc, id := setup(t)
	ctx := context.Background()

	name := "  Ana Maria "
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	user, err := uc.UpdateProfile(ctx, id, profile.UpdateInput{DisplayName: &name, BirthDate: &birth})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", user.DisplayName)

	stored, err := uc.GetProfile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.BirthDate)
	assert.True(t, birth.Equal(*stored.BirthDate))
	assert.Equal(t, "ana@example.com", stored.Email)

	user, err = uc.UpdateProfile(ctx, id, profile.UpdateInput{ClearBirthDate: true})
	require.NoError(t, err)
	assert.Nil(t, user.BirthDate)
	assert.Equal(t, "Ana Maria", user.DisplayName)
}

func TestUpdateProfile_Rejects(t *testing.T) {
	uc, id := setup(t)
	ctx := context.Background()

	blank := " "
	_, err := uc.UpdateProfile(ctx, id, profile.UpdateInput{DisplayName: &blank})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	future := time.Now().Add(48 * time.Hour)
	_, err = uc.UpdateProfile(ctx, id, profile.UpdateInput{BirthDate: &future})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.UpdateProfile(ctx, id+1, profile.UpdateInput{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
