package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/internal/config"
	pgInfra "github.com/fastygo/todolist/internal/infrastructure/postgres"
	"github.com/fastygo/todolist/repository"
	"github.com/fastygo/todolist/repository/postgres"
)

func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	cfg := &config.Config{
		Database:   config.DatabaseConfig{URL: url},
		Migrations: config.MigrationsConfig{Enabled: true},
	}
	require.NoError(t, pgInfra.RunMigrations(cfg, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgInfra.NewPool(ctx, cfg.Database, nil)
	require.NoError(t, err)

	store := postgres.NewStore(pool)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_TaskRoundTripAndRollback(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repos := store.Repositories()

	user := &domain.User{
		DisplayName:  "PG",
		Email:        fmt.Sprintf("pg-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "hash",
	}
	require.NoError(t, repos.Users.Create(ctx, user))
	assert.ErrorIs(t, repos.Users.Create(ctx, &domain.User{DisplayName: "dup", Email: user.Email, PasswordHash: "x"}), domain.ErrEmailTaken)

	first, err := domain.NewTask(user.ID, "first", time.Now())
	require.NoError(t, err)
	require.NoError(t, repos.Tasks.Create(ctx, first))
	second, err := domain.NewTask(user.ID, "second", time.Now())
	require.NoError(t, err)
	require.NoError(t, repos.Tasks.Create(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		first.MarkCompleted(time.Now())
		if err := tx.Tasks.Update(ctx, first); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	list, err := repos.Tasks.ListByOwner(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.False(t, list[0].Completed, "rolled back")

	event := domain.NewTaskEvent(domain.TaskCreated, second, time.Now())
	require.NoError(t, repos.Events.Append(ctx, &event))
	require.NoError(t, repos.Events.Append(ctx, &event))
	events, err := repos.Events.ListByTask(ctx, user.ID, second.ID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = repos.Tasks.GetByID(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
