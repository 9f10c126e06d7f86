package auth_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/repository/sqlite"
	"github.com/fastygo/todolist/usecase/auth"
)

type memorySessions struct {
	mu   sync.Mutex
	data map[string]domain.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{data: map[string]domain.Session{}}
}

func (m *memorySessions) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memorySessions) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = *s
	return nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memorySessions) Extend(_ context.Context, id string, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.ExpiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	m.data[id] = s
	return nil
}

func newUseCase(t *testing.T) (*auth.UseCase, *memorySessions) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })

	sessions := newMemorySessions()
	uc := auth.New(store.Repositories().Users, sessions, auth.Config{
		Secret:     "test-secret",
		Issuer:     "todolist-test",
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	return uc, sessions
}

func register(t *testing.T, uc *auth.UseCase) *domain.User {
	t.Helper()
	user, err := uc.Register(context.Background(), auth.RegisterInput{
		Email:       "  Ana@Example.com ",
		DisplayName: "Ana",
		Password:    "correct horse",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	user := register(t, uc)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err := uc.Register(ctx, auth.RegisterInput{Email: "ana@example.com", DisplayName: "Other", Password: "long enough"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = uc.Register(ctx, auth.RegisterInput{Email: "b@example.com", DisplayName: "B", Password: "short"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.Register(ctx, auth.RegisterInput{Email: "not-an-email", DisplayName: "B", Password: "long enough"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, err = uc.Register(ctx, auth.RegisterInput{Email: "c@example.com", DisplayName: "  ", Password: "long enough"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestLoginAuthenticateLogout(t *testing.T) {
	uc, sessions := newUseCase(t)
	ctx := context.Background()
	user := register(t, uc)

	_, err := uc.Login(ctx, "ana@example.com", "wrong password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = uc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	token, err := uc.Login(ctx, "ANA@example.com", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, user.ID, token.Session.UserID)

	session, err := uc.Authenticate(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, token.Session.ID, session.ID)

	require.NoError(t, uc.Logout(ctx, session.ID))
	_, err = uc.Authenticate(ctx, token.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, sessions.data)
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	register(t, uc)

	_, err := uc.Authenticate(ctx, "garbage")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	token, err := uc.Login(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:    token.Session.UserID,
		SessionID: token.Session.ID,
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = uc.Authenticate(ctx, forged)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))

	wrongUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:    token.Session.UserID + 1,
		SessionID: token.Session.ID,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = uc.Authenticate(ctx, wrongUser)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefresh(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	register(t, uc)

	token, err := uc.Login(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	refreshed, err := uc.Refresh(ctx, token.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, token.Session.ID, refreshed.Session.ID)
	assert.False(t, refreshed.ExpiresAt.Before(token.ExpiresAt))

	session, err := uc.Authenticate(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, token.Session.ID, session.ID)

	_, err = uc.Refresh(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
