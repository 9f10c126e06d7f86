package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/todolist/api/handler"
	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/internal/infrastructure/monitor"
	"github.com/fastygo/todolist/internal/middleware"
	"github.com/fastygo/todolist/internal/router"
	"github.com/fastygo/todolist/pkg/httpcontext"
	"github.com/fastygo/todolist/repository"
	"github.com/fastygo/todolist/repository/sqlite"
	authUC "github.com/fastygo/todolist/usecase/auth"
	profileUC "github.com/fastygo/todolist/usecase/profile"
	taskUC "github.com/fastygo/todolist/usecase/task"
)

type memorySessions struct {
	mu   sync.Mutex
	data map[string]domain.Session
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

func (m *memorySessions) Extend(context.Context, string, int) error { return nil }

// eventLog writes activity synchronously so tests can read it back at once.
type eventLog struct {
	events repository.EventRepository
}

func (l eventLog) RecordTaskEvents(ctx context.Context, events ...domain.TaskEvent) error {
	for i := range events {
		if err := l.events.Append(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

type fixedStatus monitor.Status

func (f fixedStatus) GetStatus() monitor.Status { return monitor.Status(f) }

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Meta   json.RawMessage `json:"meta"`
}

type api struct {
	t       *testing.T
	handler fasthttp.RequestHandler
}

func newAPI(t *testing.T, status monitor.Status) *api {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })

	adapter := httpcontext.NewAdapter(5 * time.Second)
	auth := authUC.New(store.Repositories().Users, &memorySessions{data: map[string]domain.Session{}}, authUC.Config{
		Secret:     "handler-secret",
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)

	r := router.New(router.Handlers{
		Auth:    handler.NewAuthHandler(auth, adapter, nil),
		Profile: handler.NewProfileHandler(profileUC.New(store, nil), adapter, nil),
		Task:    handler.NewTaskHandler(taskUC.New(store, eventLog{events: store.Repositories().Events}, nil), adapter, nil),
		Health:  handler.NewHealthHandler(fixedStatus(status), "sqlite", adapter, nil),
	}, middleware.JWTAuth(auth, time.Second, nil))
	return &api{t: t, handler: r.Handler}
}

func (a *api) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var rc fasthttp.RequestCtx
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(path)
	if token != "" {
		rc.Request.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		rc.Request.SetBody(payload)
		rc.Request.Header.SetContentType("application/json")
	}
	a.handler(&rc)

	var env envelope
	if len(rc.Response.Body()) > 0 {
		require.NoError(a.t, json.Unmarshal(rc.Response.Body(), &env), string(rc.Response.Body()))
	}
	return rc.Response.StatusCode(), env
}

// signup registers and logs in a user, returning its id and bearer token.
func (a *api) signup(email string) (int64, string) {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "display_name": "Tester", "password": "long password", "birth_date": "1991-02-03",
	})
	require.Equal(a.t, http.StatusCreated, status)
	var user domain.User
	require.NoError(a.t, json.Unmarshal(env.Data, &user))

	status, env = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "long password",
	})
	require.Equal(a.t, http.StatusCreated, status)
	var token authUC.Token
	require.NoError(a.t, json.Unmarshal(env.Data, &token))
	return user.ID, token.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t, monitor.Status{Storage: true, Redis: true})
	ownerID, token := a.signup("owner@example.com")
	base := fmt.Sprintf("/api/v1/owners/%d/tasks", ownerID)

	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		status, env := a.do(http.MethodPost, base, token, map[string]string{"title": title})
		require.Equal(t, http.StatusCreated, status)
		task := decode[domain.Task](t, env.Data)
		assert.False(t, task.Completed)
		ids = append(ids, task.ID)
	}

	status, _ := a.do(http.MethodPost, base, token, map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	for _, id := range ids[:2] {
		status, env := a.do(http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/complete", id), token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.True(t, decode[domain.Task](t, env.Data).Completed)
	}

	status, env := a.do(http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, status)
	tasks := decode[[]domain.Task](t, env.Data)
	require.Len(t, tasks, 3)
	assert.Equal(t, ids, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	stats := decode[domain.TaskStats](t, env.Meta)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 66.66666666666666, stats.PercentCompleted)

	status, env = a.do(http.MethodGet, base+"?status=pending", token, nil)
	require.Equal(t, http.StatusOK, status)
	pending := decode[[]domain.Task](t, env.Data)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[2], pending[0].ID)

	status, _ = a.do(http.MethodGet, base+"?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = a.do(http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d", ids[2]), token, map[string]string{"title": "renamed"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "renamed", decode[domain.Task](t, env.Data).Title)

	status, env = a.do(http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/toggle", ids[2]), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[domain.Task](t, env.Data).Completed)

	status, env = a.do(http.MethodPost, base+"/pending-all", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":3}`, string(env.Data))

	status, env = a.do(http.MethodPost, base+"/complete-all", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":3}`, string(env.Data))

	status, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/pending", ids[0]), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodPost, base+"/delete-completed", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":2}`, string(env.Data))

	status, env = a.do(http.MethodGet, base+"/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	stats = decode[domain.TaskStats](t, env.Data)
	assert.Equal(t, domain.TaskStats{Total: 1, Pending: 1}, stats)

	status, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/tasks/%d", ids[0]), token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", ids[0]), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(domain.ErrCodeNotFound), env.Code)

	status, env = a.do(http.MethodGet, base+"/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0.0, decode[domain.TaskStats](t, env.Data).PercentCompleted)
}

func TestOwnershipIsEnforced(t *testing.T) {
	a := newAPI(t, monitor.Status{Storage: true, Redis: true})
	aliceID, alice := a.signup("alice@example.com")
	bobID, bob := a.signup("bob@example.com")

	status, env := a.do(http.MethodPost, fmt.Sprintf("/api/v1/owners/%d/tasks", aliceID), alice, map[string]string{"title": "private"})
	require.Equal(t, http.StatusCreated, status)
	task := decode[domain.Task](t, env.Data)

	status, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", task.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(domain.ErrCodeForbidden), env.Code)

	status, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/complete", task.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/owners/%d/tasks", aliceID), bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/owners/%d/tasks", bobID), bob, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))

	status, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", task.ID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(http.MethodGet, "/api/v1/tasks/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuthAndProfileOverHTTP(t *testing.T) {
	a := newAPI(t, monitor.Status{Storage: true, Redis: true})
	userID, token := a.signup("carol@example.com")

	status, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "carol@example.com", "display_name": "Dup", "password": "long password",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(domain.ErrCodeConflict), env.Code)

	status, _ = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "carol@example.com", "password": "nope nope nope",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = a.do(http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	user := decode[domain.User](t, env.Data)
	assert.Equal(t, userID, user.ID)
	require.NotNil(t, user.BirthDate)
	assert.NotContains(t, string(env.Data), "password")

	status, env = a.do(http.MethodPut, "/api/v1/profile", token, map[string]string{"display_name": "Carol", "birth_date": ""})
	require.Equal(t, http.StatusOK, status)
	user = decode[domain.User](t, env.Data)
	assert.Equal(t, "Carol", user.DisplayName)
	assert.Nil(t, user.BirthDate)

	status, _ = a.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = a.do(http.MethodGet, "/api/v1/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshRequiresBearerToken(t *testing.T) {
	a := newAPI(t, monitor.Status{Storage: true, Redis: true})
	userID, token := a.signup("dave@example.com")

	status, env := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "dave@example.com", "password": "long password",
	})
	require.Equal(t, http.StatusCreated, status)
	sessionID := decode[authUC.Token](t, env.Data).Session.ID
	require.NotEmpty(t, sessionID)

	status, env = a.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"session_id": sessionID})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Empty(t, env.Data)

	status, env = a.do(http.MethodPost, "/api/v1/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)
	refreshed := decode[authUC.Token](t, env.Data)
	require.NotEmpty(t, refreshed.AccessToken)

	status, env = a.do(http.MethodGet, "/api/v1/profile", refreshed.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, userID, decode[domain.User](t, env.Data).ID)
}

func TestEventsOfDeletedTask(t *testing.T) {
	a := newAPI(t, monitor.Status{Storage: true, Redis: true})
	aliceID, alice := a.signup("erin@example.com")
	_, bob := a.signup("frank@example.com")

	status, env := a.do(http.MethodPost, fmt.Sprintf("/api/v1/owners/%d/tasks", aliceID), alice, map[string]string{"title": "temporary"})
	require.Equal(t, http.StatusCreated, status)
	task := decode[domain.Task](t, env.Data)
	events := fmt.Sprintf("/api/v1/tasks/%d/events", task.ID)

	status, _ = a.do(http.MethodGet, events, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/tasks/%d", task.ID), alice, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, env = a.do(http.MethodGet, events, alice, nil)
	require.Equal(t, http.StatusOK, status)
	history := decode[[]domain.TaskEvent](t, env.Data)
	names := make([]domain.TaskEventName, 0, len(history))
	for _, e := range history {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []domain.TaskEventName{domain.TaskCreated, domain.TaskDeleted}, names)

	status, _ = a.do(http.MethodGet, events, bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealth(t *testing.T) {
	a := newAPI(t, monitor.Status{Storage: true, Redis: true, Buffer: true, BufferSize: 2})
	status, env := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	a = newAPI(t, monitor.Status{Storage: true})
	status, env = a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEGRADED", env.Code)
}
