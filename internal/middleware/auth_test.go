package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/pkg/httpcontext"
)

type stubAuth map[string]*domain.Session

func (s stubAuth) Authenticate(_ context.Context, token string) (*domain.Session, error) {
	if token == "broken" {
		return nil, errors.New("redis down")
	}
	if session, ok := s[token]; ok {
		return session, nil
	}
	return nil, domain.ErrUnauthorized
}

func run(header string) (*fasthttp.RequestCtx, bool) {
	auth := stubAuth{"good": {ID: "sess-1", UserID: 42}}
	var rc fasthttp.RequestCtx
	if header != "" {
		rc.Request.Header.Set("Authorization", header)
	}
	called := false
	JWTAuth(auth, 0, nil)(func(ctx *fasthttp.RequestCtx) {
		called = true
	})(&rc)
	return &rc, called
}

func TestJWTAuth(t *testing.T) {
	rc, called := run("Bearer good")
	assert.True(t, called)
	id, ok := httpcontext.CallerID(rc)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "sess-1", httpcontext.SessionID(rc))

	_, called = run("bearer good")
	assert.True(t, called)

	for _, header := range []string{"", "Bearer bad", "broken"} {
		rc, called = run(header)
		assert.False(t, called, header)
		assert.Equal(t, http.StatusUnauthorized, rc.Response.StatusCode(), header)
	}
}
