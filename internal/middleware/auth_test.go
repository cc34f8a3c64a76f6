package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/internal/infrastructure/token"
	"github.com/fastygo/ava/pkg/httpcontext"
)

type stubResolver struct {
	sessions map[string]domain.SessionContext
	err      error
}

func (s stubResolver) SessionContext(_ context.Context, sessionID string) (domain.SessionContext, error) {
	if s.err != nil {
		return domain.SessionContext{}, s.err
	}
	sc, ok := s.sessions[sessionID]
	if !ok {
		return domain.SessionContext{}, domain.ErrSessionNotFound
	}
	return sc, nil
}

func issue(t *testing.T, issuer *token.Issuer, session *domain.Session) string {
	t.Helper()
	raw, err := issuer.Issue(session)
	require.NoError(t, err)
	return raw
}

func decode(t *testing.T, ctx *fasthttp.RequestCtx) transport.Envelope {
	t.Helper()
	var env transport.Envelope
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	return env
}

func TestJWTAuth(t *testing.T) {
	issuer := token.NewIssuer(token.Config{Secret: "secret", Issuer: "ava", TTL: time.Minute})
	session := &domain.Session{ID: "s1", UserID: "u1", IsAdmin: true, ExpiresAt: time.Now().Add(time.Hour)}
	resolver := stubResolver{sessions: map[string]domain.SessionContext{
		"s1": domain.NewSessionContext(session),
	}}

	tests := []struct {
		name     string
		header   string
		resolver SessionResolver
		status   int
		reached  bool
	}{
		{name: "missing token", header: "", resolver: resolver, status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", resolver: resolver, status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + issue(t, issuer, session), resolver: resolver, status: http.StatusOK, reached: true},
		{
			name:     "revoked session",
			header:   "Bearer " + issue(t, issuer, session),
			resolver: stubResolver{sessions: map[string]domain.SessionContext{}},
			status:   http.StatusUnauthorized,
		},
		{
			name:     "store failure",
			header:   "Bearer " + issue(t, issuer, session),
			resolver: stubResolver{err: errors.New("redis down")},
			status:   http.StatusUnauthorized,
		},
		{
			name:     "subject mismatch",
			header:   "Bearer " + issue(t, issuer, &domain.Session{ID: "s1", UserID: "u2"}),
			resolver: resolver,
			status:   http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := JWTAuth(issuer, tt.resolver, time.Second, nil)(func(ctx *fasthttp.RequestCtx) {
				reached = true
				sc, ok := httpcontext.Session(ctx)
				assert.True(t, ok)
				assert.Equal(t, "u1", sc.IdentityID())
				ctx.SetStatusCode(http.StatusOK)
			})

			var ctx fasthttp.RequestCtx
			if tt.header != "" {
				ctx.Request.Header.Set("Authorization", tt.header)
			}
			handler(&ctx)

			assert.Equal(t, tt.status, ctx.Response.StatusCode())
			assert.Equal(t, tt.reached, reached)
		})
	}
}

func TestAdminGuard(t *testing.T) {
	next := func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(http.StatusNoContent) }

	t.Run("no session redirects to sign in", func(t *testing.T) {
		var ctx fasthttp.RequestCtx
		ctx.Request.SetRequestURI("/api/v1/admin/society")
		AdminGuard(next)(&ctx)

		assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())
		env := decode(t, &ctx)
		require.NotNil(t, env.Navigation)
		assert.Equal(t, "/auth?redirect=%2Fapi%2Fv1%2Fadmin%2Fsociety", env.Navigation.Path)
	})

	t.Run("tenant is sent home", func(t *testing.T) {
		var ctx fasthttp.RequestCtx
		httpcontext.SetSession(&ctx, domain.NewSessionContext(&domain.Session{ID: "s", UserID: "t1"}))
		AdminGuard(next)(&ctx)

		assert.Equal(t, http.StatusForbidden, ctx.Response.StatusCode())
		env := decode(t, &ctx)
		require.NotNil(t, env.Navigation)
		assert.Equal(t, "/home", env.Navigation.Path)
		assert.Equal(t, string(domain.ErrCodeForbidden), env.Error.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		var ctx fasthttp.RequestCtx
		httpcontext.SetSession(&ctx, domain.NewSessionContext(&domain.Session{ID: "s", UserID: "a1", IsAdmin: true}))
		AdminGuard(next)(&ctx)

		assert.Equal(t, http.StatusNoContent, ctx.Response.StatusCode())
	})
}
