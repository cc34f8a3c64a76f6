package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/internal/infrastructure/token"
	"github.com/fastygo/ava/pkg/httpcontext"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(raw string) (*token.Claims, error)
}

// SessionResolver turns a live session ID into a session context.
type SessionResolver interface {
	SessionContext(ctx context.Context, sessionID string) (domain.SessionContext, error)
}

// Middleware wraps a handler.
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// JWTAuth accepts a request only when its bearer token is valid and the
// session it names is still live. The resolved session context is stored on
// the request for the handlers.
func JWTAuth(tokens TokenParser, sessions SessionResolver, timeout time.Duration, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx, "missing bearer token")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				logger.Warn("invalid jwt token",
					zap.String("request_id", httpcontext.RequestID(ctx)), zap.Error(err))
				unauthorized(ctx, "invalid token")
				return
			}

			stdCtx, cancel := context.WithTimeout(context.Background(), timeout)
			session, err := sessions.SessionContext(stdCtx, claims.Sid)
			cancel()
			if err != nil {
				if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
					logger.Error("session lookup failed",
						zap.String("request_id", httpcontext.RequestID(ctx)),
						zap.String("user_id", claims.UserID), zap.Error(err))
				}
				unauthorized(ctx, "session expired")
				return
			}
			if session.IdentityID() != claims.UserID {
				logger.Warn("token subject does not match session",
					zap.String("user_id", claims.UserID), zap.String("sid", claims.Sid))
				unauthorized(ctx, "invalid token")
				return
			}

			httpcontext.SetSession(ctx, session)
			next(ctx)
		}
	}
}

// AdminGuard lets only admin sessions through. Without a session the client is
// sent to the sign in page with the current path as redirect; non-admins are
// sent home.
func AdminGuard(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		session, _ := httpcontext.Session(ctx)
		switch err := session.RequireAdmin(); {
		case err == nil:
			next(ctx)
		case domain.IsDomainError(err, domain.ErrCodeForbidden):
			home := domain.NavigateTo(domain.TargetHome)
			write(ctx, http.StatusForbidden,
				transport.NewError(string(domain.ErrCodeForbidden), err.Error(), nil).WithNavigation(&home))
		default:
			nav := domain.RedirectTo("/auth?redirect=" + url.QueryEscape(string(ctx.Path())))
			write(ctx, http.StatusUnauthorized,
				transport.NewError(string(domain.ErrCodeUnauthorized), "sign in required", nil).WithNavigation(&nav))
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx, message string) {
	write(ctx, http.StatusUnauthorized, transport.NewError(string(domain.ErrCodeUnauthorized), message, nil))
}

func write(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return header
}
