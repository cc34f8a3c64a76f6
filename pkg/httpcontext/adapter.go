package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/ava/domain"
	appLogger "github.com/fastygo/ava/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
)

// sessionValueKey is the fasthttp user value holding the resolved session.
const sessionValueKey = "ava.session"

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := RequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)

	if session, ok := Session(ctx); ok && session.Resolved() {
		stdCtx = appLogger.ContextWithUserID(stdCtx, session.IdentityID())
	}
	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}

	return stdCtx, cancel
}

// RequestID returns the request ID for ctx, reusing the inbound X-Request-ID
// header when present. The chosen ID is echoed on the response.
func RequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if existing := string(ctx.Response.Header.Peek("X-Request-ID")); existing != "" {
		return existing
	}
	reqID := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID")))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.Response.Header.Set("X-Request-ID", reqID)
	return reqID
}

// SetSession stores the resolved session context on the request.
func SetSession(ctx *fasthttp.RequestCtx, session domain.SessionContext) {
	ctx.SetUserValue(sessionValueKey, session)
}

// Session returns the session context stored by the auth middleware.
func Session(ctx *fasthttp.RequestCtx) (domain.SessionContext, bool) {
	if ctx == nil {
		return domain.SessionContext{}, false
	}
	session, ok := ctx.UserValue(sessionValueKey).(domain.SessionContext)
	return session, ok
}
