package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/pkg/httpcontext"
	appLogger "github.com/fastygo/ava/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

// session returns the session stored by the auth middleware or answers 401.
func (h baseHandler) session(ctx *fasthttp.RequestCtx) (domain.SessionContext, bool) {
	session, ok := httpcontext.Session(ctx)
	if !ok || !session.Resolved() {
		h.respondError(ctx, domain.ErrUnauthorized, nil)
		return domain.SessionContext{}, false
	}
	return session, true
}

// decode unmarshals the request body into dst or answers 400.
func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err), nil)
		return false
	}
	return true
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondNavigation(ctx *fasthttp.RequestCtx, status int, data interface{}, nav *domain.Navigation) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil).WithNavigation(nav))
}

// respondError maps err onto the envelope. Errors without a domain message
// are reported as "internal error"; their text stays in the log.
func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error, nav *domain.Navigation) {
	h.respondFailure(ctx, err, nil, nav)
}

// respondFailure is respondError with a data payload describing what was
// done before the failure.
func (h baseHandler) respondFailure(ctx *fasthttp.RequestCtx, err error, data interface{}, nav *domain.Navigation) {
	status, code := mapError(err)

	message := "internal error"
	var details map[string]string
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		message = dErr.Message
		details = dErr.Fields
	}
	if status >= http.StatusInternalServerError {
		log := h.logger.With(zap.String("request_id", httpcontext.RequestID(ctx)))
		if session, ok := httpcontext.Session(ctx); ok {
			log = log.With(zap.String("user_id", session.IdentityID()))
		}
		log.Error("request failed", zap.String("path", string(ctx.Path())), zap.String("code", code), zap.Error(err))
	}

	env := transport.NewError(code, message, details).WithNavigation(nav)
	env.Data = data
	h.respondJSON(ctx, status, env)
}

func (h baseHandler) log(ctx context.Context) *zap.Logger {
	return appLogger.FromContext(ctx, h.logger)
}

func mapError(err error) (int, string) {
	code := domain.CodeOf(err)
	switch code {
	case domain.ErrCodeInvalid:
		return http.StatusBadRequest, string(code)
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized, string(code)
	case domain.ErrCodeForbidden:
		return http.StatusForbidden, string(code)
	case domain.ErrCodeNotFound:
		return http.StatusNotFound, string(code)
	case domain.ErrCodeConflict:
		return http.StatusConflict, string(code)
	case domain.ErrCodeSocietyCreate, domain.ErrCodeProfileLink:
		return http.StatusBadGateway, string(code)
	case domain.ErrCodeIdentityUnresolved:
		return http.StatusInternalServerError, string(code)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
