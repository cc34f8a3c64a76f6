package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/pkg/httpcontext"
	"github.com/fastygo/ava/usecase"
	authUC "github.com/fastygo/ava/usecase/auth"
	"github.com/fastygo/ava/usecase/routing"
)

const msgLookupFallback = "Could not check your society, showing your default page"

type AuthHandler struct {
	baseHandler
	uc        *authUC.UseCase
	router    *routing.Router
	validator usecase.Validator
}

func NewAuthHandler(
	uc *authUC.UseCase,
	router *routing.Router,
	validator usecase.Validator,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		router:      router,
		validator:   validator,
	}
}

// @Summary Create an account and sign it in
// @Tags auth
// @Accept json
// @Produce json
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) SignUp(ctx *fasthttp.RequestCtx) {
	var req authUC.SignUpRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.SignUp(stdCtx, req)
	if err != nil {
		h.respondError(ctx, err, nil)
		return
	}
	h.log(stdCtx).Info("account created", zap.String("user_id", result.Identity.ID), zap.Bool("is_admin", result.IsAdmin))

	decision := h.router.Decide(stdCtx, result.SessionContext(), routing.NavigationRequest{})
	h.respondDecision(ctx, http.StatusCreated, toAuthResponse(result), decision)
}

// @Summary Sign in with email and password
// @Tags auth
// @Param redirect query string false "local path to continue to"
// @Router /api/v1/auth/signin [post]
func (h *AuthHandler) SignIn(ctx *fasthttp.RequestCtx) {
	query, ok := h.navigationQuery(ctx)
	if !ok {
		return
	}

	var req authUC.SignInRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.SignIn(stdCtx, req)
	if err != nil {
		h.respondError(ctx, err, nil)
		return
	}

	decision := h.router.Decide(stdCtx, result.SessionContext(), routing.NavigationRequest{RedirectTo: query.Redirect})
	h.respondDecision(ctx, http.StatusOK, toAuthResponse(result), decision)
}

// @Summary Request a password reset link
// @Tags auth
// @Router /api/v1/auth/reset [post]
func (h *AuthHandler) ResetPassword(ctx *fasthttp.RequestCtx) {
	var req authUC.ResetRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.ResetPassword(stdCtx, req); err != nil {
		h.respondError(ctx, err, nil)
		return
	}
	h.respondSuccess(ctx, http.StatusAccepted, map[string]string{
		"message": "If an account exists for this email, a reset link has been sent",
	})
}

// @Summary Set a new password with a reset token
// @Tags auth
// @Router /api/v1/auth/reset/confirm [post]
func (h *AuthHandler) ConfirmReset(ctx *fasthttp.RequestCtx) {
	var req authUC.ConfirmResetRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.ConfirmReset(stdCtx, req); err != nil {
		h.respondError(ctx, err, nil)
		return
	}
	nav := domain.RedirectTo("/auth")
	h.respondNavigation(ctx, http.StatusOK, map[string]string{"message": "Password updated"}, &nav)
}

// @Summary Refresh an existing session
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	var req transport.RefreshRequest
	if !h.decode(ctx, &req) {
		return
	}
	if req.SessionID == "" {
		h.respondError(ctx, domain.NewValidationError(map[string]string{"session_id": "session_id is required"}), nil)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.RefreshSession(stdCtx, req.SessionID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			err = domain.WrapError(domain.ErrCodeUnauthorized, "session expired", err)
		}
		h.respondError(ctx, err, nil)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, toAuthResponse(result))
}

// @Summary Revoke the current session
// @Tags auth
// @Router /api/v1/auth/signout [post]
func (h *AuthHandler) SignOut(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SignOut(stdCtx, session.SessionID); err != nil {
		h.respondError(ctx, err, nil)
		return
	}
	nav := domain.RedirectTo("/auth")
	h.respondNavigation(ctx, http.StatusOK, nil, &nav)
}

// @Summary Decide where an authenticated session should land
// @Tags auth
// @Param redirect query string false "local path to continue to"
// @Param current query string false "path the client currently shows"
// @Router /api/v1/session/next [get]
func (h *AuthHandler) Next(ctx *fasthttp.RequestCtx) {
	query, ok := h.navigationQuery(ctx)
	if !ok {
		return
	}
	session, _ := httpcontext.Session(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	decision := h.router.Decide(stdCtx, session, routing.NavigationRequest{
		RedirectTo:  query.Redirect,
		CurrentPath: query.Current,
	})
	h.respondDecision(ctx, http.StatusOK, nil, decision)
}

// navigationQuery reads ?redirect and ?current. Anything that is not a local
// path is rejected before it can reach the router.
func (h *AuthHandler) navigationQuery(ctx *fasthttp.RequestCtx) (transport.NavigationQuery, bool) {
	args := ctx.QueryArgs()
	query := transport.NavigationQuery{
		Redirect: string(args.Peek("redirect")),
		Current:  string(args.Peek("current")),
	}
	if err := h.validator.Struct(query); err != nil {
		h.respondError(ctx, err, nil)
		return transport.NavigationQuery{}, false
	}
	return query, true
}

func (h *AuthHandler) respondDecision(ctx *fasthttp.RequestCtx, status int, data interface{}, decision routing.Decision) {
	meta := transport.DecisionResponse{
		Pending:  decision.Pending,
		Navigate: decision.Navigate,
		Fallback: decision.Fallback,
	}
	if decision.Fallback {
		meta.Warning = msgLookupFallback
	}
	env := transport.NewSuccess(data, meta)
	if decision.Navigate {
		env = env.WithNavigation(&decision.Navigation)
	}
	h.respondJSON(ctx, status, env)
}

func toAuthResponse(result *authUC.Result) transport.AuthResponse {
	resp := transport.AuthResponse{
		User:        result.Identity,
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		IsAdmin:     result.IsAdmin,
	}
	if result.Session != nil {
		resp.SessionID = result.Session.ID
		resp.ExpiresAt = result.Session.ExpiresAt
	}
	return resp
}
