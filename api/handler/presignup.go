package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/pkg/httpcontext"
	authUC "github.com/fastygo/ava/usecase/auth"
	"github.com/fastygo/ava/usecase/provisioning"
)

// CookieConfig controls the draft cookie.
type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

// PresignupHandler serves the society form shown before the admin account exists.
type PresignupHandler struct {
	baseHandler
	flow   *provisioning.Flow
	cookie CookieConfig
}

type presignupResult struct {
	Account *transport.AuthResponse `json:"account,omitempty"`
	Attempt *provisioning.Attempt   `json:"attempt"`
}

func NewPresignupHandler(flow *provisioning.Flow, cookie CookieConfig, adapter *httpcontext.Adapter, logger *zap.Logger) *PresignupHandler {
	if cookie.TTL <= 0 {
		cookie.TTL = 24 * time.Hour
	}
	return &PresignupHandler{
		baseHandler: newBaseHandler(adapter, logger),
		flow:        flow,
		cookie:      cookie,
	}
}

// @Summary Park the society form until the account exists
// @Tags presignup
// @Accept json
// @Router /api/v1/presignup/society [post]
func (h *PresignupHandler) SaveDraft(ctx *fasthttp.RequestCtx) {
	var form domain.SocietyForm
	if !h.decode(ctx, &form) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	draft, err := h.flow.SaveDraft(stdCtx, form)
	if err != nil {
		h.respondError(ctx, err, nil)
		return
	}

	h.setDraftCookie(ctx, draft.ID)
	nav := domain.RedirectTo("/auth?mode=signup&role=admin").Pushed()
	h.respondNavigation(ctx, http.StatusCreated, toDraftResponse(draft), &nav)
}

// @Summary Load the parked society form
// @Tags presignup
// @Router /api/v1/presignup/society [get]
func (h *PresignupHandler) LoadDraft(ctx *fasthttp.RequestCtx) {
	draftID := h.draftID(ctx, string(ctx.QueryArgs().Peek("id")))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	draft, err := h.flow.LoadDraft(stdCtx, draftID)
	if err != nil {
		h.respondError(ctx, err, presignupNavigation(err))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, toDraftResponse(draft))
}

// @Summary Create the admin account and provision the parked society
// @Tags presignup
// @Accept json
// @Router /api/v1/presignup/complete [post]
func (h *PresignupHandler) Complete(ctx *fasthttp.RequestCtx) {
	var req transport.PresignupCompleteRequest
	if !h.decode(ctx, &req) {
		return
	}
	draftID := h.draftID(ctx, req.DraftID)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	attempt, err := h.flow.ProvisionAfterSignup(stdCtx, draftID, authUC.SignUpRequest{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})

	result := presignupResult{Attempt: attempt}
	if attempt != nil && attempt.Account != nil {
		account := toAuthResponse(attempt.Account)
		result.Account = &account
	}

	if err != nil {
		var data interface{}
		if attempt != nil {
			data = result
		}
		h.respondFailure(ctx, err, data, attemptNavigation(attempt))
		return
	}

	ctx.Response.Header.DelClientCookie(domain.PendingSocietyDraftKey)
	h.log(stdCtx).Info("society provisioned after signup", zap.String("draft_id", draftID))
	h.respondNavigation(ctx, http.StatusCreated, result, attempt.Navigation)
}

// draftID prefers an explicit id and falls back to the draft cookie.
func (h *PresignupHandler) draftID(ctx *fasthttp.RequestCtx, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return string(ctx.Request.Header.Cookie(domain.PendingSocietyDraftKey))
}

func (h *PresignupHandler) setDraftCookie(ctx *fasthttp.RequestCtx, draftID string) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(domain.PendingSocietyDraftKey)
	cookie.SetValue(draftID)
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(h.cookie.Secure)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	cookie.SetMaxAge(int(h.cookie.TTL.Seconds()))
	ctx.Response.Header.SetCookie(cookie)
}

func toDraftResponse(draft *domain.PendingSocietyDraft) transport.DraftResponse {
	return transport.DraftResponse{
		DraftID:   draft.ID,
		Form:      draft.Form,
		CreatedAt: draft.CreatedAt,
	}
}

func attemptData(attempt *provisioning.Attempt) interface{} {
	if attempt == nil {
		return nil
	}
	return attempt
}

func attemptNavigation(attempt *provisioning.Attempt) *domain.Navigation {
	if attempt == nil {
		return nil
	}
	return attempt.Navigation
}

// presignupNavigation sends the client back to the form when no draft is parked.
func presignupNavigation(err error) *domain.Navigation {
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil
	}
	nav := domain.NavigateTo(domain.TargetPresignupSetup)
	return &nav
}
