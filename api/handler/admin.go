package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/pkg/httpcontext"
	adminUC "github.com/fastygo/ava/usecase/admin"
	"github.com/fastygo/ava/usecase/provisioning"
)

// AdminHandler serves the admin setup screen and society management.
type AdminHandler struct {
	baseHandler
	flow *provisioning.Flow
	uc   *adminUC.UseCase
}

func NewAdminHandler(flow *provisioning.Flow, uc *adminUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(adapter, logger),
		flow:        flow,
		uc:          uc,
	}
}

// @Summary Check whether the admin already has a society
// @Tags admin
// @Router /api/v1/admin/setup [get]
func (h *AdminHandler) SetupStatus(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	status, err := h.flow.Status(stdCtx, session)
	if err != nil {
		h.respondError(ctx, err, nil)
		return
	}
	h.respondNavigation(ctx, http.StatusOK, status, status.Navigation)
}

// @Summary Create the admin's society and link the profile to it
// @Tags admin
// @Accept json
// @Router /api/v1/admin/setup [post]
func (h *AdminHandler) Setup(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	var form domain.SocietyForm
	if !h.decode(ctx, &form) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	attempt, err := h.flow.Provision(stdCtx, session, form)
	if err != nil {
		h.respondFailure(ctx, err, attemptData(attempt), attemptNavigation(attempt))
		return
	}

	status := http.StatusCreated
	if attempt.Existing {
		status = http.StatusOK
	}
	h.respondNavigation(ctx, status, attempt, attempt.Navigation)
}

// @Summary Get the admin's society
// @Tags admin
// @Router /api/v1/admin/society [get]
func (h *AdminHandler) GetSociety(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	society, err := h.uc.GetSociety(stdCtx, session)
	if err != nil {
		h.respondError(ctx, err, setupNavigation(err))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, society)
}

// @Summary Update the admin's society
// @Tags admin
// @Accept json
// @Router /api/v1/admin/society [put]
func (h *AdminHandler) UpdateSociety(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	var form domain.SocietyForm
	if !h.decode(ctx, &form) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	society, buffered, err := h.uc.UpdateSociety(stdCtx, session, form)
	if err != nil {
		h.respondError(ctx, err, setupNavigation(err))
		return
	}

	status := http.StatusOK
	if buffered {
		status = http.StatusAccepted
	}
	h.respondSuccess(ctx, status, transport.SocietyUpdateResponse{Society: society, Buffered: buffered})
}

// @Summary List the members of the admin's society
// @Tags admin
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Router /api/v1/admin/members [get]
func (h *AdminHandler) ListMembers(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	limit := queryInt(ctx, "limit")
	offset := queryInt(ctx, "offset")

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	members, err := h.uc.ListMembers(stdCtx, session, limit, offset)
	if err != nil {
		h.respondError(ctx, err, setupNavigation(err))
		return
	}
	if members == nil {
		members = []domain.UserProfile{}
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MembersResponse{Members: members, Limit: limit, Offset: offset})
}

// setupNavigation sends an admin without a society to the setup screen.
func setupNavigation(err error) *domain.Navigation {
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil
	}
	nav := domain.NavigateTo(domain.TargetAdminSetup)
	return &nav
}

func queryInt(ctx *fasthttp.RequestCtx, key string) int {
	value, err := strconv.Atoi(string(ctx.QueryArgs().Peek(key)))
	if err != nil {
		return 0
	}
	return value
}
