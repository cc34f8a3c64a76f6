package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/pkg/httpcontext"
	profileUC "github.com/fastygo/ava/usecase/profile"
)

type ProfileHandler struct {
	baseHandler
	uc *profileUC.UseCase
}

func NewProfileHandler(uc *profileUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Get profile
// @Tags profile
// @Success 200 {object} transport.Envelope
// @Router /api/v1/profile [get]
func (h *ProfileHandler) GetProfile(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.GetProfile(stdCtx, session.IdentityID())
	if err != nil {
		h.respondError(ctx, err, nil)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Update profile
// @Tags profile
// @Accept json
// @Produce json
// @Router /api/v1/profile [put]
func (h *ProfileHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	session, ok := h.session(ctx)
	if !ok {
		return
	}

	var req domain.ProfileUpdate
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, buffered, err := h.uc.UpdateProfile(stdCtx, session.IdentityID(), req)
	if err != nil {
		h.respondError(ctx, err, nil)
		return
	}

	status := http.StatusOK
	if buffered {
		h.log(stdCtx).Warn("profile update buffered")
		status = http.StatusAccepted
	}
	h.respondSuccess(ctx, status, transport.ProfileUpdateResponse{Profile: updated, Buffered: buffered})
}
