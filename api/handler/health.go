package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/internal/infrastructure/monitor"
	"github.com/fastygo/ava/pkg/httpcontext"
)

// StatusSource reports dependency health.
type StatusSource interface {
	GetStatus() monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
}

func NewHealthHandler(mon StatusSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"last_check": status.LastCheck,
		"services": map[string]interface{}{
			"postgresql": status.PostgreSQL,
			"redis":      status.Redis,
			"buffer": map[string]interface{}{
				"online":    status.Buffer,
				"size":      status.BufferSize,
				"by_entity": status.BufferByEntity,
			},
		},
	}

	if !status.Degraded() {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	env := transport.NewError("DEGRADED", "dependencies unhealthy", nil)
	env.Data = payload
	h.respondJSON(ctx, http.StatusServiceUnavailable, env)
}
