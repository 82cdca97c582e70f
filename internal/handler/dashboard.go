package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/service"
)

type DashboardHandler struct {
	Dashboard *service.DashboardService
	Log       *zap.Logger
}

func NewDashboardHandler(d *service.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{Dashboard: d, Log: log}
}

// Get returns the caller-scoped case aggregate. The route may be cached.
func (h *DashboardHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.Dashboard.Stats(ctx, actor(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": stats})
}

// Unread returns the caller's inbox badges. It is never cached.
func (h *DashboardHandler) Unread(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Dashboard.Unread(ctx, actor(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": u})
}
