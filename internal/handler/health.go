package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
)

// Pinger is anything the health check can probe: *sql.DB via PingContext,
// or a small adapter around the Mongo client.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness plus the state of each backing store.
type HealthHandler struct {
    Checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
    return &HealthHandler{Checks: checks}
}

// Health is used by load balancers and monitoring systems. It answers 200
// when every dependency responds and 503 with the failing names otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    status := map[string]string{}
    healthy := true
    for name, p := range h.Checks {
        if err := p.PingContext(ctx); err != nil {
            status[name] = "down"
            healthy = false
            continue
        }
        status[name] = "up"
    }
    if !healthy {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "error": "degraded", "checks": status})
    }
    return ok(c, http.StatusOK, echo.Map{"status": "ok", "checks": status})
}
