package middleware

// identity.go holds the request-context keys that Authenticate fills in and
// the helpers other middleware and handlers use to read them back.

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/aligner-portal/internal/service"
)

const (
    ctxActor  = "actor"
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// ActorFrom returns the authenticated caller stored by Authenticate.
func ActorFrom(c echo.Context) (service.Actor, bool) {
    a, ok := c.Get(ctxActor).(service.Actor)
    return a, ok
}

// userID returns a stable identifier for rate-limit and cache keys. Users
// and distributers have independent id sequences so the kind is part of
// it. Unauthenticated requests yield "guest".
func userID(c echo.Context) string {
    if v, ok := c.Get(ctxUserID).(string); ok && v != "" {
        return v
    }
    return "guest"
}

// deny writes the standard failure envelope.
func deny(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "error": msg})
}

func unauthorized(c echo.Context, msg string) error { return deny(c, http.StatusUnauthorized, msg) }
