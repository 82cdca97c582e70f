package middleware // middleware provides shared request processing for handlers

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/aligner-portal/internal/metrics"
    "github.com/iliyamo/aligner-portal/internal/service"
)

// Authenticate returns an Echo middleware that resolves the Bearer access
// token through the gate and stores the caller in the request context.
// Handlers read it with ActorFrom; "user_id" and "role" are also set as
// plain strings for the cache and rate limiter keys.
func Authenticate(gate *service.Gate, m *metrics.Collector) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            res := gate.Authenticate(c.Request().Header.Get("Authorization"))
            if !res.Success {
                m.AuthFailure("unauthenticated")
                return unauthorized(c, res.Error)
            }
            setActor(c, res.Actor)
            return next(c)
        }
    }
}

// OptionalAuth stores the caller when a valid token is present and lets the
// request through either way. Logout uses it so a bare refresh token works.
func OptionalAuth(gate *service.Gate) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if h := c.Request().Header.Get("Authorization"); h != "" {
                if res := gate.Authenticate(h); res.Success {
                    setActor(c, res.Actor)
                }
            }
            return next(c)
        }
    }
}

func setActor(c echo.Context, a service.Actor) {
    c.Set(ctxActor, a)
    c.Set(ctxUserID, string(a.Kind)+"-"+strconv.FormatUint(a.ID, 10))
    c.Set(ctxRole, string(a.Role))
}
