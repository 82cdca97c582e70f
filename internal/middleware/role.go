package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/aligner-portal/internal/model"
    "github.com/iliyamo/aligner-portal/internal/service"
)

// RequireRole returns a middleware that only lets callers holding one of
// roles through. Listing model.RoleAdmin also admits the super-admin. It
// must run after Authenticate; a request without an actor is answered
// with 401 and a disallowed role with 403.
func RequireRole(gate *service.Gate, roles ...model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            a, ok := ActorFrom(c)
            if !ok {
                return unauthorized(c, "missing bearer token")
            }
            if err := gate.RequireRole(a, roles...); err != nil {
                return deny(c, http.StatusForbidden, "forbidden")
            }
            return next(c)
        }
    }
}
