package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/aligner-portal/internal/middleware"
    "github.com/iliyamo/aligner-portal/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Auth *service.AuthService
    Log  *zap.Logger
}

func NewAuthHandler(a *service.AuthService, log *zap.Logger) *AuthHandler {
    return &AuthHandler{Auth: a, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}
type changePasswordReq struct {
    CurrentPassword string `json:"currentPassword"`
    NewPassword     string `json:"newPassword"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User    service.Profile `json:"user"`
    Access  tokenPart       `json:"access"`
    Refresh tokenPart       `json:"refresh"`
}

func sessionResp(s service.Session) authResp {
    return authResp{
        User:    s.Profile,
        Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
        Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp}, // raw back to client
    }
}

// Register: create a doctor account and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if !bind(c, &req) {
        return nil
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    s, err := h.Auth.Register(ctx, req.Name, req.Email, req.Password)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return ok(c, http.StatusCreated, echo.Map{"data": sessionResp(s)})
}

// Login: verify and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if !bind(c, &req) {
        return nil
    }
    if strings.TrimSpace(req.Email) == "" || req.Password == "" {
        return fail(c, http.StatusBadRequest, "email/password required")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    s, err := h.Auth.Login(ctx, req.Email, req.Password)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return ok(c, http.StatusOK, echo.Map{"data": sessionResp(s)})
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refresh_token required")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    s, err := h.Auth.Refresh(ctx, req.RefreshToken)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return ok(c, http.StatusOK, echo.Map{"data": sessionResp(s)})
}

// Logout revokes the refresh token in the body, or every session of the
// bearer when the body carries none. Mounted behind OptionalAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)

    var caller *service.Actor
    if a, found := middleware.ActorFrom(c); found {
        caller = &a
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Auth.Logout(ctx, req.RefreshToken, caller); err != nil {
        return respondError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Auth.Me(ctx, actor(c))
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return ok(c, http.StatusOK, echo.Map{"data": p})
}

// ChangePassword updates the caller's own password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
    var req changePasswordReq
    if !bind(c, &req) {
        return nil
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Auth.ChangePassword(ctx, actor(c), req.CurrentPassword, req.NewPassword); err != nil {
        return respondError(c, h.Log, err)
    }
    return ok(c, http.StatusOK, echo.Map{"message": "password updated"})
}
