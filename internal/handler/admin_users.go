package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/service"
)

// AdminHandler serves account management for admins and the super-admin.
// Capability and role checks live in the service.
type AdminHandler struct {
	Accounts *service.UserService
	Log      *zap.Logger
}

func NewAdminHandler(accounts *service.UserService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Accounts: accounts, Log: log}
}

type accountReq struct {
	Name         string                  `json:"name"`
	Email        string                  `json:"email"`
	Password     string                  `json:"password"`
	Capabilities []string                `json:"capabilities"`
	Access       model.DistributerAccess `json:"access"`
}

func (r accountReq) input() service.AccountInput {
	return service.AccountInput{Name: r.Name, Email: r.Email, Password: r.Password}
}

type capabilitiesReq struct {
	Capabilities []string `json:"capabilities"`
}

type passwordReq struct {
	Password string `json:"password"`
}

type accessReq struct {
	Access model.DistributerAccess `json:"access"`
}

type suspendReq struct {
	Suspended bool `json:"suspended"`
}

type assignDistributerReq struct {
	DistributerID *uint64 `json:"distributerId"`
}

// CreateAdmin is super-admin only.
func (h *AdminHandler) CreateAdmin(c echo.Context) error {
	var req accountReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Accounts.CreateAdmin(ctx, actor(c), req.input(), req.Capabilities)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": p})
}

func (h *AdminHandler) SetCapabilities(c echo.Context) error {
	id, err := uintParam(c, "userId")
	if err != nil {
		return nil
	}
	var req capabilitiesReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Accounts.SetCapabilities(ctx, actor(c), id, req.Capabilities)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": p})
}

func (h *AdminHandler) ResetPassword(c echo.Context) error {
	id, err := uintParam(c, "userId")
	if err != nil {
		return nil
	}
	var req passwordReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.ResetAdminPassword(ctx, actor(c), id, req.Password); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "password reset"})
}

func (h *AdminHandler) CreatePlanner(c echo.Context) error {
	var req accountReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Accounts.CreatePlanner(ctx, actor(c), req.input())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": p})
}

func (h *AdminHandler) CreateDistributer(c echo.Context) error {
	var req accountReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Accounts.CreateDistributer(ctx, actor(c), req.input(), req.Access)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": p})
}

func (h *AdminHandler) SetDistributerAccess(c echo.Context) error {
	id, err := uintParam(c, "distributerId")
	if err != nil {
		return nil
	}
	var req accessReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.SetDistributerAccess(ctx, actor(c), id, req.Access); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "access updated"})
}

func (h *AdminHandler) SetSuspended(c echo.Context) error {
	id, err := uintParam(c, "userId")
	if err != nil {
		return nil
	}
	var req suspendReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.SetSuspended(ctx, actor(c), id, req.Suspended); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"suspended": req.Suspended})
}

// AssignDistributer scopes a doctor to a distributer; a null id clears it.
func (h *AdminHandler) AssignDistributer(c echo.Context) error {
	id, err := uintParam(c, "userId")
	if err != nil {
		return nil
	}
	var req assignDistributerReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.AssignDistributer(ctx, actor(c), id, req.DistributerID); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "distributer updated"})
}

// ListUsers requires ?role=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Accounts.List(ctx, actor(c), model.Role(c.QueryParam("role")))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": users})
}
