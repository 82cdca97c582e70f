package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/service"
)

type CategoryHandler struct {
	Categories *service.CategoryService
	Log        *zap.Logger
}

func NewCategoryHandler(cats *service.CategoryService, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{Categories: cats, Log: log}
}

type categoryReq struct {
	Category string `json:"category"`
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cat, err := h.Categories.Create(ctx, actor(c), req.Category)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": cat})
}

func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	cats, err := h.Categories.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": cats})
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Categories.Delete(ctx, actor(c), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "category deleted"})
}
