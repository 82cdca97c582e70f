package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/service"
)

// SpecialCommentHandler serves admin-to-admin broadcast comments.
type SpecialCommentHandler struct {
	Specials *service.SpecialCommentService
	Log      *zap.Logger
}

func NewSpecialCommentHandler(s *service.SpecialCommentService, log *zap.Logger) *SpecialCommentHandler {
	return &SpecialCommentHandler{Specials: s, Log: log}
}

type specialCommentReq struct {
	Title     string  `json:"title"`
	Comment   string  `json:"comment"`
	PatientID string  `json:"patientId"`
	DoctorID  *uint64 `json:"doctorId"`
}

func (h *SpecialCommentHandler) Create(c echo.Context) error {
	var req specialCommentReq
	if !bind(c, &req) {
		return nil
	}
	in := service.SpecialCommentInput{Title: req.Title, Comment: req.Comment, DoctorID: req.DoctorID}
	if req.PatientID != "" {
		pid, err := primitive.ObjectIDFromHex(req.PatientID)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid patientId")
		}
		in.PatientID = &pid
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sc, err := h.Specials.Create(ctx, actor(c), in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"data": sc})
}

// List returns active special comments and the caller's unread count.
func (h *SpecialCommentHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	a := actor(c)
	list, err := h.Specials.List(ctx, a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	unread, err := h.Specials.UnreadCount(ctx, a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": list, "unreadCount": unread})
}

// MarkRead stamps the caller's read receipt. It is not idempotent: a receipt
// that is already read answers 404, the same as a missing one, matching
// PATCH /notifications.
func (h *SpecialCommentHandler) MarkRead(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Specials.MarkRead(ctx, actor(c), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "marked as read"})
}

func (h *SpecialCommentHandler) Update(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	var req specialCommentReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sc, err := h.Specials.Update(ctx, actor(c), id, req.Title, req.Comment)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": sc})
}

// Delete soft-deletes by clearing isActive.
func (h *SpecialCommentHandler) Delete(c echo.Context) error {
	id, err := objectIDParam(c, "id")
	if err != nil {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Specials.Deactivate(ctx, actor(c), id); err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "special comment removed"})
}
