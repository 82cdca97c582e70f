package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/service"
)

// NotificationHandler serves the in-app inbox.
type NotificationHandler struct {
	Inbox *service.NotificationService
	Log   *zap.Logger
}

func NewNotificationHandler(inbox *service.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Inbox: inbox, Log: log}
}

type markReadReq struct {
	NotificationID string `json:"notificationId"`
}

// List returns the caller's inbox, unread first, plus the unread count.
func (h *NotificationHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	a := actor(c)
	notes, err := h.Inbox.List(ctx, a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	unread, err := h.Inbox.UnreadCount(ctx, a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": notes, "unreadCount": unread})
}

// MarkRead flips one unread notification. Already read or unknown ids are 404.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	var req markReadReq
	if !bind(c, &req) {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(req.NotificationID)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid notificationId")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Inbox.MarkRead(ctx, actor(c), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": n})
}
