package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
)

// NotificationService is the in-app notification read model.
type NotificationService struct {
	notes NotificationStore
}

func NewNotificationService(notes NotificationStore) *NotificationService {
	return &NotificationService{notes: notes}
}

// audienceFor maps a caller to its commentFor value. Only admins and
// doctors have an inbox.
func audienceFor(a Actor) (string, error) {
	switch {
	case a.IsAdmin():
		return model.AdminAudience, nil
	case a.IsDoctor():
		return model.UserAudience(a.ID), nil
	}
	return "", repository.ErrForbidden
}

// List returns the caller's notifications, unread first then newest first.
func (s *NotificationService) List(ctx context.Context, a Actor) ([]model.Notification, error) {
	aud, err := audienceFor(a)
	if err != nil {
		return nil, err
	}
	return s.notes.ListFor(ctx, aud)
}

// UnreadCount counts the caller's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, a Actor) (int64, error) {
	aud, err := audienceFor(a)
	if err != nil {
		return 0, err
	}
	return s.notes.CountUnread(ctx, aud)
}

// MarkRead flips one notification to read. A second call for the same id
// fails with ErrNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, a Actor, id primitive.ObjectID) (model.Notification, error) {
	aud, err := audienceFor(a)
	if err != nil {
		return model.Notification{}, err
	}
	return s.notes.MarkRead(ctx, id, aud)
}
