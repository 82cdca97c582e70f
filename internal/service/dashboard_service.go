package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/aligner-portal/internal/model"
)

// Unread holds the inbox badges for the landing page. Counts are only set
// for callers that have the inbox.
type Unread struct {
	Notifications   *int64 `json:"unreadNotifications,omitempty"`
	SpecialComments *int64 `json:"unreadSpecialComments,omitempty"`
}

type DashboardService struct {
	cases   *CaseService
	notes   NotificationStore
	special SpecialCommentStore
}

func NewDashboardService(cases *CaseService, notes NotificationStore, special SpecialCommentStore) *DashboardService {
	return &DashboardService{cases: cases, notes: notes, special: special}
}

// Stats aggregates the cases visible to a. The result only changes when
// cases do, so the route serving it may be cached.
func (s *DashboardService) Stats(ctx context.Context, a Actor) (model.CaseStats, error) {
	scope, err := s.cases.scopeFor(ctx, a)
	if err != nil {
		return model.CaseStats{}, err
	}
	stats, err := s.cases.st.Cases.Stats(ctx, scope)
	if err != nil {
		return model.CaseStats{}, fmt.Errorf("case stats: %w", err)
	}
	return stats, nil
}

// Unread counts the caller's unread notifications and, for admins, unread
// special comments. It reads the stores on every call.
func (s *DashboardService) Unread(ctx context.Context, a Actor) (Unread, error) {
	var u Unread
	if aud, err := audienceFor(a); err == nil {
		n, err := s.notes.CountUnread(ctx, aud)
		if err != nil {
			return Unread{}, fmt.Errorf("unread notifications: %w", err)
		}
		u.Notifications = &n
	}
	if a.IsAdmin() {
		n, err := s.special.CountUnread(ctx, a.ID)
		if err != nil {
			return Unread{}, fmt.Errorf("unread special comments: %w", err)
		}
		u.SpecialComments = &n
	}
	return u, nil
}
