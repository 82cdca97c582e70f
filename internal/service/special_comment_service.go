package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
)

// SpecialCommentService broadcasts production comments among admins.
type SpecialCommentService struct {
	st   Stores
	gate *Gate
	log  *zap.Logger
	m    *metrics.Collector
	now  func() time.Time
}

func NewSpecialCommentService(st Stores, gate *Gate, log *zap.Logger, m *metrics.Collector) *SpecialCommentService {
	return &SpecialCommentService{st: st, gate: gate, log: log, m: m, now: func() time.Time { return time.Now().UTC() }}
}

type SpecialCommentInput struct {
	Title     string
	Comment   string
	PatientID *primitive.ObjectID
	DoctorID  *uint64
}

func validateSpecial(title, comment string) error {
	var bad []string
	if title == "" {
		bad = append(bad, "title is required")
	}
	if comment == "" {
		bad = append(bad, "comment is required")
	}
	return invalid(bad...)
}

// Create stores a comment and seeds one unread receipt per admin that
// exists right now. Admins created later never get a receipt for it.
func (s *SpecialCommentService) Create(ctx context.Context, a Actor, in SpecialCommentInput) (model.SpecialComment, error) {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapSpecialComment); err != nil {
		return model.SpecialComment{}, err
	}
	in.Title, in.Comment = strings.TrimSpace(in.Title), strings.TrimSpace(in.Comment)
	if err := validateSpecial(in.Title, in.Comment); err != nil {
		return model.SpecialComment{}, err
	}
	doctorID := in.DoctorID
	if in.PatientID != nil {
		p, err := s.st.Cases.GetByID(ctx, *in.PatientID)
		if err != nil {
			return model.SpecialComment{}, err
		}
		if doctorID == nil {
			owner := p.UserID
			doctorID = &owner
		}
	}

	admins, err := s.st.Users.ListByRoles(ctx, model.RoleAdmin, model.RoleSuperAdmin)
	if err != nil {
		return model.SpecialComment{}, fmt.Errorf("list admins: %w", err)
	}
	receipts := make([]model.ReadReceipt, 0, len(admins))
	for _, u := range admins {
		receipts = append(receipts, model.ReadReceipt{AdminID: u.ID, AdminName: u.Name})
	}

	now := s.now()
	sc := model.SpecialComment{
		Title:     in.Title,
		Comment:   in.Comment,
		CreatedBy: a.ID,
		PatientID: in.PatientID,
		DoctorID:  doctorID,
		ReadBy:    receipts,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.SpecialComments.Create(ctx, &sc); err != nil {
		return model.SpecialComment{}, fmt.Errorf("create special comment: %w", err)
	}
	s.m.SpecialCommentCreated()
	return sc, nil
}

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return repository.ErrForbidden
	}
	return nil
}

// List returns active comments, newest first.
func (s *SpecialCommentService) List(ctx context.Context, a Actor) ([]model.SpecialComment, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	return s.st.SpecialComments.ListActive(ctx)
}

// UnreadCount counts active comments the caller has a pending receipt for.
func (s *SpecialCommentService) UnreadCount(ctx context.Context, a Actor) (int64, error) {
	if err := requireAdmin(a); err != nil {
		return 0, err
	}
	return s.st.SpecialComments.CountUnread(ctx, a.ID)
}

// MarkRead stamps the caller's receipt. No receipt, or one already read,
// is ErrNotFound.
func (s *SpecialCommentService) MarkRead(ctx context.Context, a Actor, id primitive.ObjectID) error {
	if err := requireAdmin(a); err != nil {
		return err
	}
	return s.st.SpecialComments.MarkRead(ctx, id, a.ID, s.now())
}

func (s *SpecialCommentService) Update(ctx context.Context, a Actor, id primitive.ObjectID, title, comment string) (model.SpecialComment, error) {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapSpecialComment); err != nil {
		return model.SpecialComment{}, err
	}
	title, comment = strings.TrimSpace(title), strings.TrimSpace(comment)
	if err := validateSpecial(title, comment); err != nil {
		return model.SpecialComment{}, err
	}
	return s.st.SpecialComments.Update(ctx, id, title, comment)
}

// Deactivate soft-deletes a comment.
func (s *SpecialCommentService) Deactivate(ctx context.Context, a Actor, id primitive.ObjectID) error {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapSpecialComment); err != nil {
		return err
	}
	return s.st.SpecialComments.Deactivate(ctx, id)
}
