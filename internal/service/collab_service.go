package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/notify"
	"github.com/iliyamo/aligner-portal/internal/repository"
)

const maxCommentLen = 5000

// CollabService is the per-case comment and file ledger. Only admins and
// the owning doctor take part; every other caller gets ErrForbidden, never
// an empty list.
type CollabService struct {
	st     Stores
	gate   *Gate
	mailer *Mailer
	log    *zap.Logger
	m      *metrics.Collector
}

func NewCollabService(st Stores, gate *Gate, mailer *Mailer, log *zap.Logger, m *metrics.Collector) *CollabService {
	return &CollabService{st: st, gate: gate, mailer: mailer, log: log, m: m}
}

// participantCase loads a case for an admin or its owning doctor.
func (s *CollabService) participantCase(ctx context.Context, a Actor, id primitive.ObjectID) (model.Patient, error) {
	if !a.IsAdmin() && !a.IsDoctor() {
		return model.Patient{}, repository.ErrForbidden
	}
	p, err := s.st.Cases.GetByID(ctx, id)
	if err != nil {
		return model.Patient{}, err
	}
	if a.IsDoctor() && !p.IsOwnedBy(a.ID) {
		return model.Patient{}, repository.ErrForbidden
	}
	return p, nil
}

// directionalRecipients: an admin's write goes to the owning doctor, a
// doctor's write goes to every admin.
func (s *CollabService) directionalRecipients(ctx context.Context, a Actor, p model.Patient) []string {
	if a.IsAdmin() {
		doc, err := s.st.Users.GetByID(ctx, p.UserID)
		if err != nil {
			s.log.Warn("recipient lookup: owning doctor", zap.String("case_id", p.CaseID), zap.Error(err))
			return nil
		}
		return notify.Dedupe(doc.Email)
	}
	addrs, err := adminAddresses(ctx, s.st.Users)
	if err != nil {
		s.log.Warn("recipient lookup: admins", zap.String("case_id", p.CaseID), zap.Error(err))
	}
	return notify.Dedupe(addrs...)
}

// AddComment appends to the case's comment log, creating it on first use,
// and returns only the new entry. It writes one in-app notification for
// the other side and sends one e-mail in the same direction.
func (s *CollabService) AddComment(ctx context.Context, a Actor, patientID primitive.ObjectID, text string) (model.CommentEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.CommentEntry{}, invalid("comment is required")
	}
	if len(text) > maxCommentLen {
		return model.CommentEntry{}, invalid(fmt.Sprintf("comment must be at most %d characters", maxCommentLen))
	}
	p, err := s.participantCase(ctx, a, patientID)
	if err != nil {
		return model.CommentEntry{}, err
	}

	entry := model.CommentEntry{
		ID:      primitive.NewObjectID(),
		Comment: text,
		CommentedBy: model.CommentedBy{
			User:     a.ID,
			UserType: a.Role,
			Name:     model.CommenterLabel(a.Role),
		},
		Datetime: time.Now().UTC(),
	}
	docID, saved, err := s.st.Comments.Append(ctx, p.ID, p.PatientName, entry)
	if err != nil {
		return model.CommentEntry{}, fmt.Errorf("append comment: %w", err)
	}
	s.m.CommentAdded(string(a.Role))

	audience := model.AdminAudience
	if a.IsAdmin() {
		audience = model.UserAudience(p.UserID)
	}
	n := model.Notification{
		Title:            fmt.Sprintf("New comment on case %s", p.CaseID),
		PatientID:        p.ID,
		PatientCommentID: docID,
		CommentID:        saved.ID,
		CommentFor:       audience,
		CommentedBy:      a.ID,
		CreatedAt:        saved.Datetime,
	}
	if err := s.st.Notifications.Create(ctx, &n); err != nil {
		// the comment is the source of truth; the notice is best-effort
		s.log.Warn("notification write failed", zap.String("case_id", p.CaseID), zap.Error(err))
	}

	s.mailer.Deliver(ctx, notify.Email{
		To:      s.directionalRecipients(ctx, a, p),
		Subject: fmt.Sprintf("New comment on case %s", p.CaseID),
		HTML: notify.CommentAddedHTML(notify.CaseEvent{
			CaseID:      p.CaseID,
			PatientName: p.PatientName,
			Actor:       saved.CommentedBy.Name,
			Text:        text,
		}),
	})
	return saved, nil
}

// ListComments returns the case's comments in insertion order.
func (s *CollabService) ListComments(ctx context.Context, a Actor, patientID primitive.ObjectID) ([]model.CommentEntry, error) {
	if _, err := s.participantCase(ctx, a, patientID); err != nil {
		return nil, err
	}
	doc, err := s.st.Comments.GetByPatient(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return []model.CommentEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if doc.Comments == nil {
		return []model.CommentEntry{}, nil
	}
	return doc.Comments, nil
}

// EditComment rewrites one entry. Requires the comment_update capability.
func (s *CollabService) EditComment(ctx context.Context, a Actor, patientID, commentID primitive.ObjectID, text string) error {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapCommentUpdate); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return invalid("comment is required")
	}
	if len(text) > maxCommentLen {
		return invalid(fmt.Sprintf("comment must be at most %d characters", maxCommentLen))
	}
	return s.st.Comments.UpdateEntry(ctx, patientID, commentID, text)
}

// DeleteComment removes one entry. Requires the comment_update capability.
func (s *CollabService) DeleteComment(ctx context.Context, a Actor, patientID, commentID primitive.ObjectID) error {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapCommentUpdate); err != nil {
		return err
	}
	return s.st.Comments.DeleteEntry(ctx, patientID, commentID)
}

type FileInput struct {
	FileName string
	FileType model.FileType
	FileURL  string
	FileKey  string
}

// AddFile stores a new attachment row and mails the other side.
func (s *CollabService) AddFile(ctx context.Context, a Actor, patientID primitive.ObjectID, in FileInput) (model.PatientFile, error) {
	in.FileName = strings.TrimSpace(in.FileName)
	in.FileURL = strings.TrimSpace(in.FileURL)
	in.FileKey = strings.TrimSpace(in.FileKey)
	var bad []string
	if in.FileName == "" {
		bad = append(bad, "fileName is required")
	}
	if in.FileURL == "" {
		bad = append(bad, "fileUrl is required")
	}
	if !in.FileType.IsValid() {
		bad = append(bad, "fileType must be one of: image, pdf, video")
	}
	if err := invalid(bad...); err != nil {
		return model.PatientFile{}, err
	}
	p, err := s.participantCase(ctx, a, patientID)
	if err != nil {
		return model.PatientFile{}, err
	}

	by := model.UploadedByDoctor
	if a.IsAdmin() {
		by = model.UploadedByAdmin
	}
	f := model.PatientFile{
		PatientID:  p.ID,
		FileName:   in.FileName,
		FileType:   in.FileType,
		FileURL:    in.FileURL,
		FileKey:    in.FileKey,
		UploadedBy: by,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.st.Files.Create(ctx, &f); err != nil {
		return model.PatientFile{}, fmt.Errorf("create file: %w", err)
	}
	s.m.FileAdded()

	s.mailer.Deliver(ctx, notify.Email{
		To:      s.directionalRecipients(ctx, a, p),
		Subject: fmt.Sprintf("New file on case %s", p.CaseID),
		HTML: notify.FileAddedHTML(notify.CaseEvent{
			CaseID:      p.CaseID,
			PatientName: p.PatientName,
			Actor:       string(by),
			Text:        f.FileName,
		}),
	})
	return f, nil
}

// ListFiles returns a case's attachments in upload order.
func (s *CollabService) ListFiles(ctx context.Context, a Actor, patientID primitive.ObjectID) ([]model.PatientFile, error) {
	if _, err := s.participantCase(ctx, a, patientID); err != nil {
		return nil, err
	}
	return s.st.Files.ListByPatient(ctx, patientID)
}

// DeleteFile removes an attachment and, best-effort, its blob.
func (s *CollabService) DeleteFile(ctx context.Context, a Actor, patientID, fileID primitive.ObjectID) error {
	if _, err := s.participantCase(ctx, a, patientID); err != nil {
		return err
	}
	f, err := s.st.Files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if f.PatientID != patientID {
		return repository.ErrNotFound
	}
	if err := s.st.Files.Delete(ctx, fileID); err != nil {
		return err
	}
	deleteBlob(ctx, s.st.Blobs, f.FileKey, s.log)
	return nil
}
