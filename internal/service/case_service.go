package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/repository"
	"github.com/iliyamo/aligner-portal/internal/storage"
)

const (
	maxStatusLen     = 64
	defaultListLimit = 50
	maxListLimit     = 200
)

// CaseService owns case records and the status workflow.
type CaseService struct {
	st     Stores
	gate   *Gate
	mailer *Mailer
	strict bool
	log    *zap.Logger
	m      *metrics.Collector
}

func NewCaseService(st Stores, gate *Gate, mailer *Mailer, strictStatus bool, log *zap.Logger, m *metrics.Collector) *CaseService {
	return &CaseService{st: st, gate: gate, mailer: mailer, strict: strictStatus, log: log, m: m}
}

type CreateCaseInput struct {
	PatientName string
	Intake      model.Intake
	DoctorID    uint64 // required when an admin creates on a doctor's behalf
}

// newCaseID returns a short human-readable id such as AL-3F9A0C1B.
func newCaseID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "AL-" + strings.ToUpper(raw[:8])
}

// Create submits a new case. Doctors create for themselves; admins must
// name the owning doctor.
func (s *CaseService) Create(ctx context.Context, a Actor, in CreateCaseInput) (model.Patient, error) {
	name := strings.TrimSpace(in.PatientName)
	if name == "" {
		return model.Patient{}, invalid("patientName is required")
	}
	var owner uint64
	switch {
	case a.IsDoctor():
		owner = a.ID
	case a.IsAdmin():
		if in.DoctorID == 0 {
			return model.Patient{}, invalid("doctorId is required")
		}
		doc, err := s.st.Users.GetByID(ctx, in.DoctorID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && doc.Role != model.RoleDoctor) {
			return model.Patient{}, invalid("doctorId must reference a doctor")
		}
		if err != nil {
			return model.Patient{}, fmt.Errorf("load doctor: %w", err)
		}
		owner = doc.ID
	default:
		return model.Patient{}, repository.ErrForbidden
	}

	now := time.Now().UTC()
	p := model.Patient{
		CaseID:         newCaseID(),
		PatientName:    name,
		Intake:         in.Intake,
		CaseStatus:     model.StatusSetupPending,
		ProgressStatus: model.ProgressInProgress,
		UserID:         owner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.st.Cases.Create(ctx, &p)
	if errors.Is(err, repository.ErrConflict) {
		// caseId collision, one retry with a fresh id
		p.CaseID = newCaseID()
		p.ID = primitive.NilObjectID
		err = s.st.Cases.Create(ctx, &p)
	}
	if err != nil {
		return model.Patient{}, fmt.Errorf("create case: %w", err)
	}
	s.m.CaseCreated()
	return p, nil
}

// scopeFor returns the case scope visible to a.
func (s *CaseService) scopeFor(ctx context.Context, a Actor) (model.CaseScope, error) {
	switch {
	case a.IsAdmin():
		return model.CaseScope{}, nil
	case a.IsDoctor():
		return model.CaseScope{OwnerIDs: []uint64{a.ID}}, nil
	case a.IsPlanner():
		id := a.ID
		return model.CaseScope{PlannerID: &id}, nil
	case a.IsDistributor():
		docs, err := s.st.Users.ListDoctorsByDistributer(ctx, a.ID)
		if err != nil {
			return model.CaseScope{}, fmt.Errorf("list scoped doctors: %w", err)
		}
		ids := make([]uint64, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		return model.CaseScope{OwnerIDs: ids}, nil
	}
	return model.CaseScope{}, repository.ErrForbidden
}

// canSee reports whether a may read p.
func (s *CaseService) canSee(ctx context.Context, a Actor, p model.Patient) (bool, error) {
	switch {
	case a.IsAdmin():
		return true, nil
	case a.IsDoctor():
		return p.IsOwnedBy(a.ID), nil
	case a.IsPlanner():
		return p.IsAssignedTo(a.ID), nil
	case a.IsDistributor():
		return s.scopedToDistributer(ctx, a.ID, p)
	}
	return false, nil
}

func (s *CaseService) scopedToDistributer(ctx context.Context, distID uint64, p model.Patient) (bool, error) {
	doc, err := s.st.Users.GetByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load case owner: %w", err)
	}
	return doc.DistributerID != nil && *doc.DistributerID == distID, nil
}

// Get returns one case if a may see it.
func (s *CaseService) Get(ctx context.Context, a Actor, id primitive.ObjectID) (model.Patient, error) {
	p, err := s.st.Cases.GetByID(ctx, id)
	if err != nil {
		return model.Patient{}, err
	}
	ok, err := s.canSee(ctx, a, p)
	if err != nil {
		return model.Patient{}, err
	}
	if !ok {
		return model.Patient{}, repository.ErrForbidden
	}
	return p, nil
}

// List returns the caller's visible cases, newest first.
func (s *CaseService) List(ctx context.Context, a Actor, q model.CaseQuery) ([]model.Patient, error) {
	scope, err := s.scopeFor(ctx, a)
	if err != nil {
		return nil, err
	}
	q.Scope = scope
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	q.CaseStatus = strings.TrimSpace(q.CaseStatus)
	q.Search = strings.TrimSpace(q.Search)
	return s.st.Cases.List(ctx, q)
}

// loadOwned returns the case when a is an admin or its owning doctor.
func (s *CaseService) loadOwned(ctx context.Context, a Actor, id primitive.ObjectID) (model.Patient, error) {
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

// UpdateIntake replaces the intake form of a case.
func (s *CaseService) UpdateIntake(ctx context.Context, a Actor, id primitive.ObjectID, patientName string, in model.Intake) (model.Patient, error) {
	name := strings.TrimSpace(patientName)
	if name == "" {
		return model.Patient{}, invalid("patientName is required")
	}
	if _, err := s.loadOwned(ctx, a, id); err != nil {
		return model.Patient{}, err
	}
	return s.st.Cases.UpdateIntake(ctx, id, name, in)
}

// Delete removes a case and, best-effort, its comments, files,
// notifications and blobs.
func (s *CaseService) Delete(ctx context.Context, a Actor, id primitive.ObjectID) error {
	p, err := s.loadOwned(ctx, a, id)
	if err != nil {
		return err
	}
	files, ferr := s.st.Files.ListByPatient(ctx, id)
	if err := s.st.Cases.Delete(ctx, id); err != nil {
		return err
	}

	log := s.log.With(zap.String("case_id", p.CaseID))
	if ferr != nil {
		log.Warn("list files for cascade failed", zap.Error(ferr))
	}
	keys := make([]string, 0, len(files)+1)
	for _, f := range files {
		keys = append(keys, f.FileKey)
	}
	keys = append(keys, p.STLFile.Key)
	for _, k := range keys {
		deleteBlob(ctx, s.st.Blobs, k, log)
	}
	if err := s.st.Files.DeleteByPatient(ctx, id); err != nil {
		log.Warn("file cascade failed", zap.Error(err))
	}
	if err := s.st.Comments.DeleteByPatient(ctx, id); err != nil {
		log.Warn("comment cascade failed", zap.Error(err))
	}
	if err := s.st.Notifications.DeleteByPatient(ctx, id); err != nil {
		log.Warn("notification cascade failed", zap.Error(err))
	}
	return nil
}

// normalizeStatus trims and validates an incoming status token. Known
// tokens are canonicalized in both modes.
func (s *CaseService) normalizeStatus(raw string) (string, error) {
	st := strings.TrimSpace(raw)
	if st == "" {
		return "", invalid("caseStatus is required")
	}
	if len(st) > maxStatusLen {
		return "", invalid(fmt.Sprintf("caseStatus must be at most %d characters", maxStatusLen))
	}
	if known, ok := knownStatus(st); ok {
		return known, nil
	}
	if s.strict {
		return "", invalid("caseStatus must be one of: " + strings.Join(model.KnownStatuses, ", "))
	}
	return st, nil
}

// knownStatus matches st case-insensitively against the vocabulary and
// returns the canonical token, so "Approved" is stored as "approved".
func knownStatus(st string) (string, bool) {
	for _, k := range model.KnownStatuses {
		if strings.EqualFold(k, st) {
			return k, true
		}
	}
	return "", false
}

// SetPrice updates total and/or received. The store applies both fields and
// recomputes pending in a single write.
func (s *CaseService) SetPrice(ctx context.Context, a Actor, id primitive.ObjectID, total, received *int64) (model.Patient, error) {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapPriceUpdate); err != nil {
		return model.Patient{}, err
	}
	var bad []string
	if total == nil && received == nil {
		bad = append(bad, "total or received is required")
	}
	if total != nil && *total < 0 {
		bad = append(bad, "total must not be negative")
	}
	if received != nil && *received < 0 {
		bad = append(bad, "received must not be negative")
	}
	if err := invalid(bad...); err != nil {
		return model.Patient{}, err
	}
	return s.st.Cases.SetPrice(ctx, id, total, received)
}

// AssignPlanner puts a case on a planner's queue.
func (s *CaseService) AssignPlanner(ctx context.Context, a Actor, id primitive.ObjectID, plannerID uint64, deadline *time.Time) (model.Patient, error) {
	if _, err := s.gate.RequireCapability(ctx, a, model.CapPlanner); err != nil {
		return model.Patient{}, err
	}
	if plannerID == 0 {
		return model.Patient{}, invalid("plannerId is required")
	}
	pl, err := s.st.Users.GetByID(ctx, plannerID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && (pl.Role != model.RolePlanner || pl.IsSuspended)) {
		return model.Patient{}, invalid("plannerId must reference an active planner")
	}
	if err != nil {
		return model.Patient{}, fmt.Errorf("load planner: %w", err)
	}
	if _, err := s.st.Cases.GetByID(ctx, id); err != nil {
		return model.Patient{}, err
	}
	return s.st.Cases.AssignPlanner(ctx, id, plannerID, deadline)
}

// SetProgress updates the manufacturing progress of a case.
func (s *CaseService) SetProgress(ctx context.Context, a Actor, id primitive.ObjectID, progress model.ProgressStatus) (model.Patient, error) {
	if !progress.IsValid() {
		return model.Patient{}, invalid("progressStatus must be one of: in-progress, midway, completed")
	}
	if !a.IsAdmin() && !a.IsPlanner() {
		return model.Patient{}, repository.ErrForbidden
	}
	p, err := s.st.Cases.GetByID(ctx, id)
	if err != nil {
		return model.Patient{}, err
	}
	if a.IsPlanner() && !p.IsAssignedTo(a.ID) {
		return model.Patient{}, repository.ErrForbidden
	}
	return s.st.Cases.SetProgress(ctx, id, progress)
}

// AttachSTL records the scan upload. It fails with ErrConflict until the
// case has been approved.
func (s *CaseService) AttachSTL(ctx context.Context, a Actor, id primitive.ObjectID, url, key string) (model.Patient, error) {
	url, key = strings.TrimSpace(url), strings.TrimSpace(key)
	if url == "" {
		return model.Patient{}, invalid("url is required")
	}
	p, err := s.loadOwned(ctx, a, id)
	if err != nil {
		return model.Patient{}, err
	}
	if !p.STLFile.CanUpload {
		return model.Patient{}, fmt.Errorf("stl upload locked until approval: %w", repository.ErrConflict)
	}
	updated, err := s.st.Cases.SetSTLFile(ctx, id, url, key)
	if err != nil {
		return model.Patient{}, err
	}
	if old := p.STLFile.Key; old != key {
		deleteBlob(ctx, s.st.Blobs, old, s.log)
	}
	return updated, nil
}

// deleteBlob removes a stored object, logging instead of failing.
func deleteBlob(ctx context.Context, blobs BlobStore, key string, log *zap.Logger) {
	if key == "" || blobs == nil {
		return
	}
	if err := blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrDisabled) {
		log.Warn("blob delete failed", zap.String("key", key), zap.Error(err))
	}
}

// PresignUpload hands out a direct-to-bucket upload URL.
func (s *CaseService) PresignUpload(ctx context.Context, a Actor, fileName, contentType string) (storage.Upload, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return storage.Upload{}, invalid("fileName is required")
	}
	if s.st.Blobs == nil {
		return storage.Upload{}, ErrUnavailable
	}
	prefix := fmt.Sprintf("uploads/%s-%d", a.Kind, a.ID)
	up, err := s.st.Blobs.PresignPut(ctx, storage.ObjectKey(prefix, fileName), contentType)
	if errors.Is(err, storage.ErrDisabled) {
		return storage.Upload{}, ErrUnavailable
	}
	return up, err
}
