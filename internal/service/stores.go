package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/aligner-portal/internal/model"
	"github.com/iliyamo/aligner-portal/internal/storage"
)

type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListByRoles(ctx context.Context, roles ...model.Role) ([]model.User, error)
	ListDoctorsByDistributer(ctx context.Context, distributerID uint64) ([]model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	UpdateCapabilities(ctx context.Context, id uint64, caps model.Capability) error
	SetSuspended(ctx context.Context, id uint64, suspended bool) error
	SetDistributer(ctx context.Context, doctorID uint64, distributerID *uint64) error
}

type DistributerStore interface {
	Create(ctx context.Context, d model.Distributer) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Distributer, error)
	GetByEmail(ctx context.Context, email string) (model.Distributer, error)
	List(ctx context.Context) ([]model.Distributer, error)
	UpdateAccess(ctx context.Context, id uint64, access model.DistributerAccess) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, sub model.Subject, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (model.Subject, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAll(ctx context.Context, sub model.Subject) error
}

type CaseStore interface {
	Create(ctx context.Context, p *model.Patient) error
	GetByID(ctx context.Context, id primitive.ObjectID) (model.Patient, error)
	List(ctx context.Context, q model.CaseQuery) ([]model.Patient, error)
	UpdateIntake(ctx context.Context, id primitive.ObjectID, name string, in model.Intake) (model.Patient, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string, unlockUpload bool) (model.Patient, error)
	SetProgress(ctx context.Context, id primitive.ObjectID, p model.ProgressStatus) (model.Patient, error)
	SetPrice(ctx context.Context, id primitive.ObjectID, total, received *int64) (model.Patient, error)
	AssignPlanner(ctx context.Context, id primitive.ObjectID, plannerID uint64, deadline *time.Time) (model.Patient, error)
	SetSTLFile(ctx context.Context, id primitive.ObjectID, url, key string) (model.Patient, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context, scope model.CaseScope) (model.CaseStats, error)
}

type CommentStore interface {
	Append(ctx context.Context, patientID primitive.ObjectID, patientName string, e model.CommentEntry) (primitive.ObjectID, model.CommentEntry, error)
	GetByPatient(ctx context.Context, patientID primitive.ObjectID) (model.PatientComment, error)
	UpdateEntry(ctx context.Context, patientID, commentID primitive.ObjectID, text string) error
	DeleteEntry(ctx context.Context, patientID, commentID primitive.ObjectID) error
	DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) error
}

type FileStore interface {
	Create(ctx context.Context, f *model.PatientFile) error
	GetByID(ctx context.Context, id primitive.ObjectID) (model.PatientFile, error)
	ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]model.PatientFile, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListFor(ctx context.Context, audience string) ([]model.Notification, error)
	CountUnread(ctx context.Context, audience string) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, audience string) (model.Notification, error)
	DeleteByPatient(ctx context.Context, patientID primitive.ObjectID) error
}

type SpecialCommentStore interface {
	Create(ctx context.Context, s *model.SpecialComment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (model.SpecialComment, error)
	ListActive(ctx context.Context) ([]model.SpecialComment, error)
	CountUnread(ctx context.Context, adminID uint64) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, adminID uint64, at time.Time) error
	Update(ctx context.Context, id primitive.ObjectID, title, comment string) (model.SpecialComment, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

type CategoryStore interface {
	Create(ctx context.Context, c *model.CaseCategory) error
	List(ctx context.Context) ([]model.CaseCategory, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// BlobStore is the object storage behind case files.
type BlobStore interface {
	PresignPut(ctx context.Context, key, contentType string) (storage.Upload, error)
	Delete(ctx context.Context, key string) error
}

// Stores groups every persistence dependency the services share.
type Stores struct {
	Users           UserStore
	Distributers    DistributerStore
	Tokens          TokenStore
	Cases           CaseStore
	Comments        CommentStore
	Files           FileStore
	Notifications   NotificationStore
	SpecialComments SpecialCommentStore
	Categories      CategoryStore
	Blobs           BlobStore
}
