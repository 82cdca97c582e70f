package model

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentedBy records who wrote a comment. Name is a role label ("Admin"
// or "Doctor"), not the author's real name.
type CommentedBy struct {
	User     uint64 `bson:"user" json:"user"`
	UserType Role   `bson:"userType" json:"userType"`
	Name     string `bson:"name" json:"name"`
}

// CommentEntry is one element of a case's comment log.
type CommentEntry struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Comment     string             `bson:"comment" json:"comment"`
	CommentedBy CommentedBy        `bson:"commentedBy" json:"commentedBy"`
	Datetime    time.Time          `bson:"datetime" json:"datetime"`
}

// PatientComment is the single comment document kept per case.
type PatientComment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID   primitive.ObjectID `bson:"patientId" json:"patientId"`
	PatientName string             `bson:"patientName" json:"patientName"`
	Comments    []CommentEntry     `bson:"comments" json:"comments"`
}

// CommenterLabel returns the display label stored with a comment.
func CommenterLabel(r Role) string {
	if r.IsAdmin() {
		return "Admin"
	}
	return "Doctor"
}

type FileType string

const (
	FileImage FileType = "image"
	FilePDF   FileType = "pdf"
	FileVideo FileType = "video"
)

func (t FileType) IsValid() bool { return t == FileImage || t == FilePDF || t == FileVideo }

// Uploader labels who attached a file.
type Uploader string

const (
	UploadedByAdmin  Uploader = "Admin"
	UploadedByDoctor Uploader = "Doctor"
)

// PatientFile is an append-only attachment row in `patient_files`.
type PatientFile struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID  primitive.ObjectID `bson:"patientId" json:"patientId"`
	FileName   string             `bson:"fileName" json:"fileName"`
	FileType   FileType           `bson:"fileType" json:"fileType"`
	FileURL    string             `bson:"fileUrl" json:"fileUrl"`
	FileKey    string             `bson:"fileKey" json:"fileKey"`
	UploadedBy Uploader           `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// AdminAudience is the commentFor value addressed to every admin.
const AdminAudience = "admin"

// UserAudience is the commentFor value addressed to one user.
func UserAudience(id uint64) string { return strconv.FormatUint(id, 10) }

// Notification is an in-app notice. CommentFor is either AdminAudience or a
// user id produced by UserAudience.
type Notification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string             `bson:"title" json:"title"`
	PatientID        primitive.ObjectID `bson:"patientId" json:"patientId"`
	PatientCommentID primitive.ObjectID `bson:"patientCommentId" json:"patientCommentId"`
	CommentID        primitive.ObjectID `bson:"commentId" json:"commentId"`
	CommentFor       string             `bson:"commentFor" json:"commentFor"`
	CommentedBy      uint64             `bson:"commentedBy" json:"commentedBy"`
	Read             bool               `bson:"read" json:"read"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

// ReadReceipt tracks one admin's read state of a special comment.
type ReadReceipt struct {
	AdminID   uint64     `bson:"adminId" json:"adminId"`
	AdminName string     `bson:"adminName" json:"adminName"`
	ReadAt    *time.Time `bson:"readAt" json:"readAt"`
}

// SpecialComment is an admin-to-admin production comment.
type SpecialComment struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title     string              `bson:"title" json:"title"`
	Comment   string              `bson:"comment" json:"comment"`
	CreatedBy uint64              `bson:"createdBy" json:"createdBy"`
	PatientID *primitive.ObjectID `bson:"patientId,omitempty" json:"patientId,omitempty"`
	DoctorID  *uint64             `bson:"doctorId,omitempty" json:"doctorId,omitempty"`
	ReadBy    []ReadReceipt       `bson:"readBy" json:"readBy"`
	IsActive  bool                `bson:"isActive" json:"isActive"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// UnreadBy reports whether adminID has a receipt that is still unread.
func (s SpecialComment) UnreadBy(adminID uint64) bool {
	for _, r := range s.ReadBy {
		if r.AdminID == adminID {
			return r.ReadAt == nil
		}
	}
	return false
}

// CaseCategory is an admin-maintained label for cases.
type CaseCategory struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Category  string             `bson:"category" json:"category"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
