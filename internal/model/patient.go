package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Case status tokens seen in practice. The field itself is an open string;
// these are only the values the workflow gives meaning to.
const (
	StatusSetupPending          = "setup pending"
	StatusApprovalPending       = "approval pending"
	StatusApproved              = "approved"
	StatusModificationRequested = "modification requested"
	StatusInProduction          = "in production"
	StatusShipped               = "shipped"
	StatusCompleted             = "completed"
	StatusOnHold                = "on hold"
)

// KnownStatuses is the allow-list used when strict status checking is on.
var KnownStatuses = []string{
	StatusSetupPending,
	StatusApprovalPending,
	StatusApproved,
	StatusModificationRequested,
	StatusInProduction,
	StatusShipped,
	StatusCompleted,
	StatusOnHold,
}

// ProgressStatus is the manufacturing progress tri-state, separate from caseStatus.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in-progress"
	ProgressMidway     ProgressStatus = "midway"
	ProgressCompleted  ProgressStatus = "completed"
)

func (p ProgressStatus) IsValid() bool {
	switch p {
	case ProgressInProgress, ProgressMidway, ProgressCompleted:
		return true
	}
	return false
}

// Amount holds case pricing in minor currency units.
type Amount struct {
	Total    int64 `bson:"total" json:"total"`
	Received int64 `bson:"received" json:"received"`
	Pending  int64 `bson:"pending" json:"pending"`
}

// WithTotal returns a copy with a new total and pending recomputed.
func (a Amount) WithTotal(total int64) Amount {
	a.Total = total
	a.Pending = a.Total - a.Received
	return a
}

// WithReceived returns a copy with a new received value and pending recomputed.
func (a Amount) WithReceived(received int64) Amount {
	a.Received = received
	a.Pending = a.Total - a.Received
	return a
}

// STLFile gates the scan upload. CanUpload only ever goes from false to true.
type STLFile struct {
	CanUpload bool   `bson:"canUpload" json:"canUpload"`
	URL       string `bson:"url,omitempty" json:"url,omitempty"`
	Key       string `bson:"key,omitempty" json:"key,omitempty"`
}

type Address struct {
	Line1      string `bson:"line1,omitempty" json:"line1,omitempty"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

type TreatmentPlan struct {
	Arches string `bson:"arches,omitempty" json:"arches,omitempty"` // upper | lower | both
	Notes  string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Intake is the multi-step form a doctor fills in when submitting a case.
type Intake struct {
	Gender          string        `bson:"gender,omitempty" json:"gender,omitempty"`
	DateOfBirth     *time.Time    `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	ChiefComplaint  string        `bson:"chiefComplaint,omitempty" json:"chiefComplaint,omitempty"`
	MedicalHistory  string        `bson:"medicalHistory,omitempty" json:"medicalHistory,omitempty"`
	DentalHistory   string        `bson:"dentalHistory,omitempty" json:"dentalHistory,omitempty"`
	TreatmentPlan   TreatmentPlan `bson:"treatmentPlan" json:"treatmentPlan"`
	Category        string        `bson:"category,omitempty" json:"category,omitempty"`
	ShippingAddress Address       `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress  Address       `bson:"billingAddress" json:"billingAddress"`
}

// Patient is a submitted case document in the `patients` collection.
type Patient struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CaseID          string             `bson:"caseId" json:"caseId"`
	PatientName     string             `bson:"patientName" json:"patientName"`
	Intake          Intake             `bson:"intake" json:"intake"`
	CaseStatus      string             `bson:"caseStatus" json:"caseStatus"`
	ProgressStatus  ProgressStatus     `bson:"progressStatus" json:"progressStatus"`
	Amount          Amount             `bson:"amount" json:"amount"`
	STLFile         STLFile            `bson:"stlFile" json:"stlFile"`
	UserID          uint64             `bson:"userId" json:"userId"`
	PlannerID       *uint64            `bson:"plannerId,omitempty" json:"plannerId,omitempty"`
	PlannerDeadline *time.Time         `bson:"plannerDeadline,omitempty" json:"plannerDeadline,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsOwnedBy reports whether the doctor with id created this case.
func (p Patient) IsOwnedBy(id uint64) bool { return p.UserID == id }

// IsAssignedTo reports whether the planner with id is assigned to this case.
func (p Patient) IsAssignedTo(id uint64) bool { return p.PlannerID != nil && *p.PlannerID == id }

// CaseScope restricts a case listing or aggregate to what a caller may see.
// Zero values mean "no restriction" for that dimension.
type CaseScope struct {
	OwnerIDs  []uint64 // doctor ids; an empty non-nil slice matches nothing
	PlannerID *uint64
}

// CaseQuery filters a scoped case listing.
type CaseQuery struct {
	Scope      CaseScope
	CaseStatus string
	Search     string // case-insensitive match on patientName or caseId
	Limit      int64
	Skip       int64
}

// CaseStats is the dashboard aggregate.
type CaseStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByProgress map[string]int64 `json:"byProgress"`
	Amount     Amount           `json:"amount"`
}
