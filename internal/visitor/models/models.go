package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the visit lifecycle state. Transitions are owned by the lifecycle
// and booking services; nothing else mutates it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transitions are possible. Verified is
// non-terminal: it can still move to completed or expired.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// Active reports whether the record occupies slot capacity.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusVerified
}

type VisitorType string

const (
	VisitorTypeProfessional VisitorType = "professional"
	VisitorTypeStudent      VisitorType = "student"
)

type VisitorCategory string

const (
	CategoryGovernment VisitorCategory = "government"
	CategoryAcademic   VisitorCategory = "academic"
	CategoryIndustry   VisitorCategory = "industry"
	CategoryOther      VisitorCategory = "other"
)

type Purpose string

const (
	PurposeBusinessMeeting Purpose = "business_meeting"
	PurposeInterview       Purpose = "interview"
	PurposeDelivery        Purpose = "delivery"
	PurposeMaintenance     Purpose = "maintenance"
	PurposeTraining        Purpose = "training"
	PurposeFactoryVisit    Purpose = "i_factory_visit"
	PurposeFactoryTraining Purpose = "i_factory_training"
	PurposeOther           Purpose = "other"
)

// ValidPurposes is the closed set accepted on registration and bulk upload.
var ValidPurposes = map[Purpose]bool{
	PurposeBusinessMeeting: true,
	PurposeInterview:       true,
	PurposeDelivery:        true,
	PurposeMaintenance:     true,
	PurposeTraining:        true,
	PurposeFactoryVisit:    true,
	PurposeFactoryTraining: true,
	PurposeOther:           true,
}

// VisitRecord is one visitor's scheduled visit. The credential is globally
// unique and rotated exactly once per successful reschedule.
type VisitRecord struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone"`
	Company string    `json:"company,omitempty"`

	VisitorType     VisitorType     `json:"visitor_type"`
	VisitorCategory VisitorCategory `json:"visitor_category"`
	Purpose         Purpose         `json:"purpose"`
	Department      string          `json:"department,omitempty"`

	VisitDate Date      `json:"visit_date"`
	VisitTime TimeOfDay `json:"visit_time"`

	HostName  string `json:"host_name,omitempty"`
	HostEmail string `json:"host_email,omitempty"`

	Status     Status `json:"status"`
	Credential string `json:"credential"`

	// PreviousCredential remembers the code retired by the last reschedule,
	// so presenting it at the gate gets a pointed message instead of a bare
	// not-found. Only the immediately previous code is kept.
	PreviousCredential string `json:"-"`

	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`

	Notes    string `json:"notes,omitempty"`
	IsActive bool   `json:"is_active"`

	IsRescheduled     bool       `json:"is_rescheduled"`
	OriginalVisitDate *Date      `json:"original_visit_date,omitempty"`
	OriginalVisitTime *TimeOfDay `json:"original_visit_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialExpired reports whether wall-clock time has passed 23:59:59 on the
// visit date.
func (v VisitRecord) CredentialExpired(now time.Time) bool {
	endOfDay := v.VisitDate.At(TimeOfDay{Hour: 23, Minute: 59}).Add(59 * time.Second)
	return now.After(endOfDay)
}

// IsVisitDay reports whether now falls on the scheduled visit date.
func (v VisitRecord) IsVisitDay(now time.Time) bool {
	return DateOf(now) == v.VisitDate
}
