package models

import (
	"strings"

	dErrors "gatehouse/pkg/domain-errors"
)

// CreateVisitorRequest is the registration payload. Contact fields are opaque
// beyond non-empty and email shape; deeper validation belongs to collaborators.
type CreateVisitorRequest struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Company         string          `json:"company"`
	VisitorType     VisitorType     `json:"visitor_type"`
	VisitorCategory VisitorCategory `json:"visitor_category"`
	Purpose         Purpose         `json:"purpose"`
	Department      string          `json:"department"`
	VisitDate       Date            `json:"visit_date"`
	VisitTime       TimeOfDay       `json:"visit_time"`
	HostName        string          `json:"host_name"`
	HostEmail       string          `json:"host_email"`
	Notes           string          `json:"notes"`
}

func (r CreateVisitorRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if !EmailShape(r.Email) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid email format")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "phone is required")
	}
	if !ValidPurposes[r.Purpose] {
		return dErrors.New(dErrors.CodeBadRequest, "invalid purpose: "+string(r.Purpose))
	}
	return nil
}

// RescheduleRequest moves an existing visit to a new slot.
type RescheduleRequest struct {
	VisitDate Date      `json:"visit_date"`
	VisitTime TimeOfDay `json:"visit_time"`
}

// VerifyRequest presents a credential for same-day check-in. ActorID is
// filled from the authenticated gate operator when one is present.
type VerifyRequest struct {
	Credential string `json:"credential"`
	ActorID    string `json:"-"`
}

// VerifyResult reports the outcome of a verification attempt. AlreadyVerified
// distinguishes the idempotent second call from the first transition.
type VerifyResult struct {
	Record          *VisitRecord `json:"visitor"`
	AlreadyVerified bool         `json:"already_verified"`
}

// ListFilter narrows visitor listings. Zero values match everything.
type ListFilter struct {
	Status  Status
	Purpose Purpose
	Query   string
}

// EmailShape applies the same loose pattern the registration form uses:
// local@domain.tld with a 2+ letter TLD. Not a full RFC 5322 validation.
func EmailShape(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	if len(domain)-dot-1 < 2 {
		return false
	}
	return !strings.ContainsAny(s, " \t")
}
