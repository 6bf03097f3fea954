package credential

import (
	"encoding/json"

	"gatehouse/internal/visitor/models"
)

// Issuer produces a renderable credential for a visit record. Called after
// the booking commits, never before; failures degrade to a warning on the
// booking result.
type Issuer interface {
	Issue(record *models.VisitRecord) ([]byte, error)
}

// PayloadIssuer emits the canonical JSON payload that rendering collaborators
// (QR, PDF) encode. It is the default Issuer when no renderer is wired.
type PayloadIssuer struct{}

type payload struct {
	Credential string `json:"credential"`
	Name       string `json:"name"`
	VisitDate  string `json:"visit_date"`
	VisitTime  string `json:"visit_time"`
}

func (PayloadIssuer) Issue(record *models.VisitRecord) ([]byte, error) {
	return json.Marshal(payload{
		Credential: record.Credential,
		Name:       record.Name,
		VisitDate:  record.VisitDate.String(),
		VisitTime:  record.VisitTime.String(),
	})
}
