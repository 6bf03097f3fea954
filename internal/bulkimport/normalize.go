// Package bulkimport validates and normalizes pre-parsed bulk registration
// rows. Spreadsheet decoding happens upstream; this package owns the mapping
// from loosely-typed cell values to the closed visitor enums, returning
// warnings instead of scattering string matching through request handling.
package bulkimport

import (
	"fmt"
	"strings"

	"gatehouse/internal/visitor/models"
)

// Row is one raw registration candidate as decoded from the upload.
type Row struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Company         string `json:"company"`
	VisitorType     string `json:"visitor_type"`
	VisitorCategory string `json:"visitor_category"`
	Notes           string `json:"notes"`
}

// RowError reports validation failures for one row. Rows are 1-indexed in
// messages to match what the uploader sees.
type RowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// Normalized is a row with its enums resolved.
type Normalized struct {
	Row             Row
	VisitorType     models.VisitorType
	VisitorCategory models.VisitorCategory
}

// NormalizeType maps near-synonym spellings onto the closed visitor type
// enum. Unknown non-empty values fall back to professional with a warning
// rather than failing the whole batch.
func NormalizeType(raw string) (models.VisitorType, string) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "emp", "employee", "professional", "prof":
		return models.VisitorTypeProfessional, ""
	case "student":
		return models.VisitorTypeStudent, ""
	case "":
		return models.VisitorTypeProfessional, ""
	default:
		return models.VisitorTypeProfessional,
			fmt.Sprintf("non-standard visitor type %q mapped to professional", raw)
	}
}

// NormalizeCategory maps near-synonym spellings onto the closed category
// enum.
func NormalizeCategory(raw string) (models.VisitorCategory, string) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "industry", "industrial":
		return models.CategoryIndustry, ""
	case "academic", "academy", "education":
		return models.CategoryAcademic, ""
	case "government", "govt":
		return models.CategoryGovernment, ""
	case "other":
		return models.CategoryOther, ""
	case "":
		return models.CategoryIndustry, ""
	default:
		return models.CategoryOther,
			fmt.Sprintf("non-standard visitor category %q mapped to other", raw)
	}
}

// NormalizeRows validates every row and resolves its enums. Returns either
// the normalized rows plus accumulated warnings, or the per-row errors when
// any row fails validation (all-or-nothing, matching the batch semantics
// downstream).
func NormalizeRows(rows []Row) ([]Normalized, []string, []RowError) {
	var (
		normalized []Normalized
		warnings   []string
		rowErrors  []RowError
	)

	for i, row := range rows {
		var errs []string
		if strings.TrimSpace(row.Name) == "" {
			errs = append(errs, "name is required")
		}
		if strings.TrimSpace(row.Email) == "" {
			errs = append(errs, "email is required")
		} else if !models.EmailShape(row.Email) {
			errs = append(errs, "invalid email format")
		}
		if strings.TrimSpace(row.Phone) == "" {
			errs = append(errs, "phone is required")
		}
		if len(errs) > 0 {
			rowErrors = append(rowErrors, RowError{Row: i + 1, Errors: errs})
			continue
		}

		vt, warn := NormalizeType(row.VisitorType)
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("row %d: %s", i+1, warn))
		}
		vc, warn := NormalizeCategory(row.VisitorCategory)
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("row %d: %s", i+1, warn))
		}

		normalized = append(normalized, Normalized{Row: row, VisitorType: vt, VisitorCategory: vc})
	}

	if len(rowErrors) > 0 {
		return nil, nil, rowErrors
	}
	return normalized, warnings, nil
}
