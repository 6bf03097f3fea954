package bulkimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/visitor/models"
)

func TestNormalizeType(t *testing.T) {
	cases := []struct {
		raw  string
		want models.VisitorType
		warn bool
	}{
		{"emp", models.VisitorTypeProfessional, false},
		{"Employee", models.VisitorTypeProfessional, false},
		{"PROF", models.VisitorTypeProfessional, false},
		{"professional", models.VisitorTypeProfessional, false},
		{" student ", models.VisitorTypeStudent, false},
		{"", models.VisitorTypeProfessional, false},
		{"contractor", models.VisitorTypeProfessional, true},
	}
	for _, tc := range cases {
		got, warn := NormalizeType(tc.raw)
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
		assert.Equal(t, tc.warn, warn != "", "raw=%q", tc.raw)
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		raw  string
		want models.VisitorCategory
		warn bool
	}{
		{"industry", models.CategoryIndustry, false},
		{"Industrial", models.CategoryIndustry, false},
		{"academic", models.CategoryAcademic, false},
		{"education", models.CategoryAcademic, false},
		{"govt", models.CategoryGovernment, false},
		{"government", models.CategoryGovernment, false},
		{"other", models.CategoryOther, false},
		{"", models.CategoryIndustry, false},
		{"ngo", models.CategoryOther, true},
	}
	for _, tc := range cases {
		got, warn := NormalizeCategory(tc.raw)
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
		assert.Equal(t, tc.warn, warn != "", "raw=%q", tc.raw)
	}
}

func TestNormalizeRows(t *testing.T) {
	t.Run("valid rows pass with accumulated warnings", func(t *testing.T) {
		rows := []Row{
			{Name: "Ada", Email: "ada@example.com", Phone: "1", VisitorType: "emp"},
			{Name: "Bea", Email: "bea@example.com", Phone: "2", VisitorType: "wizard"},
		}
		normalized, warnings, rowErrors := NormalizeRows(rows)
		require.Nil(t, rowErrors)
		require.Len(t, normalized, 2)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "row 2")
	})

	t.Run("any invalid row fails the whole batch", func(t *testing.T) {
		rows := []Row{
			{Name: "Ada", Email: "ada@example.com", Phone: "1"},
			{Name: "", Email: "bad", Phone: ""},
		}
		normalized, warnings, rowErrors := NormalizeRows(rows)
		assert.Nil(t, normalized)
		assert.Nil(t, warnings)
		require.Len(t, rowErrors, 1)
		assert.Equal(t, 2, rowErrors[0].Row)
		assert.Len(t, rowErrors[0].Errors, 3)
	})
}
