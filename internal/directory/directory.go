// Package directory serves the reference data the registration form needs:
// the departments a visit can be attached to and the predefined hosts a
// visitor may name.
package directory

// Department is one organizational unit visitors can be routed to.
type Department struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Host is a staff member offered in the host picker.
type Host struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Service answers directory lookups from a fixed in-process catalogue.
// Entries are set at startup; there is no mutation path.
type Service struct {
	departments []Department
	hosts       []Host
}

type Option func(*Service)

// WithDepartments replaces the default department catalogue.
func WithDepartments(departments []Department) Option {
	return func(s *Service) {
		if len(departments) > 0 {
			s.departments = departments
		}
	}
}

// WithHosts sets the host picker entries. Empty by default; deployments fill
// this with their reception roster.
func WithHosts(hosts []Host) Option {
	return func(s *Service) { s.hosts = hosts }
}

func New(opts ...Option) *Service {
	s := &Service{
		departments: []Department{
			{Name: "Administration", Description: "Front office and facility management"},
			{Name: "Engineering", Description: "Product and platform engineering"},
			{Name: "Research", Description: "Applied research and prototyping"},
			{Name: "Operations", Description: "Manufacturing and site operations"},
			{Name: "Human Resources", Description: "Recruitment and people operations"},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Departments returns the catalogue in its configured order.
func (s *Service) Departments() []Department {
	out := make([]Department, len(s.departments))
	copy(out, s.departments)
	return out
}

// Hosts returns the host picker entries, never nil.
func (s *Service) Hosts() []Host {
	out := make([]Host, 0, len(s.hosts))
	return append(out, s.hosts...)
}
