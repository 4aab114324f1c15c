package domain

// OrgRole enumerates escalation-relevant organizational roles.
type OrgRole string

const (
	RoleOfficeDirector     OrgRole = "OFFICE_DIRECTOR"
	RoleCommercialDirector OrgRole = "COMMERCIAL_DIRECTOR"
)

// Manager is a routing target for escalated cases.
type Manager struct {
	ID       string
	Name     string
	OfficeID *string
	Role     OrgRole
}
