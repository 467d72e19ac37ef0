package domain

// Capability names one boolean permission gating an operation
type Capability string

const (
	CanCreateProject Capability = "canCreateProject"
	CanUpdateProject Capability = "canUpdateProject"
	CanDeleteProject Capability = "canDeleteProject"
	CanViewProject   Capability = "canViewProject"
	CanCreateSite    Capability = "canCreateSite"
	CanUpdateSite    Capability = "canUpdateSite"
	CanDeleteSite    Capability = "canDeleteSite"
	CanViewSite      Capability = "canViewSite"
	CanCapture       Capability = "canCapture"
	CanAnnotate      Capability = "canAnnotate"
	CanViewCaptures  Capability = "canViewCaptures"
	CanCreateReport  Capability = "canCreateReport"
	CanViewReport    Capability = "canViewReport"
	CanShareCaptures Capability = "canShareCaptures"
	CanManageUsers   Capability = "canManageUsers"
)

// AllCapabilities lists every capability in declaration order
var AllCapabilities = []Capability{
	CanCreateProject, CanUpdateProject, CanDeleteProject, CanViewProject,
	CanCreateSite, CanUpdateSite, CanDeleteSite, CanViewSite,
	CanCapture, CanAnnotate, CanViewCaptures,
	CanCreateReport, CanViewReport, CanShareCaptures,
	CanManageUsers,
}

// Permissions is the fixed-shape permission set stored on a Role
type Permissions struct {
	CanCreateProject bool `json:"canCreateProject"`
	CanUpdateProject bool `json:"canUpdateProject"`
	CanDeleteProject bool `json:"canDeleteProject"`
	CanViewProject   bool `json:"canViewProject"`
	CanCreateSite    bool `json:"canCreateSite"`
	CanUpdateSite    bool `json:"canUpdateSite"`
	CanDeleteSite    bool `json:"canDeleteSite"`
	CanViewSite      bool `json:"canViewSite"`
	CanCapture       bool `json:"canCapture"`
	CanAnnotate      bool `json:"canAnnotate"`
	CanViewCaptures  bool `json:"canViewCaptures"`
	CanCreateReport  bool `json:"canCreateReport"`
	CanViewReport    bool `json:"canViewReport"`
	CanShareCaptures bool `json:"canShareCaptures"`
	CanManageUsers   bool `json:"canManageUsers"`
}

// DefaultPermissions is the permission set of a role created without explicit permissions
func DefaultPermissions() Permissions {
	return Permissions{
		CanViewProject:   true,
		CanViewSite:      true,
		CanCapture:       true,
		CanAnnotate:      true,
		CanViewCaptures:  true,
		CanViewReport:    true,
		CanShareCaptures: true,
	}
}

// FullPermissions grants every capability
func FullPermissions() Permissions {
	var p Permissions
	for _, c := range AllCapabilities {
		*p.field(c) = true
	}
	return p
}

// Allows reports whether the capability is granted. Unknown capabilities are denied.
func (p Permissions) Allows(c Capability) bool {
	f := p.field(c)
	return f != nil && *f
}

func (p *Permissions) field(c Capability) *bool {
	switch c {
	case CanCreateProject:
		return &p.CanCreateProject
	case CanUpdateProject:
		return &p.CanUpdateProject
	case CanDeleteProject:
		return &p.CanDeleteProject
	case CanViewProject:
		return &p.CanViewProject
	case CanCreateSite:
		return &p.CanCreateSite
	case CanUpdateSite:
		return &p.CanUpdateSite
	case CanDeleteSite:
		return &p.CanDeleteSite
	case CanViewSite:
		return &p.CanViewSite
	case CanCapture:
		return &p.CanCapture
	case CanAnnotate:
		return &p.CanAnnotate
	case CanViewCaptures:
		return &p.CanViewCaptures
	case CanCreateReport:
		return &p.CanCreateReport
	case CanViewReport:
		return &p.CanViewReport
	case CanShareCaptures:
		return &p.CanShareCaptures
	case CanManageUsers:
		return &p.CanManageUsers
	}
	return nil
}
