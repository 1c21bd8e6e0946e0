// Package workflow holds the static routing tables and the role transition rules
// every ticket action goes through.
package workflow

import "github.com/spec-kit/servicedesk/internal/domain"

// Path is an ordered, immutable list of roles.
type Path []domain.Role

// IndexOf returns the position of role in p, or -1.
func (p Path) IndexOf(role domain.Role) int {
	for i, candidate := range p {
		if candidate == role {
			return i
		}
	}
	return -1
}

// Contains reports whether role appears in p.
func (p Path) Contains(role domain.Role) bool {
	return p.IndexOf(role) >= 0
}

// First returns the initial role of p.
func (p Path) First() domain.Role {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Last returns the terminal role of p.
func (p Path) Last() domain.Role {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

type pathKey struct {
	category domain.TicketCategory
	severity domain.Severity
	unitKind domain.UnitKind
}

var (
	inquiryPath     = Path{domain.RoleFocalPerson, domain.RoleAttendee}
	coordinatorOnly = Path{domain.RoleCoordinator}
)

var complaintPaths = map[pathKey]Path{
	{domain.CategoryComplaint, domain.SeverityMinor, domain.UnitKindUnit}:        {domain.RoleCoordinator, domain.RoleAttendee, domain.RoleHeadOfUnit},
	{domain.CategoryComplaint, domain.SeverityMinor, domain.UnitKindDirectorate}: {domain.RoleCoordinator, domain.RoleAttendee, domain.RoleDirector},
	{domain.CategoryComplaint, domain.SeverityMajor, domain.UnitKindUnit}:        {domain.RoleCoordinator, domain.RoleAttendee, domain.RoleHeadOfUnit, domain.RoleDirector, domain.RoleDG},
	{domain.CategoryComplaint, domain.SeverityMajor, domain.UnitKindDirectorate}: {domain.RoleCoordinator, domain.RoleAttendee, domain.RoleDirector, domain.RoleDG},
}

// ResolvePath returns the workflow path for a ticket's classification.
// Unrated complaints route like minor ones and an empty unit kind routes like a unit.
func ResolvePath(category domain.TicketCategory, severity domain.Severity, unitKind domain.UnitKind) Path {
	switch category {
	case domain.CategoryInquiry:
		return clone(inquiryPath)
	case domain.CategoryComplaint:
		if severity != domain.SeverityMajor {
			severity = domain.SeverityMinor
		}
		if unitKind != domain.UnitKindDirectorate {
			unitKind = domain.UnitKindUnit
		}
		return clone(complaintPaths[pathKey{category, severity, unitKind}])
	default:
		return clone(coordinatorOnly)
	}
}

// PathFor resolves the workflow path of t.
func PathFor(t *domain.Ticket) Path {
	return ResolvePath(t.Category, t.Severity, t.UnitKind)
}

var escalationPaths = map[pathKey]Path{
	{category: domain.CategoryInquiry}:                                   {domain.RoleFocalPerson, domain.RoleAttendee, domain.RoleCoordinator},
	{category: domain.CategoryComplaint, severity: domain.SeverityMinor}: {domain.RoleCoordinator, domain.RoleAttendee, domain.RoleHeadOfUnit, domain.RoleDirector},
	{category: domain.CategoryComplaint, severity: domain.SeverityMajor}: {domain.RoleCoordinator, domain.RoleAttendee, domain.RoleHeadOfUnit, domain.RoleDirector, domain.RoleDG},
}

// ResolveEscalationPath returns the supervisory chain used when an SLA breach forces
// re-routing. Suggestions and compliments have none.
func ResolveEscalationPath(category domain.TicketCategory, severity domain.Severity) Path {
	key := pathKey{category: category}
	if category == domain.CategoryComplaint {
		key.severity = domain.SeverityMinor
		if severity == domain.SeverityMajor {
			key.severity = domain.SeverityMajor
		}
	}
	return clone(escalationPaths[key])
}

func clone(p Path) Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}
