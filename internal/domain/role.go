package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the organizational roles a ticket can be held by.
type Role string

const (
	RoleFocalPerson Role = "FOCAL_PERSON"
	RoleAttendee    Role = "ATTENDEE"
	RoleCoordinator Role = "COORDINATOR"
	RoleHeadOfUnit  Role = "HEAD_OF_UNIT"
	RoleDirector    Role = "DIRECTOR"
	RoleDG          Role = "DG"
	RoleAdmin       Role = "ADMIN"
)

// legacyRoles maps every spelling found in older data and clients to a Role.
// Keys are lower-cased with '_' and ' ' folded to '-'.
var legacyRoles = map[string]Role{
	"focal-person":            RoleFocalPerson,
	"focalperson":             RoleFocalPerson,
	"complience-focal-person": RoleFocalPerson,
	"compliance-focal-person": RoleFocalPerson,
	"attendee":                RoleAttendee,
	"attendant":               RoleAttendee,
	"coordinator":             RoleCoordinator,
	"cordinator":              RoleCoordinator,
	"head-of-unit":            RoleHeadOfUnit,
	"headofunit":              RoleHeadOfUnit,
	"unit-head":               RoleHeadOfUnit,
	"hou":                     RoleHeadOfUnit,
	"director":                RoleDirector,
	"dg":                      RoleDG,
	"director-general":        RoleDG,
	"admin":                   RoleAdmin,
	"administrator":           RoleAdmin,
}

// ParseRole normalizes an external role string into a Role.
func ParseRole(raw string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	if role, ok := legacyRoles[key]; ok {
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFocalPerson, RoleAttendee, RoleCoordinator, RoleHeadOfUnit, RoleDirector, RoleDG, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
