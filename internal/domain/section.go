package domain

import (
	"strings"
	"time"
)

// Section represents an organizational unit or directorate that owns tickets.
type Section struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Kind derives the unit kind from the section name.
func (s *Section) Kind() UnitKind {
	return UnitKindFromName(s.Name)
}

// UnitKindFromName returns UnitKindDirectorate when name mentions a directorate.
func UnitKindFromName(name string) UnitKind {
	if strings.Contains(strings.ToLower(name), "directorate") {
		return UnitKindDirectorate
	}
	return UnitKindUnit
}
