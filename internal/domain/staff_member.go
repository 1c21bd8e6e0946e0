package domain

import "time"

// StaffMember models an employee who can hold tickets.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	SectionID    *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the staff member administers the system.
func (s *StaffMember) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
