package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries an issued bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SectionRequest payload for creating a section.
type SectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SectionResponse describes a section.
type SectionResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitKind    domain.UnitKind `json:"unit_kind"`
	IsActive    bool            `json:"is_active"`
}

// StaffCreateRequest payload. Role accepts legacy spellings.
type StaffCreateRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role"`
	SectionID *string `json:"section_id"`
}

// StaffActiveRequest toggles a staff account.
type StaffActiveRequest struct {
	Active *bool `json:"active"`
}

// StaffResponse describes a staff member.
type StaffResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	SectionID *string     `json:"section_id"`
	Active    bool        `json:"active"`
}
