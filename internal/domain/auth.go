package domain

import "time"

// SubjectType differentiates staff tokens from system callers.
type SubjectType string

const (
	SubjectTypeStaff  SubjectType = "STAFF"
	SubjectTypeSystem SubjectType = "SYSTEM"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *Role
	ExpiresAt time.Time
	IssuedAt  time.Time
}
