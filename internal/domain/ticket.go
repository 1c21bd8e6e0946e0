package domain

import "time"

// TicketCategory classifies the customer's submission.
type TicketCategory string

const (
	CategoryInquiry    TicketCategory = "INQUIRY"
	CategoryComplaint  TicketCategory = "COMPLAINT"
	CategorySuggestion TicketCategory = "SUGGESTION"
	CategoryCompliment TicketCategory = "COMPLIMENT"
)

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryInquiry, CategoryComplaint, CategorySuggestion, CategoryCompliment:
		return true
	}
	return false
}

// Severity rates complaints. Other categories stay at SeverityNone.
type Severity string

const (
	SeverityNone  Severity = "NONE"
	SeverityMinor Severity = "MINOR"
	SeverityMajor Severity = "MAJOR"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityNone, SeverityMinor, SeverityMajor:
		return true
	}
	return false
}

// UnitKind tells whether the owning section is a unit or a directorate.
type UnitKind string

const (
	UnitKindUnit        UnitKind = "UNIT"
	UnitKindDirectorate UnitKind = "DIRECTORATE"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusAssigned        TicketStatus = "ASSIGNED"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusEscalated       TicketStatus = "ESCALATED"
	TicketStatusReturned        TicketStatus = "RETURNED"
	TicketStatusPendingReview   TicketStatus = "PENDING_REVIEW"
	TicketStatusPendingApproval TicketStatus = "PENDING_APPROVAL"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// SweepableStatuses are the statuses the escalation sweep inspects.
var SweepableStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusInProgress,
}

// Ticket is the aggregate routed through the workflow.
type Ticket struct {
	ID              string
	ExternalKey     string
	Category        TicketCategory
	Severity        Severity
	UnitKind        UnitKind
	SectionID       *string
	Subject         string
	Description     string
	CustomerName    string
	CustomerContact string
	Channel         string
	Status          TicketStatus
	CurrentRole     Role
	CurrentHolderID string
	IsEscalated     bool
	Resolution      string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// IsClosed reports whether the ticket reached its terminal status.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// IsSweepable reports whether the escalation sweep should inspect the ticket.
func (t *Ticket) IsSweepable() bool {
	for _, status := range SweepableStatuses {
		if t.Status == status {
			return true
		}
	}
	return false
}

// TicketPatch lists the fields a versioned update may change. Nil fields are left untouched.
type TicketPatch struct {
	Status          *TicketStatus
	CurrentRole     *Role
	CurrentHolderID *string
	IsEscalated     *bool
	Severity        *Severity
	UnitKind        *UnitKind
	SectionID       *string
	Resolution      *string
	ResolvedAt      *time.Time
}

// Apply copies the non-nil patch fields onto t.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.CurrentRole != nil {
		t.CurrentRole = *p.CurrentRole
	}
	if p.CurrentHolderID != nil {
		t.CurrentHolderID = *p.CurrentHolderID
	}
	if p.IsEscalated != nil {
		t.IsEscalated = *p.IsEscalated
	}
	if p.Severity != nil {
		t.Severity = *p.Severity
	}
	if p.UnitKind != nil {
		t.UnitKind = *p.UnitKind
	}
	if p.SectionID != nil {
		section := *p.SectionID
		t.SectionID = &section
	}
	if p.Resolution != nil {
		t.Resolution = *p.Resolution
	}
	if p.ResolvedAt != nil {
		resolved := *p.ResolvedAt
		t.ResolvedAt = &resolved
	}
}
