package domain

import "time"

// AssignmentAction captures what kind of hand-off a record represents.
type AssignmentAction string

const (
	ActionAssigned   AssignmentAction = "ASSIGNED"
	ActionReassigned AssignmentAction = "REASSIGNED"
	ActionReviewed   AssignmentAction = "REVIEWED"
	ActionApproved   AssignmentAction = "APPROVED"
	ActionReversed   AssignmentAction = "REVERSED"
	ActionEscalated  AssignmentAction = "ESCALATED"
	ActionClosed     AssignmentAction = "CLOSED"
)

// IsForward reports whether the action moves a ticket forward through its workflow path.
func (a AssignmentAction) IsForward() bool {
	switch a {
	case ActionAssigned, ActionReassigned, ActionReviewed, ActionApproved:
		return true
	}
	return false
}

// AssignmentRecord is an immutable audit trail entry.
type AssignmentRecord struct {
	ID           string
	TicketID     string
	ActorID      string
	TargetUserID string
	TargetRole   Role
	Action       AssignmentAction
	Reason       string
	CreatedAt    time.Time
}
