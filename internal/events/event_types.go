package events

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketReversed        EventType = "ticket_reversed"
	EventTicketClosed          EventType = "ticket_closed"
	EventNotificationRequested EventType = "notification_requested"
)

// ForAction returns the lifecycle event published after a record with action is stored.
func ForAction(action domain.AssignmentAction) EventType {
	switch action {
	case domain.ActionEscalated:
		return EventTicketEscalated
	case domain.ActionReversed:
		return EventTicketReversed
	case domain.ActionClosed:
		return EventTicketClosed
	default:
		return EventTicketAssigned
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ExternalKey string                `json:"external_key"`
	Category    domain.TicketCategory `json:"category"`
	Severity    domain.Severity       `json:"severity"`
	HolderID    string                `json:"holder_id"`
	HolderRole  domain.Role           `json:"holder_role"`
}

// TicketTransitionPayload describes one stored assignment record.
type TicketTransitionPayload struct {
	Action       domain.AssignmentAction `json:"action"`
	Status       domain.TicketStatus     `json:"status"`
	TargetUserID string                  `json:"target_user_id"`
	TargetRole   domain.Role             `json:"target_role"`
	Reason       string                  `json:"reason,omitempty"`
}

// NotificationPayload asks delivery handlers to reach a recipient.
type NotificationPayload struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	Channel     string `json:"channel"`
}
