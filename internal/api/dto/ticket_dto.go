package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Category        domain.TicketCategory `json:"category"`
	Severity        domain.Severity       `json:"severity"`
	SectionID       *string               `json:"section_id"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	CustomerName    string                `json:"customer_name"`
	CustomerContact string                `json:"customer_contact"`
	Channel         string                `json:"channel"`
}

// RateTicketRequest payload.
type RateTicketRequest struct {
	Severity  domain.Severity `json:"severity"`
	SectionID *string         `json:"section_id"`
}

// AssignNextRequest payload. TargetUserID pins the next holder.
type AssignNextRequest struct {
	Reason       string  `json:"reason"`
	TargetUserID *string `json:"target_user_id"`
}

// ReasonRequest carries a free-text reason or resolution.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"id"`
	ExternalKey     string                `json:"external_key"`
	Category        domain.TicketCategory `json:"category"`
	Severity        domain.Severity       `json:"severity"`
	UnitKind        domain.UnitKind       `json:"unit_kind"`
	SectionID       *string               `json:"section_id"`
	Subject         string                `json:"subject"`
	Status          domain.TicketStatus   `json:"status"`
	CurrentRole     domain.Role           `json:"current_role"`
	CurrentHolderID string                `json:"current_holder_id"`
	IsEscalated     bool                  `json:"is_escalated"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description     string                     `json:"description"`
	CustomerName    string                     `json:"customer_name"`
	CustomerContact string                     `json:"customer_contact"`
	Channel         string                     `json:"channel"`
	Resolution      string                     `json:"resolution,omitempty"`
	ResolvedAt      *time.Time                 `json:"resolved_at"`
	History         []AssignmentRecordResponse `json:"history,omitempty"`
}

// AssignmentRecordResponse is one audit trail entry.
type AssignmentRecordResponse struct {
	ID           string                  `json:"id"`
	ActorID      string                  `json:"actor_id"`
	TargetUserID string                  `json:"target_user_id"`
	TargetRole   domain.Role             `json:"target_role"`
	Action       domain.AssignmentAction `json:"action"`
	Reason       string                  `json:"reason,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// SLAResponse is a ticket's SLA snapshot.
type SLAResponse struct {
	TicketID    string `json:"ticket_id"`
	ElapsedDays int    `json:"elapsed_working_days"`
	Threshold   int    `json:"threshold_days"`
	Applies     bool   `json:"applies"`
	Breached    bool   `json:"breached"`
}
