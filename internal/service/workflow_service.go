package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/sla"
	"github.com/spec-kit/servicedesk/internal/workflow"
	apperrors "github.com/spec-kit/servicedesk/pkg/errorutil"
)

// WorkflowService drives interactive ticket actions along the workflow paths.
type WorkflowService struct {
	tickets     repository.TicketRepository
	assignments repository.AssignmentRepository
	sections    repository.SectionRepository
	staff       repository.StaffRepository
	directory   *Directory
	recorder    *Recorder
	clock       *sla.Clock
	calendar    HolidayCalendar
	now         func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	TicketRepo     repository.TicketRepository
	AssignmentRepo repository.AssignmentRepository
	SectionRepo    repository.SectionRepository
	StaffRepo      repository.StaffRepository
	Directory      *Directory
	Recorder       *Recorder
	Clock          *sla.Clock
	Calendar       HolidayCalendar
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &WorkflowService{
		tickets:     deps.TicketRepo,
		assignments: deps.AssignmentRepo,
		sections:    deps.SectionRepo,
		staff:       deps.StaffRepo,
		directory:   deps.Directory,
		recorder:    deps.Recorder,
		clock:       deps.Clock,
		calendar:    deps.Calendar,
		now:         now,
	}
}

// CreateTicketInput describes ticket intake.
type CreateTicketInput struct {
	Category        domain.TicketCategory
	Severity        domain.Severity
	SectionID       *string
	Subject         string
	Description     string
	CustomerName    string
	CustomerContact string
	Channel         string
}

// RateInput sets complaint severity and the owning section.
type RateInput struct {
	Severity  domain.Severity
	SectionID *string
}

// AssignInput carries an optional explicit holder for the next role.
type AssignInput struct {
	Reason       string
	TargetUserID *string
}

// TicketDetail is a ticket with its assignment history.
type TicketDetail struct {
	Ticket  *domain.Ticket
	History []domain.AssignmentRecord
}

// CreateTicket opens a ticket at the first role of its workflow path.
func (s *WorkflowService) CreateTicket(ctx context.Context, actor *domain.StaffMember, input CreateTicketInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category})
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	severity, err := normalizeSeverity(input.Category, input.Severity)
	if err != nil {
		return nil, err
	}

	unitKind := domain.UnitKindUnit
	if input.SectionID != nil {
		section, err := s.activeSection(ctx, *input.SectionID)
		if err != nil {
			return nil, err
		}
		unitKind = section.Kind()
	}

	path := workflow.ResolvePath(input.Category, severity, unitKind)
	key := generateTicketKey()
	holder, err := s.directory.Resolve(ctx, key, path.First(), input.SectionID)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ExternalKey:     key,
		Category:        input.Category,
		Severity:        severity,
		UnitKind:        unitKind,
		SectionID:       input.SectionID,
		Subject:         subject,
		Description:     strings.TrimSpace(input.Description),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerContact: strings.TrimSpace(input.CustomerContact),
		Channel:         strings.TrimSpace(input.Channel),
		Status:          domain.TicketStatusOpen,
		CurrentRole:     path.First(),
		CurrentHolderID: holder.ID,
		CreatedAt:       s.now(),
	}
	if _, err := s.recorder.Open(ctx, ticket, actor.ID, "ticket received"); err != nil {
		return nil, err
	}
	return ticket, nil
}

// RateTicket records complaint severity and the owning section while the ticket is
// still with the first role of its path. The unit kind is derived from the section.
func (s *WorkflowService) RateTicket(ctx context.Context, actor *domain.StaffMember, ticketID string, input RateInput) (*domain.Ticket, error) {
	ticket, err := s.loadOpen(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireHolder(actor, ticket); err != nil {
		return nil, err
	}
	if ticket.CurrentRole != workflow.PathFor(ticket).First() {
		return nil, fmt.Errorf("%w: rating is only allowed at %s", domain.ErrInvalidTransition, workflow.PathFor(ticket).First())
	}
	severity, err := normalizeSeverity(ticket.Category, input.Severity)
	if err != nil {
		return nil, err
	}

	patch := domain.TicketPatch{Severity: &severity}
	if input.SectionID != nil {
		section, err := s.activeSection(ctx, *input.SectionID)
		if err != nil {
			return nil, err
		}
		kind := section.Kind()
		patch.SectionID = &section.ID
		patch.UnitKind = &kind
	}
	return s.update(ctx, ticket, patch)
}

// AssignToNext hands the ticket to the next role of its path. At the terminal role
// the ticket is closed instead.
func (s *WorkflowService) AssignToNext(ctx context.Context, actor *domain.StaffMember, ticketID string, input AssignInput) (*domain.Ticket, error) {
	ticket, err := s.loadOpen(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireHolder(actor, ticket); err != nil {
		return nil, err
	}

	path := workflow.PathFor(ticket)
	if !path.Contains(ticket.CurrentRole) {
		escalation := workflow.ResolveEscalationPath(ticket.Category, ticket.Severity)
		if workflow.CanClose(path, ticket.CurrentRole, escalation) {
			return nil, fmt.Errorf("%w: %s is outside the workflow path", domain.ErrEscalatedHolder, ticket.CurrentRole)
		}
	}
	next, terminal, err := workflow.Next(path, ticket.CurrentRole)
	if err != nil {
		return nil, err
	}
	if terminal {
		return s.close(ctx, actor, ticket, input.Reason)
	}

	var target *domain.StaffMember
	if input.TargetUserID != nil && *input.TargetUserID != "" {
		target, err = s.directory.Lookup(ctx, *input.TargetUserID, next)
	} else {
		target, err = s.directory.Resolve(ctx, ticket.ExternalKey, next, ticket.SectionID)
	}
	if err != nil {
		return nil, err
	}

	action, status := workflow.Handoff(path, next, ticket.Status)
	if !workflow.CanTransition(ticket.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, ticket.Status, status)
	}
	updated, _, err := s.recorder.Record(ctx, Transition{
		Ticket:       ticket,
		ActorID:      actor.ID,
		TargetUserID: target.ID,
		TargetRole:   next,
		Action:       action,
		Reason:       strings.TrimSpace(input.Reason),
		Patch:        domain.TicketPatch{Status: &status, IsEscalated: ptrBool(false)},
	}, s.now())
	return updated, err
}

// Attend marks that the holder started work. An escalated ticket is acknowledged
// back to Assigned and re-enters the sweep.
func (s *WorkflowService) Attend(ctx context.Context, actor *domain.StaffMember, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadOpen(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireHolder(actor, ticket); err != nil {
		return nil, err
	}

	status := domain.TicketStatusInProgress
	patch := domain.TicketPatch{Status: &status}
	if ticket.Status == domain.TicketStatusEscalated {
		status = domain.TicketStatusAssigned
		patch.IsEscalated = ptrBool(false)
	}
	if ticket.Status == status {
		return ticket, nil
	}
	if !workflow.CanTransition(ticket.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, ticket.Status, status)
	}
	return s.update(ctx, ticket, patch)
}

// update applies a status-only change that writes no assignment record.
func (s *WorkflowService) update(ctx context.Context, ticket *domain.Ticket, patch domain.TicketPatch) (*domain.Ticket, error) {
	updated, err := s.tickets.CompareAndUpdate(ctx, ticket.ID, ticket.Version, patch)
	if err != nil {
		return nil, persistenceError(err)
	}
	return updated, nil
}

// Reverse returns the ticket to the previous holder on its forward chain.
func (s *WorkflowService) Reverse(ctx context.Context, actor *domain.StaffMember, ticketID, reason string) (*domain.Ticket, error) {
	ticket, err := s.loadOpen(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireHolder(actor, ticket); err != nil {
		return nil, err
	}

	history, err := s.assignments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	prev, err := workflow.Previous(history, workflow.Step{Role: ticket.CurrentRole, UserID: ticket.CurrentHolderID})
	if err != nil {
		return nil, err
	}

	targetID := prev.UserID
	if _, err := s.directory.Lookup(ctx, prev.UserID, prev.Role); err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		replacement, err := s.directory.Resolve(ctx, ticket.ExternalKey, prev.Role, ticket.SectionID)
		if err != nil {
			return nil, err
		}
		targetID = replacement.ID
	}

	status := domain.TicketStatusReturned
	if !workflow.CanTransition(ticket.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, ticket.Status, status)
	}
	updated, _, err := s.recorder.Record(ctx, Transition{
		Ticket:       ticket,
		ActorID:      actor.ID,
		TargetUserID: targetID,
		TargetRole:   prev.Role,
		Action:       domain.ActionReversed,
		Reason:       strings.TrimSpace(reason),
		Patch:        domain.TicketPatch{Status: &status, IsEscalated: ptrBool(false)},
	}, s.now())
	return updated, err
}

// Close resolves the ticket. Only the terminal role of the path, or a supervisory role
// the ticket was escalated to, may close.
func (s *WorkflowService) Close(ctx context.Context, actor *domain.StaffMember, ticketID, resolution string) (*domain.Ticket, error) {
	ticket, err := s.loadOpen(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireHolder(actor, ticket); err != nil {
		return nil, err
	}
	return s.close(ctx, actor, ticket, resolution)
}

func (s *WorkflowService) close(ctx context.Context, actor *domain.StaffMember, ticket *domain.Ticket, resolution string) (*domain.Ticket, error) {
	path := workflow.PathFor(ticket)
	escalation := workflow.ResolveEscalationPath(ticket.Category, ticket.Severity)
	if !workflow.CanClose(path, ticket.CurrentRole, escalation) {
		return nil, fmt.Errorf("%w: %s cannot close", domain.ErrInvalidTransition, ticket.CurrentRole)
	}

	now := s.now()
	status := domain.TicketStatusClosed
	resolution = strings.TrimSpace(resolution)
	updated, _, err := s.recorder.Record(ctx, Transition{
		Ticket:       ticket,
		ActorID:      actor.ID,
		TargetUserID: ticket.CurrentHolderID,
		TargetRole:   ticket.CurrentRole,
		Action:       domain.ActionClosed,
		Reason:       resolution,
		Patch: domain.TicketPatch{
			Status:      &status,
			IsEscalated: ptrBool(false),
			Resolution:  &resolution,
			ResolvedAt:  &now,
		},
	}, now)
	return updated, err
}

// GetTicket returns the ticket and its assignment history.
func (s *WorkflowService) GetTicket(ctx context.Context, ticketID string) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	history, err := s.assignments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return &TicketDetail{Ticket: ticket, History: history}, nil
}

// ListTickets returns tickets matching filter.
func (s *WorkflowService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, persistenceError(err)
	}
	return tickets, nil
}

// SLAStatus evaluates the ticket against its SLA at the current time.
func (s *WorkflowService) SLAStatus(ctx context.Context, ticketID string) (*domain.Ticket, sla.Evaluation, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, sla.Evaluation{}, err
	}
	holidays, err := s.calendar.ListHolidayDates(ctx)
	if err != nil {
		return nil, sla.Evaluation{}, persistenceError(err)
	}
	end := s.now()
	if ticket.ResolvedAt != nil {
		end = *ticket.ResolvedAt
	}
	return ticket, s.clock.Evaluate(ticket, end, holidays), nil
}

func (s *WorkflowService) loadOpen(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return nil, domain.ErrTicketClosed
	}
	return ticket, nil
}

func (s *WorkflowService) activeSection(ctx context.Context, id string) (*domain.Section, error) {
	section, err := s.sections.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSectionNotFound) {
		return nil, apperrors.NewNotFound("section", map[string]any{"section_id": id})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !section.IsActive {
		return nil, apperrors.NewConflict("section inactive", map[string]any{"section_id": id})
	}
	return section, nil
}

func requireHolder(actor *domain.StaffMember, ticket *domain.Ticket) error {
	if actor == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	if actor.IsAdmin() || actor.ID == ticket.CurrentHolderID {
		return nil
	}
	return apperrors.NewForbidden("only the current holder may act on this ticket")
}

// normalizeSeverity keeps severity on complaints only.
func normalizeSeverity(category domain.TicketCategory, severity domain.Severity) (domain.Severity, error) {
	if severity == "" {
		severity = domain.SeverityNone
	}
	if !severity.Valid() {
		return "", apperrors.NewValidationError("invalid severity", map[string]any{"severity": severity})
	}
	if category != domain.CategoryComplaint && severity != domain.SeverityNone {
		return "", apperrors.NewValidationError("only complaints carry a severity", map[string]any{"category": category})
	}
	return severity, nil
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func ptrBool(v bool) *bool {
	return &v
}
