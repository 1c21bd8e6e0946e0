package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
)

// Notifier delivers a message about a ticket to a recipient. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ticketID, senderID, recipientID, message, channel string) error
}

// Transition describes one hand-off to store.
type Transition struct {
	// Ticket is the state the decision was made on. Its Version guards the update.
	Ticket       *domain.Ticket
	ActorID      string
	TargetUserID string
	TargetRole   domain.Role
	Action       domain.AssignmentAction
	Reason       string
	// Patch carries the remaining ticket changes. Role and holder are taken from the target.
	Patch domain.TicketPatch
}

// Recorder stores assignment records together with the ticket update they describe.
type Recorder struct {
	tx         repository.Transactor
	notifier   Notifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	channel    string
	systemID   string
}

// RecorderDependencies bundles recorder collaborators.
type RecorderDependencies struct {
	Transactor repository.Transactor
	Notifier   Notifier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Channel    string

	// SystemActorID marks records written by the escalation sweep.
	SystemActorID string
}

// NewRecorder builds a recorder.
func NewRecorder(deps RecorderDependencies) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		tx:         deps.Transactor,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		channel:    deps.Channel,
		systemID:   deps.SystemActorID,
	}
}

// Record applies t atomically: the versioned ticket update and the appended record
// commit together or not at all. Notification happens afterwards and never undoes
// the write.
func (r *Recorder) Record(ctx context.Context, t Transition, at time.Time) (*domain.Ticket, *domain.AssignmentRecord, error) {
	patch := t.Patch
	role, holder := t.TargetRole, t.TargetUserID
	patch.CurrentRole = &role
	patch.CurrentHolderID = &holder

	record := &domain.AssignmentRecord{
		TicketID:     t.Ticket.ID,
		ActorID:      t.ActorID,
		TargetUserID: t.TargetUserID,
		TargetRole:   t.TargetRole,
		Action:       t.Action,
		Reason:       t.Reason,
		CreatedAt:    at,
	}

	var updated *domain.Ticket
	err := r.tx.Atomically(ctx, func(repos repository.TxRepositories) error {
		var err error
		updated, err = repos.Tickets.CompareAndUpdate(ctx, t.Ticket.ID, t.Ticket.Version, patch)
		if err != nil {
			return err
		}
		return repos.Assignments.Append(ctx, record)
	})
	if err != nil {
		return nil, nil, persistenceError(err)
	}

	r.announce(ctx, updated, record)
	return updated, record, nil
}

// Open stores a new ticket with its initial Assigned record.
func (r *Recorder) Open(ctx context.Context, ticket *domain.Ticket, actorID, reason string) (*domain.AssignmentRecord, error) {
	record := &domain.AssignmentRecord{
		ActorID:      actorID,
		TargetUserID: ticket.CurrentHolderID,
		TargetRole:   ticket.CurrentRole,
		Action:       domain.ActionAssigned,
		Reason:       reason,
		CreatedAt:    ticket.CreatedAt,
	}
	err := r.tx.Atomically(ctx, func(repos repository.TxRepositories) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		record.TicketID = ticket.ID
		return repos.Assignments.Append(ctx, record)
	})
	if err != nil {
		return nil, persistenceError(err)
	}

	r.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    r.actorFor(actorID),
		Payload: events.TicketCreatedPayload{
			ExternalKey: ticket.ExternalKey,
			Category:    ticket.Category,
			Severity:    ticket.Severity,
			HolderID:    ticket.CurrentHolderID,
			HolderRole:  ticket.CurrentRole,
		},
	})
	r.notify(ctx, ticket, record)
	return record, nil
}

func (r *Recorder) announce(ctx context.Context, ticket *domain.Ticket, record *domain.AssignmentRecord) {
	r.publish(ctx, events.Event{
		Type:     events.ForAction(record.Action),
		TicketID: ticket.ID,
		Actor:    r.actorFor(record.ActorID),
		Payload: events.TicketTransitionPayload{
			Action:       record.Action,
			Status:       ticket.Status,
			TargetUserID: record.TargetUserID,
			TargetRole:   record.TargetRole,
			Reason:       record.Reason,
		},
	})
	r.notify(ctx, ticket, record)
}

func (r *Recorder) notify(ctx context.Context, ticket *domain.Ticket, record *domain.AssignmentRecord) {
	if r.notifier == nil || record.TargetUserID == "" || record.TargetUserID == record.ActorID {
		return
	}
	message := notificationMessage(ticket, record)
	if err := r.notifier.Notify(ctx, ticket.ID, record.ActorID, record.TargetUserID, message, r.channel); err != nil {
		r.metrics.RecordNotificationFailure(r.channel)
		r.logger.Warn("notification failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient_id", record.TargetUserID),
			zap.Error(err))
	}
}

func (r *Recorder) publish(ctx context.Context, event events.Event) {
	if r.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func notificationMessage(ticket *domain.Ticket, record *domain.AssignmentRecord) string {
	switch record.Action {
	case domain.ActionEscalated:
		return fmt.Sprintf("Ticket %s was escalated to you. %s", ticket.ExternalKey, record.Reason)
	case domain.ActionReversed:
		return fmt.Sprintf("Ticket %s was returned to you. %s", ticket.ExternalKey, record.Reason)
	case domain.ActionClosed:
		return fmt.Sprintf("Ticket %s was closed.", ticket.ExternalKey)
	default:
		return fmt.Sprintf("Ticket %s was assigned to you.", ticket.ExternalKey)
	}
}

func (r *Recorder) actorFor(actorID string) events.Actor {
	if actorID == "" || actorID == r.systemID {
		return events.Actor{Type: domain.SubjectTypeSystem}
	}
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &actorID}
}

// persistenceError keeps the typed outcomes callers act on and reports everything
// else as a persistence failure.
func persistenceError(err error) error {
	switch {
	case errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrPersistenceFailure),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
}
