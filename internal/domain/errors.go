package domain

import "errors"

var (
	// ErrInvalidTransition signals a role missing from its path or a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrEscalatedHolder is returned when a holder of a supervisory role outside the
	// workflow path tries to hand the ticket forward. That holder may only close or reverse.
	ErrEscalatedHolder = errors.New("escalated holder may only close or reverse")
	// ErrNoPriorStep is returned when a reversal has no forward history to return to.
	ErrNoPriorStep = errors.New("no prior step")
	// ErrUserNotFound is returned when no eligible holder exists for a role.
	ErrUserNotFound = errors.New("user not found")
	// ErrConcurrentModification is returned when a versioned update lost a race.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrPersistenceFailure wraps store failures.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrNotificationFailure wraps best-effort delivery failures.
	ErrNotificationFailure = errors.New("notification failure")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketClosed        = errors.New("ticket closed")
	ErrSweepInProgress     = errors.New("escalation sweep already running")
)
