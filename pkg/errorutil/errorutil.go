package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

type sentinelMapping struct {
	target  error
	code    string
	message string
	status  int
}

// workflowErrors maps domain sentinels onto API codes. Order matters: the first match wins.
var workflowErrors = []sentinelMapping{
	{domain.ErrTicketNotFound, "NOT_FOUND", "ticket not found", http.StatusNotFound},
	{domain.ErrTicketClosed, "TICKET_CLOSED", "ticket is closed", http.StatusConflict},
	{domain.ErrInvalidTransition, "INVALID_TRANSITION", "transition not allowed for ticket", http.StatusConflict},
	{domain.ErrEscalatedHolder, "ESCALATED_HOLDER", "escalated holder may only close or reverse the ticket", http.StatusConflict},
	{domain.ErrNoPriorStep, "NO_PRIOR_STEP", "ticket has no prior step to return to", http.StatusConflict},
	{domain.ErrUserNotFound, "USER_NOT_FOUND", "no eligible holder for role", http.StatusUnprocessableEntity},
	{domain.ErrConcurrentModification, "CONCURRENT_MODIFICATION", "ticket was modified concurrently, retry", http.StatusConflict},
	{domain.ErrSweepInProgress, "SWEEP_IN_PROGRESS", "escalation sweep already running", http.StatusConflict},
	{domain.ErrPersistenceFailure, "PERSISTENCE_FAILURE", "ticket store unavailable", http.StatusServiceUnavailable},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, mapping := range workflowErrors {
		if errors.Is(err, mapping.target) {
			return &DomainError{
				Code:       mapping.code,
				Message:    mapping.message,
				HTTPStatus: mapping.status,
				Err:        err,
			}
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &DomainError{
			Code:       "NOT_FOUND",
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{},
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts err into a DomainError, leaving nil untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
