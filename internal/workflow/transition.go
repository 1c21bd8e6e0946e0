package workflow

import (
	"fmt"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Next returns the role following current in path. terminal is true when current is
// the last role, in which case next is empty. Calling Next at the terminal role keeps
// answering terminal.
func Next(path Path, current domain.Role) (next domain.Role, terminal bool, err error) {
	idx := path.IndexOf(current)
	if idx < 0 {
		return "", false, fmt.Errorf("%w: role %s not in path %v", domain.ErrInvalidTransition, current, path)
	}
	if idx == len(path)-1 {
		return "", true, nil
	}
	return path[idx+1], false, nil
}

// Step is a position a ticket held: a role and its holder.
type Step struct {
	Role   domain.Role
	UserID string
}

// Previous finds the step a reversal returns to. It replays history into the chain of
// forward hand-offs: forward records push their target, a Reversed record truncates
// the chain back to its target role and records who now holds it, Escalated and
// Closed records leave the chain alone.
// When the ticket currently sits on the chain's top, the entry below it is returned;
// when it sits off the chain (it was escalated), the chain's top is returned.
func Previous(history []domain.AssignmentRecord, current Step) (Step, error) {
	var chain []Step
	for _, record := range history {
		target := Step{Role: record.TargetRole, UserID: record.TargetUserID}
		switch {
		case record.Action.IsForward():
			chain = append(chain, target)
		case record.Action == domain.ActionReversed:
			for i := len(chain) - 1; i >= 0; i-- {
				if chain[i].Role == target.Role {
					chain = append(chain[:i], target)
					break
				}
			}
		}
	}
	if len(chain) == 0 {
		return Step{}, domain.ErrNoPriorStep
	}
	top := chain[len(chain)-1]
	if top != current {
		return top, nil
	}
	for i := len(chain) - 2; i >= 0; i-- {
		if chain[i] != current {
			return chain[i], nil
		}
	}
	return Step{}, domain.ErrNoPriorStep
}

// Handoff derives the record action and resulting status for a forward move to target.
func Handoff(path Path, target domain.Role, fromStatus domain.TicketStatus) (domain.AssignmentAction, domain.TicketStatus) {
	if fromStatus == domain.TicketStatusEscalated {
		return domain.ActionReassigned, domain.TicketStatusAssigned
	}
	idx := path.IndexOf(target)
	switch {
	case idx <= 1:
		return domain.ActionAssigned, domain.TicketStatusAssigned
	case idx == len(path)-1:
		return domain.ActionApproved, domain.TicketStatusPendingApproval
	default:
		return domain.ActionReviewed, domain.TicketStatusPendingReview
	}
}

// CanClose reports whether a ticket holding role may be closed: either role is the
// terminal role of the workflow path, or the ticket was escalated to a supervisory
// role outside that path.
func CanClose(path Path, role domain.Role, escalation Path) bool {
	if role == path.Last() {
		return true
	}
	return !path.Contains(role) && escalation.Contains(role)
}

var statusTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:            {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusEscalated, domain.TicketStatusPendingReview, domain.TicketStatusPendingApproval, domain.TicketStatusClosed},
	domain.TicketStatusAssigned:        {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusEscalated, domain.TicketStatusReturned, domain.TicketStatusPendingReview, domain.TicketStatusPendingApproval, domain.TicketStatusClosed},
	domain.TicketStatusInProgress:      {domain.TicketStatusAssigned, domain.TicketStatusEscalated, domain.TicketStatusReturned, domain.TicketStatusPendingReview, domain.TicketStatusPendingApproval, domain.TicketStatusClosed},
	domain.TicketStatusEscalated:       {domain.TicketStatusAssigned, domain.TicketStatusReturned, domain.TicketStatusClosed},
	domain.TicketStatusReturned:        {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusReturned, domain.TicketStatusPendingReview, domain.TicketStatusPendingApproval, domain.TicketStatusClosed},
	domain.TicketStatusPendingReview:   {domain.TicketStatusInProgress, domain.TicketStatusReturned, domain.TicketStatusPendingReview, domain.TicketStatusPendingApproval, domain.TicketStatusClosed},
	domain.TicketStatusPendingApproval: {domain.TicketStatusInProgress, domain.TicketStatusReturned, domain.TicketStatusPendingApproval, domain.TicketStatusClosed},
	domain.TicketStatusClosed:          {},
}

// CanTransition reports whether the status state machine allows current -> next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range statusTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
