package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// AssignmentRepository stores the append-only assignment log.
type AssignmentRepository interface {
	// Append stores record. Its timestamp is raised to the ticket's latest record when
	// needed so the log never goes backwards.
	Append(ctx context.Context, record *domain.AssignmentRecord) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentRecord, error)
}

type assignmentRepository struct {
	db querier
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{db: pool}
}

func (r *assignmentRepository) Append(ctx context.Context, record *domain.AssignmentRecord) error {
	const query = `
        INSERT INTO assignment_records (ticket_id, actor_id, target_user_id, target_role, action, reason, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,
            GREATEST($7::timestamptz, COALESCE((SELECT MAX(created_at) FROM assignment_records WHERE ticket_id=$1), $7::timestamptz)))
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		record.TicketID,
		record.ActorID,
		record.TargetUserID,
		record.TargetRole,
		record.Action,
		record.Reason,
		record.CreatedAt,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignmentRecord, error) {
	const query = `
        SELECT id, ticket_id, actor_id, target_user_id, target_role, action, reason, created_at
        FROM assignment_records WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRecord
	for rows.Next() {
		var (
			record domain.AssignmentRecord
			role   string
		)
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.ActorID,
			&record.TargetUserID,
			&role,
			&record.Action,
			&record.Reason,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		if record.TargetRole, err = scanRole(role); err != nil {
			return nil, fmt.Errorf("assignment %s: %w", record.ID, err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
