package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRepositories are the repositories bound to one transaction.
type TxRepositories struct {
	Tickets     TicketRepository
	Assignments AssignmentRepository
}

// Transactor runs fn so that every write through the given repositories commits or
// rolls back together.
type Transactor interface {
	Atomically(ctx context.Context, fn func(repos TxRepositories) error) error
}

type pgTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor returns a Postgres-backed Transactor.
func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgTransactor{pool: pool}
}

func (t *pgTransactor) Atomically(ctx context.Context, fn func(repos TxRepositories) error) error {
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(TxRepositories{
			Tickets:     &ticketRepository{db: tx},
			Assignments: &assignmentRepository{db: tx},
		})
	})
}

func scanRole(raw string) (domain.Role, error) {
	if raw == "" {
		return "", nil
	}
	return domain.ParseRole(raw)
}
