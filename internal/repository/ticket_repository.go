package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TicketFilter captures staff search parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Categories  []domain.TicketCategory
	Role        *domain.Role
	HolderID    *string
	SectionID   *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	// CompareAndUpdate applies patch only when the stored version equals expectedVersion.
	CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, patch domain.TicketPatch) (*domain.Ticket, error)
}

type ticketRepository struct {
	db querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{db: pool}
}

const ticketColumns = `id, external_key, category, severity, unit_kind, section_id, subject, description,
               customer_name, customer_contact, channel, status, holder_role, current_holder_id,
               is_escalated, resolution, version, created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, category, severity, unit_kind, section_id, subject, description,
            customer_name, customer_contact, channel, status, holder_role, current_holder_id, is_escalated, version,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,1,COALESCE($15, NOW()),COALESCE($15, NOW()))
        RETURNING id, version, created_at, updated_at`
	var createdAt *time.Time
	if !ticket.CreatedAt.IsZero() {
		createdAt = &ticket.CreatedAt
	}
	return r.db.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Category,
		ticket.Severity,
		ticket.UnitKind,
		ticket.SectionID,
		ticket.Subject,
		ticket.Description,
		ticket.CustomerName,
		ticket.CustomerContact,
		ticket.Channel,
		ticket.Status,
		ticket.CurrentRole,
		ticket.CurrentHolderID,
		ticket.IsEscalated,
		createdAt,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	return ticket, err
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	statuses := make([]string, 0, len(domain.SweepableStatuses))
	for _, status := range domain.SweepableStatuses {
		statuses = append(statuses, string(status))
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status = ANY($1) ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("holder_role=$%d", len(args)))
	}
	if filter.HolderID != nil {
		args = append(args, *filter.HolderID)
		clauses = append(clauses, fmt.Sprintf("current_holder_id=$%d", len(args)))
	}
	if filter.SectionID != nil {
		args = append(args, *filter.SectionID)
		clauses = append(clauses, fmt.Sprintf("section_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	sets := []string{}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.CurrentRole != nil {
		set("holder_role", *patch.CurrentRole)
	}
	if patch.CurrentHolderID != nil {
		set("current_holder_id", *patch.CurrentHolderID)
	}
	if patch.IsEscalated != nil {
		set("is_escalated", *patch.IsEscalated)
	}
	if patch.Severity != nil {
		set("severity", *patch.Severity)
	}
	if patch.UnitKind != nil {
		set("unit_kind", *patch.UnitKind)
	}
	if patch.SectionID != nil {
		set("section_id", *patch.SectionID)
	}
	if patch.Resolution != nil {
		set("resolution", *patch.Resolution)
	}
	if patch.ResolvedAt != nil {
		set("resolved_at", *patch.ResolvedAt)
	}
	sets = append(sets, "version=version+1", "updated_at=NOW()")

	args = append(args, id, expectedVersion)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d AND version=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), ticketColumns)

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrTicketNotFound
	}
	return nil, domain.ErrConcurrentModification
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		role   string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Category,
		&ticket.Severity,
		&ticket.UnitKind,
		&ticket.SectionID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.CustomerName,
		&ticket.CustomerContact,
		&ticket.Channel,
		&ticket.Status,
		&role,
		&ticket.CurrentHolderID,
		&ticket.IsEscalated,
		&ticket.Resolution,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := scanRole(role)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", ticket.ID, err)
	}
	ticket.CurrentRole = parsed
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func normalizePage(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
