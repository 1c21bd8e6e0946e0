package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// ErrSectionNotFound is returned when a section lookup misses.
var ErrSectionNotFound = errors.New("section not found")

// SectionRepository handles section persistence.
type SectionRepository interface {
	Create(ctx context.Context, section *domain.Section) error
	Update(ctx context.Context, section *domain.Section) error
	GetByID(ctx context.Context, id string) (*domain.Section, error)
	ListActive(ctx context.Context) ([]domain.Section, error)
}

type sectionRepository struct {
	pool *pgxpool.Pool
}

// NewSectionRepository builds repository.
func NewSectionRepository(pool *pgxpool.Pool) SectionRepository {
	return &sectionRepository{pool: pool}
}

func (r *sectionRepository) Create(ctx context.Context, section *domain.Section) error {
	const query = `
        INSERT INTO sections (name, description, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, section.Name, section.Description, section.IsActive).
		Scan(&section.ID, &section.CreatedAt, &section.UpdatedAt)
}

func (r *sectionRepository) Update(ctx context.Context, section *domain.Section) error {
	const query = `
        UPDATE sections SET name=$1, description=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, section.Name, section.Description, section.IsActive, section.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSectionNotFound
	}
	return nil
}

func (r *sectionRepository) GetByID(ctx context.Context, id string) (*domain.Section, error) {
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM sections WHERE id=$1`
	var section domain.Section
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&section.ID,
		&section.Name,
		&section.Description,
		&section.IsActive,
		&section.CreatedAt,
		&section.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepository) ListActive(ctx context.Context) ([]domain.Section, error) {
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM sections WHERE is_active = TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Section
	for rows.Next() {
		var section domain.Section
		if err := rows.Scan(&section.ID, &section.Name, &section.Description, &section.IsActive, &section.CreatedAt, &section.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, section)
	}
	return result, rows.Err()
}
