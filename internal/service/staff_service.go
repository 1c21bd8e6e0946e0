package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/errorutil"
)

// StaffService manages sections and staff members.
type StaffService struct {
	sections   repository.SectionRepository
	staff      repository.StaffRepository
	bcryptCost int
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role      *domain.Role
	SectionID *string
	Active    *bool
	Limit     int
	Offset    int
}

// CreateStaffInput describes a new staff account.
type CreateStaffInput struct {
	Name      string
	Email     string
	Password  string
	Role      domain.Role
	SectionID *string
}

// OrgDependencies encapsulates repositories required for org management.
type OrgDependencies struct {
	SectionRepo repository.SectionRepository
	StaffRepo   repository.StaffRepository
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, deps OrgDependencies) *StaffService {
	return &StaffService{
		sections:   deps.SectionRepo,
		staff:      deps.StaffRepo,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

func requireAdmin(actor *domain.StaffMember) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateSection creates a new section.
func (s *StaffService) CreateSection(ctx context.Context, actor *domain.StaffMember, name, description string) (*domain.Section, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	section := &domain.Section{
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, apperrors.MapError(err)
	}
	return section, nil
}

// ListSections returns the active sections.
func (s *StaffService) ListSections(ctx context.Context) ([]domain.Section, error) {
	return s.sections.ListActive(ctx)
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor *domain.StaffMember, input CreateStaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if input.SectionID != nil {
		section, err := s.sections.GetByID(ctx, *input.SectionID)
		if errors.Is(err, repository.ErrSectionNotFound) {
			return nil, apperrors.NewNotFound("section", map[string]any{"section_id": *input.SectionID})
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !section.IsActive {
			return nil, apperrors.NewConflict("section inactive", map[string]any{"section_id": *input.SectionID})
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffMember{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		SectionID:    input.SectionID,
		Active:       true,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if errors.Is(err, repository.ErrStaffEmailTaken) {
			return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, actor *domain.StaffMember, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.staff.List(ctx, repository.StaffFilter{
		Role:      filters.Role,
		SectionID: filters.SectionID,
		Active:    filters.Active,
		Limit:     filters.Limit,
		Offset:    filters.Offset,
	})
}

// SetStaffActive activates or deactivates a staff member. Inactive staff are never
// picked as holders.
func (s *StaffService) SetStaffActive(ctx context.Context, actor *domain.StaffMember, staffID string, active bool) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	staff.Active = active
	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// EnsureAdmin creates an admin account for email unless one already exists. It is
// how a fresh deployment gets its first administrator.
func (s *StaffService) EnsureAdmin(ctx context.Context, email, password string) (*domain.StaffMember, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, false, apperrors.NewValidationError("email and password are required", nil)
	}
	existing, err := s.staff.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrStaffNotFound) {
		return nil, false, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	admin := &domain.StaffMember{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
	}
	if err := s.staff.Create(ctx, admin); err != nil {
		return nil, false, apperrors.MapError(err)
	}
	return admin, true, nil
}
