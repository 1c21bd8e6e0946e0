package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

// Directory resolves staff members eligible to hold a workflow role.
type Directory struct {
	staff                repository.StaffRepository
	crossSectionFallback bool
}

// NewDirectory builds a directory. With crossSectionFallback a role nobody holds in the
// ticket's section is looked up system-wide.
func NewDirectory(staff repository.StaffRepository, crossSectionFallback bool) *Directory {
	return &Directory{staff: staff, crossSectionFallback: crossSectionFallback}
}

// FindUsersByRole returns active holders of role, oldest first. A nil sectionID
// searches every section.
func (d *Directory) FindUsersByRole(ctx context.Context, role domain.Role, sectionID *string) ([]domain.StaffMember, error) {
	return d.staff.FindByRole(ctx, role, sectionID)
}

// Resolve picks the holder of role for the ticket identified by key. Candidates in
// sectionID are preferred. The pick among several candidates is stable for a key.
func (d *Directory) Resolve(ctx context.Context, key string, role domain.Role, sectionID *string) (*domain.StaffMember, error) {
	candidates, err := d.FindUsersByRole(ctx, role, sectionID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && sectionID != nil && d.crossSectionFallback {
		if candidates, err = d.FindUsersByRole(ctx, role, nil); err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no active %s", domain.ErrUserNotFound, role)
	}
	picked := candidates[selectIndex(key, len(candidates))]
	return &picked, nil
}

// Lookup loads userID and checks that it is active and holds role.
func (d *Directory) Lookup(ctx context.Context, userID string, role domain.Role) (*domain.StaffMember, error) {
	member, err := d.staff.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return nil, fmt.Errorf("%w: staff %s", domain.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	if !member.Active || member.Role != role {
		return nil, fmt.Errorf("%w: staff %s is not an active %s", domain.ErrUserNotFound, userID, role)
	}
	return member, nil
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
