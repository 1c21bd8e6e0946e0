package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/errorutil"
)

func newOrg(t *testing.T) (*service.StaffService, *service.AuthService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}}
	org := service.NewStaffService(cfg, service.OrgDependencies{SectionRepo: store.Sections(), StaffRepo: store.Staff()})
	return org, service.NewAuthService(cfg, store.Staff()), store
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "want DomainError, got %v", err)
	return domainErr.HTTPStatus
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	org, authService, _ := newOrg(t)

	admin, created, err := org.EnsureAdmin(ctx, "root@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	again, created, err := org.EnsureAdmin(ctx, "root@example.com", "other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	_, token, _, err := authService.LoginStaff(ctx, "root@example.com", "pw")
	require.NoError(t, err)
	claims, err := authService.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.Subject)
}

func TestProvisionSectionsAndStaff(t *testing.T) {
	ctx := context.Background()
	org, authService, _ := newOrg(t)
	admin, _, err := org.EnsureAdmin(ctx, "root@example.com", "pw")
	require.NoError(t, err)

	section, err := org.CreateSection(ctx, admin, " Customer Directorate ", "")
	require.NoError(t, err)
	assert.Equal(t, "Customer Directorate", section.Name)
	assert.Equal(t, domain.UnitKindDirectorate, section.Kind())

	member, err := org.CreateStaffMember(ctx, admin, service.CreateStaffInput{
		Name:      "Dana",
		Email:     "dana@example.com",
		Password:  "pw",
		Role:      domain.RoleDirector,
		SectionID: &section.ID,
	})
	require.NoError(t, err)
	assert.True(t, member.Active)

	_, err = org.CreateStaffMember(ctx, admin, service.CreateStaffInput{
		Name: "Dup", Email: "DANA@example.com", Password: "pw", Role: domain.RoleAttendee,
	})
	assert.Equal(t, http.StatusConflict, httpStatus(t, err))

	_, err = org.CreateSection(ctx, member, "Other", "")
	assert.Equal(t, http.StatusForbidden, httpStatus(t, err))

	role := domain.RoleDirector
	list, err := org.ListStaffMembers(ctx, admin, service.StaffListFilters{Role: &role})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, member.ID, list[0].ID)

	_, err = org.SetStaffActive(ctx, admin, member.ID, false)
	require.NoError(t, err)
	_, _, _, err = authService.LoginStaff(ctx, "dana@example.com", "pw")
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	org, authService, _ := newOrg(t)
	_, _, err := org.EnsureAdmin(ctx, "root@example.com", "pw")
	require.NoError(t, err)

	_, _, _, err = authService.LoginStaff(ctx, "root@example.com", "nope")
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
	_, _, _, err = authService.LoginStaff(ctx, "ghost@example.com", "pw")
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}
