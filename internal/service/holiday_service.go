package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/sla"
	apperrors "github.com/spec-kit/servicedesk/pkg/errorutil"
)

// HolidayCalendar supplies the dates excluded from working-day counts.
type HolidayCalendar interface {
	ListHolidayDates(ctx context.Context) (sla.HolidaySet, error)
}

// HolidayService manages the public-holiday calendar.
type HolidayService struct {
	holidays repository.HolidayRepository
}

// NewHolidayService builds the service.
func NewHolidayService(holidays repository.HolidayRepository) *HolidayService {
	return &HolidayService{holidays: holidays}
}

// ListHolidayDates returns the calendar as a set.
func (s *HolidayService) ListHolidayDates(ctx context.Context) (sla.HolidaySet, error) {
	holidays, err := s.holidays.List(ctx)
	if err != nil {
		return nil, err
	}
	set := sla.NewHolidaySet()
	for _, holiday := range holidays {
		set.Add(holiday.Date)
	}
	return set, nil
}

// List returns every holiday ordered by date.
func (s *HolidayService) List(ctx context.Context) ([]domain.Holiday, error) {
	return s.holidays.List(ctx)
}

// Add stores a holiday. Adding an existing date renames it.
func (s *HolidayService) Add(ctx context.Context, actor *domain.StaffMember, date time.Time, name string) (*domain.Holiday, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, apperrors.NewValidationError("date is required", nil)
	}
	holiday := &domain.Holiday{Date: date, Name: strings.TrimSpace(name)}
	if err := s.holidays.Upsert(ctx, holiday); err != nil {
		return nil, apperrors.MapError(err)
	}
	return holiday, nil
}

// Remove deletes the holiday on date, if any.
func (s *HolidayService) Remove(ctx context.Context, actor *domain.StaffMember, date time.Time) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return apperrors.MapError(s.holidays.Delete(ctx, date))
}
