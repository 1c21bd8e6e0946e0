package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/worker"
)

// AdminHandler exposes escalation control and the holiday calendar.
type AdminHandler struct {
	scheduler *worker.EscalationScheduler
	holidays  *service.HolidayService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(scheduler *worker.EscalationScheduler, holidays *service.HolidayService) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, holidays: holidays}
}

// RunEscalations handles POST /admin/escalations/run.
func (h *AdminHandler) RunEscalations(c *fiber.Ctx) error {
	report, err := h.scheduler.RunNow(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// EscalationStatus handles GET /admin/escalations/status.
func (h *AdminHandler) EscalationStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.scheduler.Status()})
}

// EnableEscalations handles POST /admin/escalations/enable.
func (h *AdminHandler) EnableEscalations(c *fiber.Ctx) error {
	h.scheduler.Enable()
	return c.JSON(fiber.Map{"data": h.scheduler.Status()})
}

// DisableEscalations handles POST /admin/escalations/disable.
func (h *AdminHandler) DisableEscalations(c *fiber.Ctx) error {
	h.scheduler.Disable()
	return c.JSON(fiber.Map{"data": h.scheduler.Status()})
}

// ListHolidays handles GET /admin/holidays.
func (h *AdminHandler) ListHolidays(c *fiber.Ctx) error {
	holidays, err := h.holidays.List(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.HolidayResponse, 0, len(holidays))
	for i := range holidays {
		resp = append(resp, holidayResponse(&holidays[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AddHoliday handles POST /admin/holidays.
func (h *AdminHandler) AddHoliday(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.HolidayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	holiday, err := h.holidays.Add(c.UserContext(), admin, date, req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": holidayResponse(holiday)})
}

// RemoveHoliday handles DELETE /admin/holidays/:date.
func (h *AdminHandler) RemoveHoliday(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	date, err := parseDate(c.Params("date"))
	if err != nil {
		return err
	}
	if err := h.holidays.Remove(c.UserContext(), admin, date); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func holidayResponse(holiday *domain.Holiday) dto.HolidayResponse {
	return dto.HolidayResponse{Date: domain.DateKey(holiday.Date), Name: holiday.Name}
}
