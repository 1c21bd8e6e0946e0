package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/sla"
)

// TicketsHandler exposes the workflow actions staff take on tickets.
type TicketsHandler struct {
	workflow *service.WorkflowService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(workflow *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{workflow: workflow}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	ticket, err := h.workflow.CreateTicket(c.UserContext(), staff, service.CreateTicketInput{
		Category:        domain.TicketCategory(strings.ToUpper(string(req.Category))),
		Severity:        domain.Severity(strings.ToUpper(string(req.Severity))),
		SectionID:       req.SectionID,
		Subject:         req.Subject,
		Description:     req.Description,
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		Channel:         req.Channel,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketFilter(c, staff)
	if err != nil {
		return err
	}
	tickets, err := h.workflow.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	detail, err := h.workflow.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail.Ticket, detail.History)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	detail, err := h.workflow.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	history := historyResponses(detail.History)
	if history == nil {
		history = []dto.AssignmentRecordResponse{}
	}
	return c.JSON(fiber.Map{"data": history})
}

// SLA GET /tickets/:id/sla.
func (h *TicketsHandler) SLA(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	ticket, eval, err := h.workflow.SLAStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaResponse(ticket, eval)})
}

// RateTicket POST /tickets/:id/rate.
func (h *TicketsHandler) RateTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	ticket, err := h.workflow.RateTicket(c.UserContext(), staff, c.Params("id"), service.RateInput{
		Severity:  domain.Severity(strings.ToUpper(string(req.Severity))),
		SectionID: req.SectionID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AssignNext POST /tickets/:id/assign-next.
func (h *TicketsHandler) AssignNext(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignNextRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	}
	ticket, err := h.workflow.AssignToNext(c.UserContext(), staff, c.Params("id"), service.AssignInput{
		Reason:       req.Reason,
		TargetUserID: req.TargetUserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Attend POST /tickets/:id/attend.
func (h *TicketsHandler) Attend(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.workflow.Attend(c.UserContext(), staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Reverse POST /tickets/:id/reverse.
func (h *TicketsHandler) Reverse(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := parseReason(c)
	if err != nil {
		return err
	}
	ticket, err := h.workflow.Reverse(c.UserContext(), staff, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := parseReason(c)
	if err != nil {
		return err
	}
	ticket, err := h.workflow.Close(c.UserContext(), staff, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

func parseReason(c *fiber.Ctx) (dto.ReasonRequest, error) {
	var req dto.ReasonRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	return req, nil
}

// parseTicketFilter reads list filters. mine=true narrows to the caller's tickets.
func parseTicketFilter(c *fiber.Ctx, staff *domain.StaffMember) (repository.TicketFilter, error) {
	var filter repository.TicketFilter
	for _, status := range splitQuery(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(status)))
	}
	for _, category := range splitQuery(c, "category") {
		filter.Categories = append(filter.Categories, domain.TicketCategory(strings.ToUpper(category)))
	}
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return filter, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		filter.Role = &role
	}
	if holder := c.Query("holder_id"); holder != "" {
		filter.HolderID = &holder
	}
	if parseBoolQuery(c, "mine", false) {
		filter.HolderID = &staff.ID
	}
	if sectionID := c.Query("section_id"); sectionID != "" {
		filter.SectionID = &sectionID
	}
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))
	filter.Limit, filter.Offset = pageParams(c)
	return filter, nil
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		ExternalKey:     ticket.ExternalKey,
		Category:        ticket.Category,
		Severity:        ticket.Severity,
		UnitKind:        ticket.UnitKind,
		SectionID:       ticket.SectionID,
		Subject:         ticket.Subject,
		Status:          ticket.Status,
		CurrentRole:     ticket.CurrentRole,
		CurrentHolderID: ticket.CurrentHolderID,
		IsEscalated:     ticket.IsEscalated,
		Version:         ticket.Version,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.AssignmentRecord) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary:   ticketSummary(ticket),
		Description:     ticket.Description,
		CustomerName:    ticket.CustomerName,
		CustomerContact: ticket.CustomerContact,
		Channel:         ticket.Channel,
		Resolution:      ticket.Resolution,
		ResolvedAt:      ticket.ResolvedAt,
		History:         historyResponses(history),
	}
}

func historyResponses(records []domain.AssignmentRecord) []dto.AssignmentRecordResponse {
	if len(records) == 0 {
		return nil
	}
	out := make([]dto.AssignmentRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, dto.AssignmentRecordResponse{
			ID:           record.ID,
			ActorID:      record.ActorID,
			TargetUserID: record.TargetUserID,
			TargetRole:   record.TargetRole,
			Action:       record.Action,
			Reason:       record.Reason,
			CreatedAt:    record.CreatedAt,
		})
	}
	return out
}

func slaResponse(ticket *domain.Ticket, eval sla.Evaluation) dto.SLAResponse {
	return dto.SLAResponse{
		TicketID:    ticket.ID,
		ElapsedDays: eval.Elapsed,
		Threshold:   eval.Threshold,
		Applies:     eval.Applies,
		Breached:    eval.Breached,
	}
}
