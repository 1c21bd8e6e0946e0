package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
)

// StaffHandler exposes staff login and organisation endpoints.
type StaffHandler struct {
	authService *service.AuthService
	orgService  *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, orgService *service.StaffService) *StaffHandler {
	return &StaffHandler{authService: authService, orgService: orgService}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	staff, token, exp, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Me handles GET /staff/me.
func (h *StaffHandler) Me(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// CreateSection handles POST /admin/sections.
func (h *StaffHandler) CreateSection(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SectionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(http.StatusBadRequest, "name required")
	}
	section, err := h.orgService.CreateSection(c.UserContext(), admin, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sectionResponse(section)})
}

// ListSections handles GET /sections.
func (h *StaffHandler) ListSections(c *fiber.Ctx) error {
	sections, err := h.orgService.ListSections(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.SectionResponse, 0, len(sections))
	for i := range sections {
		resp = append(resp, sectionResponse(&sections[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateStaff handles POST /admin/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, password required")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	staff, err := h.orgService.CreateStaffMember(c.UserContext(), admin, service.CreateStaffInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		SectionID: req.SectionID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

// ListStaff handles GET /admin/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filters, err := parseStaffListFilters(c)
	if err != nil {
		return err
	}
	list, err := h.orgService.ListStaffMembers(c.UserContext(), admin, filters)
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// SetStaffActive handles PATCH /admin/staff/:id/active.
func (h *StaffHandler) SetStaffActive(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffActiveRequest
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return fiber.NewError(http.StatusBadRequest, "active flag required")
	}
	staff, err := h.orgService.SetStaffActive(c.UserContext(), admin, c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

func parseStaffListFilters(c *fiber.Ctx) (service.StaffListFilters, error) {
	var filters service.StaffListFilters
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return filters, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		filters.Role = &role
	}
	if sectionID := c.Query("section_id"); sectionID != "" {
		filters.SectionID = &sectionID
	}
	if c.Query("active") != "" {
		active := parseBoolQuery(c, "active", true)
		filters.Active = &active
	}
	filters.Limit, filters.Offset = pageParams(c)
	return filters, nil
}

func sectionResponse(section *domain.Section) dto.SectionResponse {
	return dto.SectionResponse{
		ID:          section.ID,
		Name:        section.Name,
		Description: section.Description,
		UnitKind:    section.Kind(),
		IsActive:    section.IsActive,
	}
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        staff.ID,
		Name:      staff.Name,
		Email:     staff.Email,
		Role:      staff.Role,
		SectionID: staff.SectionID,
		Active:    staff.Active,
	}
}
