package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-issue-service/internal/api/dto"
	"github.com/spec-kit/civic-issue-service/internal/auth"
	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/service"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// AdminHandler groups the admin-only surface: assignment and rejection,
// account moderation, staff management, the full payment ledger and the
// dashboard counters. Role gating happens in the route group middleware;
// the services re-check where the rule is semantic rather than positional.
type AdminHandler struct {
	workflow *service.WorkflowService
	accounts *service.AccountService
	payments *service.PaymentService
	stats    *service.StatsService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(workflow *service.WorkflowService, accounts *service.AccountService, payments *service.PaymentService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{workflow: workflow, accounts: accounts, payments: payments, stats: stats}
}

// AssignStaff PATCH /admin/issues/:id/assign.
func (h *AdminHandler) AssignStaff(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AssignStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffEmail == "" {
		return apperrors.NewValidationError("missing required fields", map[string]any{"staffEmail": "required"})
	}

	issue, err := h.workflow.AssignStaff(c.UserContext(), actor, c.Params("id"), req.StaffEmail)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"issue": issueSummary(issue)})
}

// RejectIssue PATCH /admin/issues/:id/reject.
func (h *AdminHandler) RejectIssue(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	issue, err := h.workflow.RejectIssue(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"issue": issueSummary(issue)})
}

// ListUsers GET /admin/users?role=&page=&limit=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var role *domain.Role
	if roleStr := c.Query("role"); roleStr != "" {
		parsed := domain.Role(roleStr)
		if !parsed.Valid() {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": roleStr})
		}
		role = &parsed
	}
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)

	accounts, err := h.accounts.ListAccounts(c.UserContext(), role, limit, (page-1)*limit)
	if err != nil {
		return err
	}
	profiles := make([]dto.ProfileResponse, 0, len(accounts))
	for i := range accounts {
		profiles = append(profiles, profileResponse(&accounts[i]))
	}
	return c.JSON(fiber.Map{"users": profiles, "page": page, "limit": limit})
}

// SetBlocked PATCH /admin/users/:email/block.
func (h *AdminHandler) SetBlocked(c *fiber.Ctx) error {
	var req dto.SetBlockedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.accounts.SetBlocked(c.UserContext(), c.Params("email"), req.Blocked); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "user updated"})
}

// ListStaff GET /admin/staff.
func (h *AdminHandler) ListStaff(c *fiber.Ctx) error {
	role := domain.RoleStaff
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)

	accounts, err := h.accounts.ListAccounts(c.UserContext(), &role, limit, (page-1)*limit)
	if err != nil {
		return err
	}
	profiles := make([]dto.ProfileResponse, 0, len(accounts))
	for i := range accounts {
		profiles = append(profiles, profileResponse(&accounts[i]))
	}
	return c.JSON(fiber.Map{"staff": profiles, "page": page, "limit": limit})
}

// CreateStaff POST /admin/staff.
func (h *AdminHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.accounts.CreateStaff(c.UserContext(), service.StaffCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		PhotoURL: req.Photo,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"user": profileResponse(account)})
}

// UpdateStaff PATCH /admin/staff/:email.
func (h *AdminHandler) UpdateStaff(c *fiber.Ctx) error {
	var req dto.UpdateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.accounts.UpdateStaff(c.UserContext(), c.Params("email"), service.StaffUpdateInput{
		Name:     req.Name,
		PhotoURL: req.Photo,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": profileResponse(account)})
}

// DeleteStaff DELETE /admin/staff/:email.
func (h *AdminHandler) DeleteStaff(c *fiber.Ctx) error {
	if err := h.accounts.DeleteStaff(c.UserContext(), c.Params("email")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "staff deleted"})
}

// ListPayments GET /admin/payments?page=&limit=.
func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 20)

	records, total, err := h.payments.ListAll(c.UserContext(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.PaymentListResponse{
		Payments:    paymentResponses(records),
		TotalAmount: total,
	})
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	byStatus := make(map[string]int, len(stats.IssuesByStatus))
	for status, count := range stats.IssuesByStatus {
		byStatus[string(status)] = count
	}
	return c.JSON(fiber.Map{
		"issuesByStatus": byStatus,
		"totalIssues":    stats.TotalIssues,
		"totalCitizens":  stats.TotalCitizens,
		"totalStaff":     stats.TotalStaff,
		"totalRevenue":   stats.TotalRevenue,
	})
}
