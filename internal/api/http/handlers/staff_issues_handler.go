package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-issue-service/internal/api/dto"
	"github.com/spec-kit/civic-issue-service/internal/auth"
	"github.com/spec-kit/civic-issue-service/internal/service"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// StaffIssuesHandler serves the assigned-work view and status advances.
type StaffIssuesHandler struct {
	workflow *service.WorkflowService
}

// NewStaffIssuesHandler constructs the handler.
func NewStaffIssuesHandler(workflow *service.WorkflowService) *StaffIssuesHandler {
	return &StaffIssuesHandler{workflow: workflow}
}

// ListAssigned GET /staff/issues. Returns the caller's queue.
func (h *StaffIssuesHandler) ListAssigned(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	filter := parseIssueQuery(c)
	filter.AssignedTo = &actor.Email

	issues, total, err := h.workflow.ListIssues(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.IssueSummary, 0, len(issues))
	for i := range issues {
		items = append(items, issueSummary(&issues[i]))
	}
	return c.JSON(dto.IssueListResponse{
		Issues: items,
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
}

// AdvanceStatus PATCH /staff/issues/:id/status.
func (h *StaffIssuesHandler) AdvanceStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AdvanceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.workflow.AdvanceStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"issue": issueSummary(issue)})
}
