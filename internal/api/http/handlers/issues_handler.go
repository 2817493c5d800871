package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-issue-service/internal/api/dto"
	"github.com/spec-kit/civic-issue-service/internal/auth"
	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/repository"
	"github.com/spec-kit/civic-issue-service/internal/service"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// IssuesHandler manages the public and citizen-facing issue endpoints.
type IssuesHandler struct {
	workflow *service.WorkflowService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(workflow *service.WorkflowService) *IssuesHandler {
	return &IssuesHandler{workflow: workflow}
}

// List GET /issues. Public.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	filter := parseIssueQuery(c)
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

// Get GET /issues/:id. Public; includes the timeline.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	issue, timeline, err := h.workflow.GetIssue(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"issue": issueDetail(issue, timeline)})
}

// Submit POST /issues. Citizen only; quota enforced.
func (h *IssuesHandler) Submit(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.SubmitIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.workflow.SubmitIssue(c.UserContext(), actor, service.SubmitIssueInput{
		Title:         req.Title,
		Category:      req.Category,
		Description:   req.Description,
		Location:      req.Location,
		ImageURL:      req.Image,
		EstimatedCost: req.EstimatedCost,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"issue": issueSummary(issue)})
}

// Edit PATCH /issues/:id. Owner, pending only.
func (h *IssuesHandler) Edit(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.EditIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.workflow.EditIssue(c.UserContext(), actor, c.Params("id"), service.EditIssueInput{
		Title:         req.Title,
		Category:      req.Category,
		Description:   req.Description,
		Location:      req.Location,
		ImageURL:      req.Image,
		EstimatedCost: req.EstimatedCost,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"issue": issueSummary(issue)})
}

// Delete DELETE /issues/:id. Owner, pending only.
func (h *IssuesHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.workflow.DeleteIssue(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "issue deleted"})
}

// Upvote PATCH /issues/:id/upvote. Any authenticated account, never the
// reporter.
func (h *IssuesHandler) Upvote(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	issue, err := h.workflow.Upvote(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"issue": issueSummary(issue)})
}

func parseIssueQuery(c *fiber.Ctx) repository.IssueFilter {
	filter := repository.IssueFilter{
		Page:  parseInt(c.Query("page"), 1),
		Limit: parseInt(c.Query("limit"), 20),
	}
	if reportedBy := c.Query("reportedBy"); reportedBy != "" {
		filter.ReportedBy = &reportedBy
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.IssueStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.IssuePriority(priorityStr)
		filter.Priority = &priority
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func issueSummary(issue *domain.Issue) dto.IssueSummary {
	return dto.IssueSummary{
		ID:          issue.ID,
		Title:       issue.Title,
		Category:    issue.Category,
		Location:    issue.Location,
		Image:       issue.ImageURL,
		ReportedBy:  issue.ReportedBy,
		Status:      issue.Status,
		Priority:    issue.Priority,
		AssignedTo:  issue.AssignedTo,
		UpvoteCount: issue.UpvoteCount,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
	}
}

func issueDetail(issue *domain.Issue, timeline []domain.TimelineEntry) dto.IssueDetailResponse {
	entries := make([]dto.TimelineResponse, 0, len(timeline))
	for _, entry := range timeline {
		entries = append(entries, dto.TimelineResponse{
			Status:    entry.Status,
			Message:   entry.Message,
			Actor:     entry.ActorEmail,
			ActorRole: entry.ActorRole,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.IssueDetailResponse{
		ID:            issue.ID,
		Title:         issue.Title,
		Category:      issue.Category,
		Description:   issue.Description,
		Location:      issue.Location,
		Image:         issue.ImageURL,
		EstimatedCost: issue.EstimatedCost,
		ReportedBy:    issue.ReportedBy,
		Status:        issue.Status,
		Priority:      issue.Priority,
		AssignedTo:    issue.AssignedTo,
		UpvotedBy:     issue.UpvotedBy,
		UpvoteCount:   issue.UpvoteCount,
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
		ResolvedAt:    issue.ResolvedAt,
		ClosedAt:      issue.ClosedAt,
		Timeline:      entries,
	}
}
