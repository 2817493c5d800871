package dto

import (
	"time"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// SubmitIssueRequest payload.
type SubmitIssueRequest struct {
	Title         string `json:"title"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	Image         string `json:"image"`
	EstimatedCost *int64 `json:"estimatedCost,omitempty"`
}

// EditIssueRequest payload. Absent fields are left unchanged.
type EditIssueRequest struct {
	Title         *string `json:"title"`
	Category      *string `json:"category"`
	Description   *string `json:"description"`
	Location      *string `json:"location"`
	Image         *string `json:"image"`
	EstimatedCost *int64  `json:"estimatedCost"`
}

// AssignStaffRequest payload.
type AssignStaffRequest struct {
	StaffEmail string `json:"staffEmail"`
}

// AdvanceStatusRequest payload.
type AdvanceStatusRequest struct {
	Status domain.IssueStatus `json:"status"`
}

// IssueSummary response.
type IssueSummary struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Category    string               `json:"category"`
	Location    string               `json:"location"`
	Image       string               `json:"image"`
	ReportedBy  string               `json:"reportedBy"`
	Status      domain.IssueStatus   `json:"status"`
	Priority    domain.IssuePriority `json:"priority"`
	AssignedTo  *string              `json:"assignedTo"`
	UpvoteCount int                  `json:"upvoteCount"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// IssueDetailResponse provides the full record plus its timeline so any
// caller can reconcile state without a second read.
type IssueDetailResponse struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Category      string               `json:"category"`
	Description   string               `json:"description"`
	Location      string               `json:"location"`
	Image         string               `json:"image"`
	EstimatedCost *int64               `json:"estimatedCost"`
	ReportedBy    string               `json:"reportedBy"`
	Status        domain.IssueStatus   `json:"status"`
	Priority      domain.IssuePriority `json:"priority"`
	AssignedTo    *string              `json:"assignedTo"`
	UpvotedBy     []string             `json:"upvotedBy"`
	UpvoteCount   int                  `json:"upvoteCount"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	ResolvedAt    *time.Time           `json:"resolvedAt"`
	ClosedAt      *time.Time           `json:"closedAt"`
	Timeline      []TimelineResponse   `json:"timeline"`
}

// TimelineResponse represents one audit entry.
type TimelineResponse struct {
	Status    domain.IssueStatus `json:"status"`
	Message   string             `json:"message"`
	Actor     string             `json:"actor"`
	ActorRole domain.Role        `json:"actorRole"`
	CreatedAt time.Time          `json:"createdAt"`
}

// IssueListResponse wraps a page of issues.
type IssueListResponse struct {
	Issues []IssueSummary `json:"issues"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}
