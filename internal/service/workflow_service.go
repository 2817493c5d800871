package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/events"
	"github.com/spec-kit/civic-issue-service/internal/repository"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// WorkflowService owns the issue lifecycle: who may trigger which
// transition, and the timeline side effect of every accepted one. All
// preconditions are checked before any mutation; the store's conditional
// updates backstop races so a lost race surfaces as the same error the
// precondition check would have produced.
type WorkflowService struct {
	issues       repository.IssueRepository
	accounts     repository.AccountRepository
	timeline     repository.TimelineRepository
	entitlements *EntitlementService
	dispatcher   events.Dispatcher
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	IssueRepo    repository.IssueRepository
	AccountRepo  repository.AccountRepository
	TimelineRepo repository.TimelineRepository
	Entitlements *EntitlementService
	Dispatcher   events.Dispatcher
}

// SubmitIssueInput describes issue creation payload.
type SubmitIssueInput struct {
	Title         string
	Category      string
	Description   string
	Location      string
	ImageURL      string
	EstimatedCost *int64
}

// EditIssueInput describes the citizen-editable fields.
type EditIssueInput struct {
	Title         *string
	Category      *string
	Description   *string
	Location      *string
	ImageURL      *string
	EstimatedCost *int64
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		issues:       deps.IssueRepo,
		accounts:     deps.AccountRepo,
		timeline:     deps.TimelineRepo,
		entitlements: deps.Entitlements,
		dispatcher:   deps.Dispatcher,
	}
}

// allowedTransitions is the full forward edge set for staff-driven status
// advances. pending->rejected is a separate admin-only edge handled by
// RejectIssue; rejected and closed are terminal.
var allowedTransitions = map[domain.IssueStatus][]domain.IssueStatus{
	domain.IssueStatusPending:    {domain.IssueStatusInProgress},
	domain.IssueStatusInProgress: {domain.IssueStatusWorking},
	domain.IssueStatusWorking:    {domain.IssueStatusResolved},
	domain.IssueStatusResolved:   {domain.IssueStatusClosed},
	domain.IssueStatusClosed:     {},
	domain.IssueStatusRejected:   {},
}

func isValidTransition(current, next domain.IssueStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// SubmitIssue creates a pending issue for a citizen, subject to the free
// tier quota, and appends the first timeline entry.
func (s *WorkflowService) SubmitIssue(ctx context.Context, actor *domain.Account, input SubmitIssueInput) (*domain.Issue, error) {
	if actor.IsBlocked {
		return nil, apperrors.NewAccountBlocked()
	}

	missing := map[string]any{}
	for field, value := range map[string]string{
		"title":       input.Title,
		"category":    input.Category,
		"description": input.Description,
		"location":    input.Location,
		"image":       input.ImageURL,
	} {
		if strings.TrimSpace(value) == "" {
			missing[field] = "required"
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", missing)
	}

	ok, err := s.entitlements.CanSubmit(ctx, actor)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		return nil, apperrors.NewQuotaExceeded(s.entitlements.FreeLimit())
	}

	// Priority is always normal at creation; elevation to high is only
	// reachable through the paid boost flow.
	issue := &domain.Issue{
		Title:         strings.TrimSpace(input.Title),
		Category:      strings.TrimSpace(input.Category),
		Description:   strings.TrimSpace(input.Description),
		Location:      strings.TrimSpace(input.Location),
		ImageURL:      strings.TrimSpace(input.ImageURL),
		EstimatedCost: input.EstimatedCost,
		ReportedBy:    actor.Email,
		Status:        domain.IssueStatusPending,
		Priority:      domain.IssuePriorityNormal,
	}
	entry := s.timelineEntry(domain.IssueStatusPending, "Issue submitted", actor)

	if err := s.issues.Create(ctx, issue, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.entitlements.InvalidateUsedCount(ctx, actor.Email)

	s.publish(ctx, events.Event{
		Type:    events.EventIssueSubmitted,
		IssueID: issue.ID,
		Actor:   eventActor(actor),
		Payload: events.IssueSubmittedPayload{
			Title:    issue.Title,
			Category: issue.Category,
			Location: issue.Location,
		},
	})
	return issue, nil
}

// GetIssue fetches an issue with its timeline. Public read.
func (s *WorkflowService) GetIssue(ctx context.Context, id string) (*domain.Issue, []domain.TimelineEntry, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": id})
		}
		return nil, nil, apperrors.MapError(err)
	}
	timeline, err := s.timeline.ListByIssue(ctx, id)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return issue, timeline, nil
}

// ListIssues returns a filtered page of issues plus the total. Public read.
func (s *WorkflowService) ListIssues(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, int, error) {
	items, total, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return items, total, nil
}

// EditIssue patches content fields for the reporting citizen while the
// issue is still pending. Status, assignment and ownership never change
// here.
func (s *WorkflowService) EditIssue(ctx context.Context, actor *domain.Account, id string, input EditIssueInput) (*domain.Issue, error) {
	if actor.IsBlocked {
		return nil, apperrors.NewAccountBlocked()
	}
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.ReportedBy != actor.Email {
		return nil, apperrors.NewNotOwner()
	}
	if issue.Status != domain.IssueStatusPending {
		return nil, apperrors.NewNotPending(string(issue.Status))
	}

	update := repository.IssueUpdate{
		Title:         input.Title,
		Category:      input.Category,
		Description:   input.Description,
		Location:      input.Location,
		ImageURL:      input.ImageURL,
		EstimatedCost: input.EstimatedCost,
	}
	if err := s.issues.UpdateFields(ctx, id, update); err != nil {
		return nil, s.mapStoreError(err, issue)
	}
	return s.getIssue(ctx, id)
}

// DeleteIssue removes a pending issue and its timeline for the reporting
// citizen. Quota consumption is not refunded.
func (s *WorkflowService) DeleteIssue(ctx context.Context, actor *domain.Account, id string) error {
	if actor.IsBlocked {
		return apperrors.NewAccountBlocked()
	}
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return err
	}
	if issue.ReportedBy != actor.Email {
		return apperrors.NewNotOwner()
	}
	if issue.Status != domain.IssueStatusPending {
		return apperrors.NewNotPending(string(issue.Status))
	}

	if err := s.issues.Delete(ctx, id); err != nil {
		return s.mapStoreError(err, issue)
	}
	return nil
}

// AssignStaff sets the assignee exactly once on a pending issue. Admin
// only; the target must resolve to a staff account. Status stays pending
// until the staff member begins work.
func (s *WorkflowService) AssignStaff(ctx context.Context, actor *domain.Account, id, staffEmail string) (*domain.Issue, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewNotAdmin()
	}

	staff, err := s.accounts.GetByEmail(ctx, staffEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnknownStaff(staffEmail)
		}
		return nil, apperrors.MapError(err)
	}
	if staff.Role != domain.RoleStaff {
		return nil, apperrors.NewUnknownStaff(staffEmail)
	}

	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.AssignedTo != nil {
		return nil, apperrors.NewAlreadyAssigned()
	}
	if issue.Status != domain.IssueStatusPending {
		return nil, apperrors.NewNotPending(string(issue.Status))
	}

	assignee := staff.Name
	if assignee == "" {
		assignee = staff.Email
	}
	entry := s.timelineEntry(issue.Status, fmt.Sprintf("Assigned to %s", assignee), actor)
	if err := s.issues.Assign(ctx, id, staffEmail, entry); err != nil {
		return nil, s.mapStoreError(err, issue)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: id,
		Actor:   eventActor(actor),
		Payload: events.IssueAssignedPayload{StaffEmail: staffEmail},
	})
	return s.getIssue(ctx, id)
}

// RejectIssue terminates a pending, unassigned issue. Admin only.
func (s *WorkflowService) RejectIssue(ctx context.Context, actor *domain.Account, id string) (*domain.Issue, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewNotAdmin()
	}

	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.AssignedTo != nil {
		return nil, apperrors.NewAlreadyAssigned()
	}
	if issue.Status != domain.IssueStatusPending {
		return nil, apperrors.NewNotPending(string(issue.Status))
	}

	entry := s.timelineEntry(domain.IssueStatusRejected, "Issue rejected", actor)
	if err := s.issues.Reject(ctx, id, entry); err != nil {
		return nil, s.mapStoreError(err, issue)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueRejected,
		IssueID: id,
		Actor:   eventActor(actor),
		Payload: events.IssueStatusChangedPayload{
			OldStatus: domain.IssueStatusPending,
			NewStatus: domain.IssueStatusRejected,
		},
	})
	return s.getIssue(ctx, id)
}

// AdvanceStatus moves an issue one edge forward. Only the assigned staff
// member may advance; skipping edges or moving backward fails with
// InvalidTransition and no mutation.
func (s *WorkflowService) AdvanceStatus(ctx context.Context, actor *domain.Account, id string, next domain.IssueStatus) (*domain.Issue, error) {
	if actor.Role != domain.RoleStaff {
		return nil, apperrors.NewNotAssignedStaff()
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(next)})
	}

	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.AssignedTo == nil || *issue.AssignedTo != actor.Email {
		return nil, apperrors.NewNotAssignedStaff()
	}
	if !isValidTransition(issue.Status, next) {
		return nil, apperrors.NewInvalidTransition(string(issue.Status), string(next))
	}

	entry := s.timelineEntry(next, fmt.Sprintf("Status changed to %s", next), actor)
	if err := s.issues.Transition(ctx, id, issue.Status, next, actor.Email, entry); err != nil {
		return nil, s.mapStoreError(err, issue)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: id,
		Actor:   eventActor(actor),
		Payload: events.IssueStatusChangedPayload{
			OldStatus: issue.Status,
			NewStatus: next,
		},
	})
	return s.getIssue(ctx, id)
}

// Upvote records one vote per account per issue, never on the voter's own
// issue. Concurrent votes by different accounts both count.
func (s *WorkflowService) Upvote(ctx context.Context, actor *domain.Account, id string) (*domain.Issue, error) {
	if actor.IsBlocked {
		return nil, apperrors.NewAccountBlocked()
	}
	issue, err := s.getIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.ReportedBy == actor.Email {
		return nil, apperrors.NewSelfUpvoteForbidden()
	}

	count, err := s.issues.Upvote(ctx, id, actor.Email)
	if err != nil {
		return nil, s.mapStoreError(err, issue)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueUpvoted,
		IssueID: id,
		Actor:   eventActor(actor),
		Payload: events.IssueUpvotedPayload{UpvoteCount: count},
	})
	return s.getIssue(ctx, id)
}

func (s *WorkflowService) getIssue(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// mapStoreError translates store sentinels raised by lost races into the
// same taxonomy a failed precondition check produces.
func (s *WorkflowService) mapStoreError(err error, issue *domain.Issue) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyAssigned):
		return apperrors.NewAlreadyAssigned()
	case errors.Is(err, repository.ErrNotPending):
		return apperrors.NewNotPending(string(issue.Status))
	case errors.Is(err, repository.ErrInvalidTransition):
		return apperrors.NewInvalidTransition(string(issue.Status), "")
	case errors.Is(err, repository.ErrAlreadyUpvoted):
		return apperrors.NewAlreadyUpvoted()
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("issue", map[string]any{"issue_id": issue.ID})
	default:
		return apperrors.MapError(err)
	}
}

func (s *WorkflowService) timelineEntry(status domain.IssueStatus, message string, actor *domain.Account) *domain.TimelineEntry {
	return &domain.TimelineEntry{
		Status:     status,
		Message:    message,
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
	}
}

func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}

func eventActor(account *domain.Account) events.Actor {
	return events.Actor{Email: account.Email, Role: account.Role}
}
