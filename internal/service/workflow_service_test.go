package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-issue-service/internal/config"
	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/events"
	"github.com/spec-kit/civic-issue-service/internal/repository"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

type fixture struct {
	issues       *fakeIssueRepo
	accounts     *fakeAccountRepo
	paymentsRepo *fakePaymentRepo
	workflow     *WorkflowService
	payments     *PaymentService
	entitlements *EntitlementService
	dispatcher   events.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issues := newFakeIssueRepo()
	accounts := newFakeAccountRepo()
	paymentsRepo := newFakePaymentRepo(accounts, issues)
	dispatcher := events.NewInMemoryDispatcher()
	entitlements := NewEntitlementService(issues, nil, zap.NewNop(), 3)

	workflow := NewWorkflowService(WorkflowDependencies{
		IssueRepo:    issues,
		AccountRepo:  accounts,
		TimelineRepo: &fakeTimelineRepo{issues: issues},
		Entitlements: entitlements,
		Dispatcher:   dispatcher,
	})
	payments := NewPaymentService(PaymentDependencies{
		PaymentRepo:  paymentsRepo,
		IssueRepo:    issues,
		Entitlements: entitlements,
		Dispatcher:   dispatcher,
		Billing: config.BillingConfig{
			SubscriptionPrice: 1000,
			BoostPrice:        100,
			Currency:          "BDT",
			FreeIssueLimit:    3,
		},
	})

	return &fixture{
		issues:       issues,
		accounts:     accounts,
		paymentsRepo: paymentsRepo,
		workflow:     workflow,
		payments:     payments,
		entitlements: entitlements,
		dispatcher:   dispatcher,
	}
}

func (f *fixture) citizen(email string) *domain.Account {
	account := &domain.Account{Email: email, Name: "Citizen", Role: domain.RoleCitizen}
	f.accounts.put(account)
	return account
}

func (f *fixture) staff(email string) *domain.Account {
	account := &domain.Account{Email: email, Name: "Staff Member", Role: domain.RoleStaff}
	f.accounts.put(account)
	return account
}

func (f *fixture) admin(email string) *domain.Account {
	account := &domain.Account{Email: email, Name: "Admin", Role: domain.RoleAdmin}
	f.accounts.put(account)
	return account
}

func validSubmitInput() SubmitIssueInput {
	return SubmitIssueInput{
		Title:       "Broken streetlight",
		Category:    "electricity",
		Description: "The lamp at the corner has been dark for a week",
		Location:    "5th and Main",
		ImageURL:    "https://img.example.com/lamp.jpg",
	}
}

func (f *fixture) submit(t *testing.T, reporter *domain.Account) *domain.Issue {
	t.Helper()
	issue, err := f.workflow.SubmitIssue(context.Background(), reporter, validSubmitInput())
	require.NoError(t, err)
	return issue
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestSubmitIssueStartsPendingWithTimeline(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")

	issue := f.submit(t, reporter)

	assert.Equal(t, domain.IssueStatusPending, issue.Status)
	assert.Equal(t, domain.IssuePriorityNormal, issue.Priority)
	assert.Nil(t, issue.AssignedTo)
	assert.Equal(t, reporter.Email, issue.ReportedBy)

	_, timeline, err := f.workflow.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, "Issue submitted", timeline[0].Message)
	assert.Equal(t, reporter.Email, timeline[0].ActorEmail)
}

func TestSubmitIssueValidation(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")

	input := validSubmitInput()
	input.Title = " "
	input.ImageURL = ""

	_, err := f.workflow.SubmitIssue(context.Background(), reporter, input)
	requireCode(t, err, apperrors.CodeValidationFailed)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Contains(t, domainErr.Details, "title")
	assert.Contains(t, domainErr.Details, "image")
}

func TestSubmitIssueBlockedAccount(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	reporter.IsBlocked = true

	_, err := f.workflow.SubmitIssue(context.Background(), reporter, validSubmitInput())
	requireCode(t, err, apperrors.CodeAccountBlocked)
}

func TestSubmitIssueQuota(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")

	for i := 0; i < 3; i++ {
		f.submit(t, reporter)
	}

	_, err := f.workflow.SubmitIssue(context.Background(), reporter, validSubmitInput())
	requireCode(t, err, apperrors.CodeQuotaExceeded)

	// Deleting a pending issue does not refund the quota slot.
	issues, _, err := f.workflow.ListIssues(context.Background(), repository.IssueFilter{ReportedBy: &reporter.Email})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	require.NoError(t, f.workflow.DeleteIssue(context.Background(), reporter, issues[0].ID))

	_, err = f.workflow.SubmitIssue(context.Background(), reporter, validSubmitInput())
	requireCode(t, err, apperrors.CodeQuotaExceeded)

	// Premium lifts the cap.
	_, err = f.payments.RecordSubscription(context.Background(), reporter, "TRX-1001", "bkash")
	require.NoError(t, err)
	reporter.IsPremium = true

	_, err = f.workflow.SubmitIssue(context.Background(), reporter, validSubmitInput())
	require.NoError(t, err)
}

func TestEditIssueOwnerOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	stranger := f.citizen("bob@example.com")
	issue := f.submit(t, reporter)

	newTitle := "Flickering streetlight"
	_, err := f.workflow.EditIssue(context.Background(), stranger, issue.ID, EditIssueInput{Title: &newTitle})
	requireCode(t, err, apperrors.CodeNotOwner)

	updated, err := f.workflow.EditIssue(context.Background(), reporter, issue.ID, EditIssueInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)

	// Once assigned and in progress, edits are refused.
	admin := f.admin("admin@example.com")
	staff := f.staff("staff@example.com")
	_, err = f.workflow.AssignStaff(context.Background(), admin, issue.ID, staff.Email)
	require.NoError(t, err)
	_, err = f.workflow.AdvanceStatus(context.Background(), staff, issue.ID, domain.IssueStatusInProgress)
	require.NoError(t, err)

	_, err = f.workflow.EditIssue(context.Background(), reporter, issue.ID, EditIssueInput{Title: &newTitle})
	requireCode(t, err, apperrors.CodeNotPending)
}

func TestDeleteIssueOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	issue := f.submit(t, reporter)

	admin := f.admin("admin@example.com")
	staff := f.staff("staff@example.com")
	_, err := f.workflow.AssignStaff(context.Background(), admin, issue.ID, staff.Email)
	require.NoError(t, err)
	_, err = f.workflow.AdvanceStatus(context.Background(), staff, issue.ID, domain.IssueStatusInProgress)
	require.NoError(t, err)

	err = f.workflow.DeleteIssue(context.Background(), reporter, issue.ID)
	requireCode(t, err, apperrors.CodeNotPending)

	pending := f.submit(t, reporter)
	require.NoError(t, f.workflow.DeleteIssue(context.Background(), reporter, pending.ID))

	_, _, err = f.workflow.GetIssue(context.Background(), pending.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestAssignStaff(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	admin := f.admin("admin@example.com")
	staff := f.staff("staff@example.com")
	issue := f.submit(t, reporter)

	_, err := f.workflow.AssignStaff(context.Background(), reporter, issue.ID, staff.Email)
	requireCode(t, err, apperrors.CodeNotAdmin)

	_, err = f.workflow.AssignStaff(context.Background(), admin, issue.ID, "nobody@example.com")
	requireCode(t, err, apperrors.CodeUnknownStaff)

	// A citizen email is not a staff target.
	_, err = f.workflow.AssignStaff(context.Background(), admin, issue.ID, reporter.Email)
	requireCode(t, err, apperrors.CodeUnknownStaff)

	assigned, err := f.workflow.AssignStaff(context.Background(), admin, issue.ID, staff.Email)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, staff.Email, *assigned.AssignedTo)
	assert.Equal(t, domain.IssueStatusPending, assigned.Status)

	// Assignment is set-once.
	other := f.staff("other@example.com")
	_, err = f.workflow.AssignStaff(context.Background(), admin, issue.ID, other.Email)
	requireCode(t, err, apperrors.CodeAlreadyAssigned)

	_, timeline, err := f.workflow.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "Assigned to Staff Member", timeline[1].Message)
}

func TestRejectIssue(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	admin := f.admin("admin@example.com")
	staff := f.staff("staff@example.com")

	issue := f.submit(t, reporter)
	rejected, err := f.workflow.RejectIssue(context.Background(), admin, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusRejected, rejected.Status)

	// Terminal: nothing moves a rejected issue.
	_, err = f.workflow.RejectIssue(context.Background(), admin, issue.ID)
	requireCode(t, err, apperrors.CodeNotPending)

	// An assigned issue can no longer be rejected.
	second := f.submit(t, reporter)
	_, err = f.workflow.AssignStaff(context.Background(), admin, second.ID, staff.Email)
	require.NoError(t, err)
	_, err = f.workflow.RejectIssue(context.Background(), admin, second.ID)
	requireCode(t, err, apperrors.CodeAlreadyAssigned)
}

func TestAdvanceStatusWalksForwardOnly(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	admin := f.admin("admin@example.com")
	staff := f.staff("staff@example.com")
	issue := f.submit(t, reporter)

	_, err := f.workflow.AssignStaff(context.Background(), admin, issue.ID, staff.Email)
	require.NoError(t, err)

	// Skipping an edge fails and mutates nothing.
	_, err = f.workflow.AdvanceStatus(context.Background(), staff, issue.ID, domain.IssueStatusWorking)
	requireCode(t, err, apperrors.CodeInvalidTransition)

	current, _, err := f.workflow.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusPending, current.Status)

	for _, next := range []domain.IssueStatus{
		domain.IssueStatusInProgress,
		domain.IssueStatusWorking,
		domain.IssueStatusResolved,
		domain.IssueStatusClosed,
	} {
		current, err = f.workflow.AdvanceStatus(context.Background(), staff, issue.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, current.Status)
	}
	require.NotNil(t, current.ResolvedAt)
	require.NotNil(t, current.ClosedAt)

	// Closed is terminal.
	_, err = f.workflow.AdvanceStatus(context.Background(), staff, issue.ID, domain.IssueStatusInProgress)
	requireCode(t, err, apperrors.CodeInvalidTransition)

	_, timeline, err := f.workflow.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Len(t, timeline, 6)
	assert.Equal(t, "Status changed to closed", timeline[5].Message)
}

func TestAdvanceStatusRequiresAssignedStaff(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	admin := f.admin("admin@example.com")
	staff := f.staff("staff@example.com")
	other := f.staff("other@example.com")
	issue := f.submit(t, reporter)

	_, err := f.workflow.AdvanceStatus(context.Background(), reporter, issue.ID, domain.IssueStatusInProgress)
	requireCode(t, err, apperrors.CodeNotAssignedStaff)

	// Unassigned issue: even a staff account may not advance.
	_, err = f.workflow.AdvanceStatus(context.Background(), staff, issue.ID, domain.IssueStatusInProgress)
	requireCode(t, err, apperrors.CodeNotAssignedStaff)

	_, err = f.workflow.AssignStaff(context.Background(), admin, issue.ID, staff.Email)
	require.NoError(t, err)

	_, err = f.workflow.AdvanceStatus(context.Background(), other, issue.ID, domain.IssueStatusInProgress)
	requireCode(t, err, apperrors.CodeNotAssignedStaff)

	_, err = f.workflow.AdvanceStatus(context.Background(), staff, issue.ID, domain.IssueStatusInProgress)
	require.NoError(t, err)
}

func TestUpvote(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")
	voter := f.citizen("bob@example.com")
	issue := f.submit(t, reporter)

	_, err := f.workflow.Upvote(context.Background(), reporter, issue.ID)
	requireCode(t, err, apperrors.CodeSelfUpvoteForbidden)

	upvoted, err := f.workflow.Upvote(context.Background(), voter, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, upvoted.UpvoteCount)
	assert.Equal(t, []string{voter.Email}, upvoted.UpvotedBy)

	_, err = f.workflow.Upvote(context.Background(), voter, issue.ID)
	requireCode(t, err, apperrors.CodeAlreadyUpvoted)

	// Upvotes never touch the timeline.
	_, timeline, err := f.workflow.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Len(t, timeline, 1)
}

func TestListIssuesBoostedFirst(t *testing.T) {
	f := newFixture(t)
	reporter := f.citizen("alice@example.com")

	first := f.submit(t, reporter)
	second := f.submit(t, reporter)

	_, err := f.payments.RecordBoost(context.Background(), reporter, first.ID, "TRX-2001", "nagad")
	require.NoError(t, err)

	issues, total, err := f.workflow.ListIssues(context.Background(), repository.IssueFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, issues, 2)
	assert.Equal(t, first.ID, issues[0].ID)
	assert.Equal(t, domain.IssuePriorityHigh, issues[0].Priority)
	assert.Equal(t, second.ID, issues[1].ID)
}

func TestGetIssueNotFound(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.workflow.GetIssue(context.Background(), "missing")
	requireCode(t, err, apperrors.CodeNotFound)
}
