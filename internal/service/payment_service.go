package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-issue-service/internal/config"
	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/events"
	"github.com/spec-kit/civic-issue-service/internal/repository"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// PaymentService is the ledger. Payments arrive pre-verified from the
// external gateway; this service records them append-only, keyed by the
// caller-supplied transaction id, and applies the entitlement side effect
// (premium grant, issue boost) in the same transaction as the ledger row.
type PaymentService struct {
	payments     repository.PaymentRepository
	issues       repository.IssueRepository
	entitlements *EntitlementService
	dispatcher   events.Dispatcher
	billing      config.BillingConfig
}

// PaymentDependencies bundles collaborators for the payment service.
type PaymentDependencies struct {
	PaymentRepo  repository.PaymentRepository
	IssueRepo    repository.IssueRepository
	Entitlements *EntitlementService
	Dispatcher   events.Dispatcher
	Billing      config.BillingConfig
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentDependencies) *PaymentService {
	return &PaymentService{
		payments:     deps.PaymentRepo,
		issues:       deps.IssueRepo,
		entitlements: deps.Entitlements,
		dispatcher:   deps.Dispatcher,
		billing:      deps.Billing,
	}
}

// RecordSubscription books a premium subscription payment and grants
// premium. Replaying the same transaction id neither grants twice nor
// writes a duplicate record.
func (s *PaymentService) RecordSubscription(ctx context.Context, actor *domain.Account, transactionID, method string) (*domain.PaymentRecord, error) {
	if actor.IsBlocked {
		return nil, apperrors.NewAccountBlocked()
	}
	if err := validatePaymentInput(transactionID, method); err != nil {
		return nil, err
	}
	if actor.IsPremium {
		return nil, apperrors.NewAlreadyPremium()
	}

	record := &domain.PaymentRecord{
		PayerEmail:    actor.Email,
		Amount:        s.billing.SubscriptionPrice,
		Currency:      s.billing.Currency,
		Method:        method,
		TransactionID: transactionID,
		Purpose:       domain.PaymentPurposeSubscription,
	}
	if err := s.payments.CreateSubscription(ctx, record); err != nil {
		return nil, s.mapLedgerError(err, transactionID)
	}
	if s.entitlements != nil {
		s.entitlements.InvalidateUsedCount(ctx, actor.Email)
	}

	s.publishPayment(ctx, actor, record)
	return record, nil
}

// RecordBoost books a boost payment for the reporting citizen's own issue
// and elevates its priority to high, exactly once.
func (s *PaymentService) RecordBoost(ctx context.Context, actor *domain.Account, issueID, transactionID, method string) (*domain.PaymentRecord, error) {
	if actor.IsBlocked {
		return nil, apperrors.NewAccountBlocked()
	}
	if err := validatePaymentInput(transactionID, method); err != nil {
		return nil, err
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": issueID})
		}
		return nil, apperrors.MapError(err)
	}
	if issue.ReportedBy != actor.Email {
		return nil, apperrors.NewNotOwner()
	}
	if issue.Priority == domain.IssuePriorityHigh {
		return nil, apperrors.NewAlreadyBoosted()
	}

	record := &domain.PaymentRecord{
		PayerEmail:    actor.Email,
		Amount:        s.billing.BoostPrice,
		Currency:      s.billing.Currency,
		Method:        method,
		TransactionID: transactionID,
		Purpose:       domain.PaymentPurposeBoost,
		IssueID:       &issueID,
	}
	if err := s.payments.CreateBoost(ctx, record, issueID); err != nil {
		return nil, s.mapLedgerError(err, transactionID)
	}

	s.publishPayment(ctx, actor, record)
	if s.dispatcher != nil {
		s.publish(ctx, events.Event{
			Type:    events.EventIssueBoosted,
			IssueID: issueID,
			Actor:   eventActor(actor),
			Payload: events.IssueBoostedPayload{TransactionID: transactionID},
		})
	}
	return record, nil
}

// ListForPayer returns the caller's own payment records, newest first.
func (s *PaymentService) ListForPayer(ctx context.Context, actor *domain.Account) ([]domain.PaymentRecord, error) {
	records, err := s.payments.ListByPayer(ctx, actor.Email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// ListAll returns a page of the whole ledger plus the aggregate amount.
// Admin only, enforced at the route.
func (s *PaymentService) ListAll(ctx context.Context, limit, offset int) ([]domain.PaymentRecord, int64, error) {
	records, total, err := s.payments.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return records, total, nil
}

func validatePaymentInput(transactionID, method string) error {
	details := map[string]any{}
	if strings.TrimSpace(transactionID) == "" {
		details["transaction_id"] = "required"
	}
	if strings.TrimSpace(method) == "" {
		details["method"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("missing required fields", details)
	}
	return nil
}

func (s *PaymentService) mapLedgerError(err error, transactionID string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateTransaction):
		return apperrors.NewDuplicateTransaction(transactionID)
	case errors.Is(err, repository.ErrAlreadyPremium):
		return apperrors.NewAlreadyPremium()
	case errors.Is(err, repository.ErrAlreadyBoosted):
		return apperrors.NewAlreadyBoosted()
	default:
		return apperrors.MapError(err)
	}
}

func (s *PaymentService) publishPayment(ctx context.Context, actor *domain.Account, record *domain.PaymentRecord) {
	s.publish(ctx, events.Event{
		Type:  events.EventPaymentRecorded,
		Actor: eventActor(actor),
		Payload: events.PaymentRecordedPayload{
			Purpose:       record.Purpose,
			Amount:        record.Amount,
			TransactionID: record.TransactionID,
		},
	})
}

func (s *PaymentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}
