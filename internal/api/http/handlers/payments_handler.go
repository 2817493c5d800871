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

// PaymentsHandler books verified payments against the ledger.
type PaymentsHandler struct {
	payments *service.PaymentService
}

// NewPaymentsHandler constructs the handler.
func NewPaymentsHandler(payments *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{payments: payments}
}

// Subscribe POST /payments/subscribe. Grants premium exactly once.
func (h *PaymentsHandler) Subscribe(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	record, err := h.payments.RecordSubscription(c.UserContext(), actor, req.TransactionID, req.Method)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"payment": paymentResponse(record)})
}

// Boost POST /payments/boost. Elevates the payer's own issue to high
// priority exactly once.
func (h *PaymentsHandler) Boost(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.BoostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.IssueID == "" {
		return apperrors.NewValidationError("missing required fields", map[string]any{"issueId": "required"})
	}

	record, err := h.payments.RecordBoost(c.UserContext(), actor, req.IssueID, req.TransactionID, req.Method)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"payment": paymentResponse(record)})
}

// ListMine GET /payments/my. The caller's invoice history, newest first.
func (h *PaymentsHandler) ListMine(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	records, err := h.payments.ListForPayer(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"payments": paymentResponses(records)})
}

func paymentResponse(record *domain.PaymentRecord) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:            record.ID,
		Email:         record.PayerEmail,
		Amount:        record.Amount,
		Currency:      record.Currency,
		Method:        record.Method,
		TransactionID: record.TransactionID,
		Purpose:       record.Purpose,
		IssueID:       record.IssueID,
		PaidAt:        record.PaidAt,
	}
}

func paymentResponses(records []domain.PaymentRecord) []dto.PaymentResponse {
	out := make([]dto.PaymentResponse, 0, len(records))
	for i := range records {
		out = append(out, paymentResponse(&records[i]))
	}
	return out
}
