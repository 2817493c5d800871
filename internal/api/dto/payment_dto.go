package dto

import (
	"time"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// SubscribeRequest payload. The transaction id comes from the external
// payment collaborator.
type SubscribeRequest struct {
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
}

// BoostRequest payload.
type BoostRequest struct {
	IssueID       string `json:"issueId"`
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
}

// PaymentResponse is the invoice-ready record shape.
type PaymentResponse struct {
	ID            string                `json:"id"`
	Email         string                `json:"email"`
	Amount        int64                 `json:"amount"`
	Currency      string                `json:"currency"`
	Method        string                `json:"method"`
	TransactionID string                `json:"transactionId"`
	Purpose       domain.PaymentPurpose `json:"purpose"`
	IssueID       *string               `json:"issueId,omitempty"`
	PaidAt        time.Time             `json:"paidAt"`
}

// PaymentListResponse wraps ledger pages for the admin view.
type PaymentListResponse struct {
	Payments    []PaymentResponse `json:"payments"`
	TotalAmount int64             `json:"totalAmount"`
}
