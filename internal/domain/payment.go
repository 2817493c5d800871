package domain

import "time"

// PaymentPurpose distinguishes what a payment bought.
type PaymentPurpose string

const (
	PaymentPurposeSubscription PaymentPurpose = "subscription"
	PaymentPurposeBoost        PaymentPurpose = "boost"
)

// PaymentRecord is an append-only ledger entry. The transaction id is
// supplied by the external payment collaborator and acts as the idempotency
// key: a record is written at most once per transaction id.
type PaymentRecord struct {
	ID            string
	PayerEmail    string
	Amount        int64
	Currency      string
	Method        string
	TransactionID string
	Purpose       PaymentPurpose
	IssueID       *string
	PaidAt        time.Time
}
