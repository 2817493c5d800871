package events

import (
	"time"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueSubmitted     EventType = "issue_submitted"
	EventIssueAssigned      EventType = "issue_assigned"
	EventIssueRejected      EventType = "issue_rejected"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueUpvoted       EventType = "issue_upvoted"
	EventIssueBoosted       EventType = "issue_boosted"
	EventPaymentRecorded    EventType = "payment_recorded"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueSubmittedPayload payload.
type IssueSubmittedPayload struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Location string `json:"location"`
}

// IssueAssignedPayload payload.
type IssueAssignedPayload struct {
	StaffEmail string `json:"staff_email"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
}

// IssueUpvotedPayload payload.
type IssueUpvotedPayload struct {
	UpvoteCount int `json:"upvote_count"`
}

// IssueBoostedPayload payload.
type IssueBoostedPayload struct {
	TransactionID string `json:"transaction_id"`
}

// PaymentRecordedPayload payload.
type PaymentRecordedPayload struct {
	Purpose       domain.PaymentPurpose `json:"purpose"`
	Amount        int64                 `json:"amount"`
	TransactionID string                `json:"transaction_id"`
}
