package domain

import "time"

// IssueStatus enumerates lifecycle states for reported issues.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "pending"
	IssueStatusInProgress IssueStatus = "in-progress"
	IssueStatusWorking    IssueStatus = "working"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
	IssueStatusRejected   IssueStatus = "rejected"
)

// Valid reports whether the status is a known value.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusWorking,
		IssueStatusResolved, IssueStatusClosed, IssueStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions exist from the status.
func (s IssueStatus) Terminal() bool {
	return s == IssueStatusClosed || s == IssueStatusRejected
}

// IssuePriority enumerates listing priority. Issues are always created with
// PriorityNormal; elevation to PriorityHigh happens only through the paid
// boost flow.
type IssuePriority string

const (
	IssuePriorityNormal IssuePriority = "normal"
	IssuePriorityHigh   IssuePriority = "high"
)

// Issue is the aggregate for citizen reports.
type Issue struct {
	ID            string
	Title         string
	Category      string
	Description   string
	Location      string
	ImageURL      string
	EstimatedCost *int64
	ReportedBy    string
	Status        IssueStatus
	Priority      IssuePriority
	AssignedTo    *string
	UpvotedBy     []string
	UpvoteCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
}
