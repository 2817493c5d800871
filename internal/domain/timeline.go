package domain

import "time"

// TimelineEntry is an immutable audit record attached to an issue. Entries
// are written only as a side effect of accepted workflow transitions
// (creation, assignment, rejection, status advances); no update or delete
// operation exists.
type TimelineEntry struct {
	ID         string
	IssueID    string
	Status     IssueStatus
	Message    string
	ActorEmail string
	ActorRole  Role
	CreatedAt  time.Time
}
