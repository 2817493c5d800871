package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// TimelineRepository reads the append-only audit log. Writes happen only
// inside issue store transactions via insertTimeline; no update or delete
// exists.
type TimelineRepository interface {
	ListByIssue(ctx context.Context, issueID string) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

// ListByIssue returns entries oldest first, a snapshot at call time.
func (r *timelineRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, issue_id, status, message, actor_email, actor_role, created_at
        FROM issue_timeline WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IssueID,
			&entry.Status,
			&entry.Message,
			&entry.ActorEmail,
			&entry.ActorRole,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func insertTimeline(ctx context.Context, q querier, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO issue_timeline (issue_id, status, message, actor_email, actor_role)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.IssueID,
		entry.Status,
		entry.Message,
		entry.ActorEmail,
		entry.ActorRole,
	).Scan(&entry.ID, &entry.CreatedAt)
}
