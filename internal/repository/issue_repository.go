package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// IssueFilter captures listing parameters. Page is 1-indexed.
type IssueFilter struct {
	ReportedBy *string
	AssignedTo *string
	Statuses   []domain.IssueStatus
	Priority   *domain.IssuePriority
	Category   *string
	SearchTerm *string
	Page       int
	Limit      int
}

// IssueUpdate lists the citizen-editable fields. Nil means leave unchanged.
type IssueUpdate struct {
	Title         *string
	Category      *string
	Description   *string
	Location      *string
	ImageURL      *string
	EstimatedCost *int64
}

// IssueRepository encapsulates issue persistence. Mutating methods enforce
// the structural invariants (status set membership, assignedTo set-once,
// forward-only transitions) with conditional updates, so two racing writers
// serialize on the row: exactly one wins and the loser gets a sentinel
// error. Methods that take a timeline entry write issue and timeline in one
// transaction.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue, entry *domain.TimelineEntry) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int, error)
	UpdateFields(ctx context.Context, id string, update IssueUpdate) error
	Delete(ctx context.Context, id string) error
	Assign(ctx context.Context, id, staffEmail string, entry *domain.TimelineEntry) error
	Reject(ctx context.Context, id string, entry *domain.TimelineEntry) error
	Transition(ctx context.Context, id string, from, to domain.IssueStatus, staffEmail string, entry *domain.TimelineEntry) error
	Upvote(ctx context.Context, id, email string) (int, error)
	CountByReporter(ctx context.Context, email string) (int, error)
	CountByStatus(ctx context.Context) (map[domain.IssueStatus]int, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, title, category, description, location, image_url, estimated_cost,
               reported_by, status, priority, assigned_to, upvote_count,
               created_at, updated_at, resolved_at, closed_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO issues (title, category, description, location, image_url, estimated_cost, reported_by, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		issue.Title,
		issue.Category,
		issue.Description,
		issue.Location,
		issue.ImageURL,
		issue.EstimatedCost,
		issue.ReportedBy,
		issue.Status,
		issue.Priority,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
		return err
	}

	// Quota consumption is permanent: the reporter counter only ever goes up.
	const bumpQuery = `UPDATE accounts SET issues_submitted = issues_submitted + 1 WHERE email=$1`
	if _, err := tx.Exec(ctx, bumpQuery, issue.ReportedBy); err != nil {
		return err
	}

	entry.IssueID = issue.ID
	if err := insertTimeline(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	issue, err := scanIssue(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	const upvotesQuery = `SELECT email FROM issue_upvotes WHERE issue_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, upvotesQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		issue.UpvotedBy = append(issue.UpvotedBy, email)
	}
	return issue, rows.Err()
}

// List returns matching issues plus the total match count. Boosted issues
// sort before normal ones, ties broken by most-recent first.
func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReportedBy != nil {
		args = append(args, *filter.ReportedBy)
		clauses = append(clauses, fmt.Sprintf("reported_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(category) LIKE %s OR LOWER(location) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM issues WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s FROM issues WHERE %s
        ORDER BY (priority = 'high') DESC, created_at DESC
        LIMIT %d OFFSET %d`, issueColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *issue)
	}
	return result, total, rows.Err()
}

// UpdateFields patches citizen-editable fields while the issue is pending.
func (r *issueRepository) UpdateFields(ctx context.Context, id string, update IssueUpdate) error {
	sets := []string{"updated_at=NOW()"}
	args := []any{}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if update.Title != nil {
		appendSet("title", *update.Title)
	}
	if update.Category != nil {
		appendSet("category", *update.Category)
	}
	if update.Description != nil {
		appendSet("description", *update.Description)
	}
	if update.Location != nil {
		appendSet("location", *update.Location)
	}
	if update.ImageURL != nil {
		appendSet("image_url", *update.ImageURL)
	}
	if update.EstimatedCost != nil {
		appendSet("estimated_cost", *update.EstimatedCost)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE issues SET %s WHERE id=$%d AND status='pending'`,
		strings.Join(sets, ", "), len(args))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.explainPendingFailure(ctx, id)
	}
	return nil
}

// Delete removes a pending issue together with its timeline and upvotes
// (cascade in schema).
func (r *issueRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM issues WHERE id=$1 AND status='pending'`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.explainPendingFailure(ctx, id)
	}
	return nil
}

// Assign sets assignedTo exactly once. Status stays pending; it only moves
// when the staff member begins work.
func (r *issueRepository) Assign(ctx context.Context, id, staffEmail string, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE issues SET assigned_to=$1, updated_at=NOW()
        WHERE id=$2 AND status='pending' AND assigned_to IS NULL`
	cmd, err := tx.Exec(ctx, query, staffEmail, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.explainAssignFailure(ctx, id)
	}

	entry.IssueID = id
	if err := insertTimeline(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Reject terminates an unassigned pending issue.
func (r *issueRepository) Reject(ctx context.Context, id string, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE issues SET status='rejected', updated_at=NOW()
        WHERE id=$1 AND status='pending' AND assigned_to IS NULL`
	cmd, err := tx.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.explainAssignFailure(ctx, id)
	}

	entry.IssueID = id
	if err := insertTimeline(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Transition advances status along one edge for the assigned staff member.
func (r *issueRepository) Transition(ctx context.Context, id string, from, to domain.IssueStatus, staffEmail string, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var stamp string
	switch to {
	case domain.IssueStatusResolved:
		stamp = ", resolved_at=NOW()"
	case domain.IssueStatusClosed:
		stamp = ", closed_at=NOW()"
	}
	query := fmt.Sprintf(`
        UPDATE issues SET status=$1, updated_at=NOW()%s
        WHERE id=$2 AND status=$3 AND assigned_to=$4`, stamp)
	cmd, err := tx.Exec(ctx, query, to, id, from, staffEmail)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Either the row is gone or another writer moved it first.
		var current domain.IssueStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM issues WHERE id=$1`, id).Scan(&current); err != nil {
			return err
		}
		return ErrInvalidTransition
	}

	entry.IssueID = id
	if err := insertTimeline(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Upvote records the voter and bumps the cached count. Concurrent upvotes
// by different accounts both land (set union); a repeat by the same account
// reports ErrAlreadyUpvoted.
func (r *issueRepository) Upvote(ctx context.Context, id, email string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertQuery = `
        INSERT INTO issue_upvotes (issue_id, email)
        VALUES ($1, $2)
        ON CONFLICT (issue_id, email) DO NOTHING`
	cmd, err := tx.Exec(ctx, insertQuery, id, email)
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() == 0 {
		return 0, ErrAlreadyUpvoted
	}

	const bumpQuery = `
        UPDATE issues SET upvote_count=upvote_count+1, updated_at=NOW()
        WHERE id=$1
        RETURNING upvote_count`
	var count int
	if err := tx.QueryRow(ctx, bumpQuery, id).Scan(&count); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByReporter counts every issue the account has created. Deleted
// pending issues do not reduce the figure; the counter on the account row
// is incremented at submit time and never decremented.
func (r *issueRepository) CountByReporter(ctx context.Context, email string) (int, error) {
	const query = `SELECT issues_submitted FROM accounts WHERE email=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, email).Scan(&count); err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (r *issueRepository) CountByStatus(ctx context.Context) (map[domain.IssueStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM issues GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.IssueStatus]int)
	for rows.Next() {
		var status domain.IssueStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}
	return result, rows.Err()
}

// explainPendingFailure resolves a zero-row conditional update on the
// pending precondition into the precise failure.
func (r *issueRepository) explainPendingFailure(ctx context.Context, id string) error {
	var status domain.IssueStatus
	if err := r.pool.QueryRow(ctx, `SELECT status FROM issues WHERE id=$1`, id).Scan(&status); err != nil {
		return err
	}
	return ErrNotPending
}

// explainAssignFailure resolves a zero-row assign/reject update: the issue
// is missing, already assigned, or no longer pending.
func (r *issueRepository) explainAssignFailure(ctx context.Context, id string) error {
	var status domain.IssueStatus
	var assignedTo *string
	if err := r.pool.QueryRow(ctx, `SELECT status, assigned_to FROM issues WHERE id=$1`, id).Scan(&status, &assignedTo); err != nil {
		return err
	}
	if assignedTo != nil {
		return ErrAlreadyAssigned
	}
	return ErrNotPending
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	if err := row.Scan(
		&issue.ID,
		&issue.Title,
		&issue.Category,
		&issue.Description,
		&issue.Location,
		&issue.ImageURL,
		&issue.EstimatedCost,
		&issue.ReportedBy,
		&issue.Status,
		&issue.Priority,
		&issue.AssignedTo,
		&issue.UpvoteCount,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&issue.ResolvedAt,
		&issue.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}
