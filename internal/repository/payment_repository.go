package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// PaymentRepository stores the append-only payment ledger. The entitlement
// side effect (premium flag, issue priority) commits in the same
// transaction as the ledger row, so a replayed transaction id can neither
// double-grant nor leave a paid-but-unapplied record behind.
type PaymentRepository interface {
	CreateSubscription(ctx context.Context, record *domain.PaymentRecord) error
	CreateBoost(ctx context.Context, record *domain.PaymentRecord, issueID string) error
	ListByPayer(ctx context.Context, email string) ([]domain.PaymentRecord, error)
	ListAll(ctx context.Context, limit, offset int) ([]domain.PaymentRecord, int64, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository instantiates repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentInsert = `
        INSERT INTO payments (payer_email, amount, currency, method, transaction_id, purpose, issue_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, paid_at`

func (r *paymentRepository) CreateSubscription(ctx context.Context, record *domain.PaymentRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.QueryRow(ctx, paymentInsert,
		record.PayerEmail,
		record.Amount,
		record.Currency,
		record.Method,
		record.TransactionID,
		record.Purpose,
		record.IssueID,
	).Scan(&record.ID, &record.PaidAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return err
	}

	const grantQuery = `
        UPDATE accounts SET is_premium=TRUE, updated_at=NOW()
        WHERE email=$1 AND is_premium=FALSE`
	cmd, err := tx.Exec(ctx, grantQuery, record.PayerEmail)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyPremium
	}
	return tx.Commit(ctx)
}

func (r *paymentRepository) CreateBoost(ctx context.Context, record *domain.PaymentRecord, issueID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.QueryRow(ctx, paymentInsert,
		record.PayerEmail,
		record.Amount,
		record.Currency,
		record.Method,
		record.TransactionID,
		record.Purpose,
		record.IssueID,
	).Scan(&record.ID, &record.PaidAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return err
	}

	const boostQuery = `
        UPDATE issues SET priority='high', updated_at=NOW()
        WHERE id=$1 AND priority <> 'high'`
	cmd, err := tx.Exec(ctx, boostQuery, issueID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyBoosted
	}
	return tx.Commit(ctx)
}

func (r *paymentRepository) ListByPayer(ctx context.Context, email string) ([]domain.PaymentRecord, error) {
	const query = `
        SELECT id, payer_email, amount, currency, method, transaction_id, purpose, issue_id, paid_at
        FROM payments WHERE payer_email=$1 ORDER BY paid_at DESC`
	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// ListAll returns records newest first plus the aggregate amount across the
// whole ledger.
func (r *paymentRepository) ListAll(ctx context.Context, limit, offset int) ([]domain.PaymentRecord, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, payer_email, amount, currency, method, transaction_id, purpose, issue_id, paid_at
        FROM payments ORDER BY paid_at DESC LIMIT ` + itoa(limit) + ` OFFSET ` + itoa(offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := scanPayments(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func scanPayments(rows pgx.Rows) ([]domain.PaymentRecord, error) {
	var result []domain.PaymentRecord
	for rows.Next() {
		var record domain.PaymentRecord
		if err := rows.Scan(
			&record.ID,
			&record.PayerEmail,
			&record.Amount,
			&record.Currency,
			&record.Method,
			&record.TransactionID,
			&record.Purpose,
			&record.IssueID,
			&record.PaidAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
