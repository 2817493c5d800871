package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	// UpsertByEmail creates the account on first contact and returns the
	// stored row. Repeated calls never clobber an existing name, photo or
	// role; profile changes go through UpdateProfile.
	UpsertByEmail(ctx context.Context, email, name, photoURL string, role domain.Role) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, email, name, photoURL string) (*domain.Account, error)
	SetBlocked(ctx context.Context, email string, blocked bool) error
	CreateStaff(ctx context.Context, account *domain.Account) error
	UpdateStaff(ctx context.Context, account *domain.Account) error
	DeleteStaff(ctx context.Context, email string) error
	List(ctx context.Context, role *domain.Role, limit, offset int) ([]domain.Account, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, email, name, photo_url, role, password_hash, is_blocked, is_premium, created_at, updated_at`

func (r *accountRepository) UpsertByEmail(ctx context.Context, email, name, photoURL string, role domain.Role) (*domain.Account, error) {
	const query = `
        INSERT INTO accounts (email, name, photo_url, role)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO UPDATE SET
            name = CASE WHEN accounts.name = '' THEN EXCLUDED.name ELSE accounts.name END,
            photo_url = CASE WHEN accounts.photo_url = '' THEN EXCLUDED.photo_url ELSE accounts.photo_url END
        RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, email, name, photoURL, role))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *accountRepository) UpdateProfile(ctx context.Context, email, name, photoURL string) (*domain.Account, error) {
	const query = `
        UPDATE accounts SET name=$1, photo_url=$2, updated_at=NOW()
        WHERE email=$3
        RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, name, photoURL, email))
}

func (r *accountRepository) SetBlocked(ctx context.Context, email string, blocked bool) error {
	const query = `UPDATE accounts SET is_blocked=$1, updated_at=NOW() WHERE email=$2`
	cmd, err := r.pool.Exec(ctx, query, blocked, email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) CreateStaff(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (email, name, photo_url, role, password_hash)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		account.Email,
		account.Name,
		account.PhotoURL,
		account.Role,
		account.PasswordHash,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) UpdateStaff(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET name=$1, photo_url=$2, password_hash=$3, updated_at=NOW()
        WHERE email=$4 AND role=$5`
	cmd, err := r.pool.Exec(ctx, query,
		account.Name,
		account.PhotoURL,
		account.PasswordHash,
		account.Email,
		domain.RoleStaff,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) DeleteStaff(ctx context.Context, email string) error {
	const query = `DELETE FROM accounts WHERE email=$1 AND role=$2`
	cmd, err := r.pool.Exec(ctx, query, email, domain.RoleStaff)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context, role *domain.Role, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}
	if role != nil {
		args = append(args, *role)
		query += ` WHERE role=$1`
	}
	query += ` ORDER BY created_at ASC LIMIT ` + itoa(limit) + ` OFFSET ` + itoa(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func (r *accountRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	const query = `SELECT COUNT(*) FROM accounts WHERE role=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, role).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.PhotoURL,
		&account.Role,
		&account.PasswordHash,
		&account.IsBlocked,
		&account.IsPremium,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
