package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for precondition failures detected by conditional updates.
// Services translate these into the client-facing error taxonomy; surfacing
// them distinctly lets a caller tell "you lost a race" apart from a
// malformed request.
var (
	ErrAlreadyAssigned      = errors.New("issue already assigned")
	ErrNotPending           = errors.New("issue not pending")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAlreadyUpvoted       = errors.New("already upvoted")
	ErrAlreadyBoosted       = errors.New("already boosted")
	ErrAlreadyPremium       = errors.New("already premium")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting helpers run
// inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolationCode = "23505"

func itoa(v int) string {
	return strconv.Itoa(v)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
