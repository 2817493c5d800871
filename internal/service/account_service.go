package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-issue-service/internal/auth"
	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/repository"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// AccountService covers profile reads/updates, the admin block toggle, and
// admin-managed staff accounts. Citizens authenticate against the external
// identity provider; staff hold a service-local password and log in here.
type AccountService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAccountService constructs the service.
func NewAccountService(accounts repository.AccountRepository, tokens *auth.TokenManager, bcryptCost int) *AccountService {
	return &AccountService{accounts: accounts, tokens: tokens, bcryptCost: bcryptCost}
}

// StaffCreateInput describes an admin-created staff account.
type StaffCreateInput struct {
	Name     string
	Email    string
	PhotoURL string
	Password string
}

// StaffUpdateInput patches a staff account. Nil password leaves the
// credential unchanged.
type StaffUpdateInput struct {
	Name     *string
	PhotoURL *string
	Password *string
}

// StaffLogin verifies a staff or admin password and issues a bearer token.
func (s *AccountService) StaffLogin(ctx context.Context, email, password string) (string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
		}
		return "", time.Time{}, apperrors.MapError(err)
	}
	if account.Role != domain.RoleStaff && account.Role != domain.RoleAdmin {
		return "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}
	if account.PasswordHash == nil || auth.ComparePassword(*account.PasswordHash, password) != nil {
		return "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(account.Email, account.Name)
	if err != nil {
		return "", time.Time{}, apperrors.MapError(err)
	}
	return token, expiresAt, nil
}

// GetProfile returns an account, visible to the owner or an admin.
func (s *AccountService) GetProfile(ctx context.Context, actor *domain.Account, email string) (*domain.Account, error) {
	if !strings.EqualFold(actor.Email, email) && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("profile visible to owner or admin only")
	}
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// UpdateProfile changes name/photo for the owner or an admin.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *domain.Account, email, name, photoURL string) (*domain.Account, error) {
	if !strings.EqualFold(actor.Email, email) && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("profile visible to owner or admin only")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	account, err := s.accounts.UpdateProfile(ctx, email, strings.TrimSpace(name), strings.TrimSpace(photoURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// ListAccounts returns a page of accounts, optionally filtered by role.
func (s *AccountService) ListAccounts(ctx context.Context, role *domain.Role, limit, offset int) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx, role, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return accounts, nil
}

// SetBlocked toggles the block flag on a citizen account.
func (s *AccountService) SetBlocked(ctx context.Context, email string, blocked bool) error {
	if err := s.accounts.SetBlocked(ctx, email, blocked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account", map[string]any{"email": email})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// CreateStaff registers a staff account with a hashed password.
func (s *AccountService) CreateStaff(ctx context.Context, input StaffCreateInput) (*domain.Account, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(input.Email) == "" {
		details["email"] = "required"
	}
	if len(input.Password) < 6 {
		details["password"] = "minimum 6 characters"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", details)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	account := &domain.Account{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		PhotoURL:     strings.TrimSpace(input.PhotoURL),
		Role:         domain.RoleStaff,
		PasswordHash: &hash,
	}
	if err := s.accounts.CreateStaff(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// UpdateStaff patches a staff account; the password is re-hashed when
// provided (this is also how an admin re-issues a credential).
func (s *AccountService) UpdateStaff(ctx context.Context, email string, input StaffUpdateInput) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnknownStaff(email)
		}
		return nil, apperrors.MapError(err)
	}
	if account.Role != domain.RoleStaff {
		return nil, apperrors.NewUnknownStaff(email)
	}

	if input.Name != nil {
		account.Name = strings.TrimSpace(*input.Name)
	}
	if input.PhotoURL != nil {
		account.PhotoURL = strings.TrimSpace(*input.PhotoURL)
	}
	if input.Password != nil {
		if len(*input.Password) < 6 {
			return nil, apperrors.NewValidationError("password too short", map[string]any{"password": "minimum 6 characters"})
		}
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		account.PasswordHash = &hash
	}

	if err := s.accounts.UpdateStaff(ctx, account); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnknownStaff(email)
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// DeleteStaff removes a staff account. Citizens and admins are never
// hard-deleted.
func (s *AccountService) DeleteStaff(ctx context.Context, email string) error {
	if err := s.accounts.DeleteStaff(ctx, email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnknownStaff(email)
		}
		return apperrors.MapError(err)
	}
	return nil
}
