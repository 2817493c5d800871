package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-issue-service/internal/config"
	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/repository"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

const actorKey = "auth_actor"

// AuthMiddleware validates bearer tokens and resolves the calling account.
// A previously-unseen email is upserted as a citizen (or admin when listed
// in the bootstrap config). Blocked accounts still resolve; blocking is
// enforced per-action by the workflow engine so blocked users keep read
// access.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
	authCfg  config.AuthConfig
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository, authCfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts, authCfg: authCfg}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	role := domain.RoleCitizen
	if m.authCfg.IsAdminEmail(claims.Email) {
		role = domain.RoleAdmin
	}

	account, err := m.accounts.UpsertByEmail(c.UserContext(), claims.Email, claims.Name, claims.Picture, role)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(actorKey, account)
	return c.Next()
}

// ActorFromContext retrieves the authenticated account.
func ActorFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}
