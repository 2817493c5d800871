package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-issue-service/internal/api/dto"
	"github.com/spec-kit/civic-issue-service/internal/auth"
	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/service"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// UsersHandler serves staff login and profile reads/updates.
type UsersHandler struct {
	accounts *service.AccountService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(accounts *service.AccountService) *UsersHandler {
	return &UsersHandler{accounts: accounts}
}

// StaffLogin POST /auth/staff/login. Password credential for staff and
// admin accounts; citizens authenticate with the external provider.
func (h *UsersHandler) StaffLogin(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	token, expiresAt, err := h.accounts.StaffLogin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: expiresAt})
}

// GetProfile GET /users/profile/:email. Owner or admin.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	account, err := h.accounts.GetProfile(c.UserContext(), actor, c.Params("email"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": profileResponse(account)})
}

// UpdateProfile PATCH /users/profile/:email. Owner or admin.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, err := h.accounts.UpdateProfile(c.UserContext(), actor, c.Params("email"), req.Name, req.Photo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": profileResponse(account)})
}

func profileResponse(account *domain.Account) dto.ProfileResponse {
	return dto.ProfileResponse{
		Email:     account.Email,
		Name:      account.Name,
		Photo:     account.PhotoURL,
		Role:      account.Role,
		IsBlocked: account.IsBlocked,
		IsPremium: account.IsPremium,
		CreatedAt: account.CreatedAt,
	}
}
