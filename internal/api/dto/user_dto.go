package dto

import (
	"time"

	"github.com/spec-kit/civic-issue-service/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProfileResponse mirrors the account shape the front end expects.
type ProfileResponse struct {
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Photo     string      `json:"photo"`
	Role      domain.Role `json:"role"`
	IsBlocked bool        `json:"isBlocked"`
	IsPremium bool        `json:"isPremium"`
	CreatedAt time.Time   `json:"createdAt"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// SetBlockedRequest payload.
type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

// CreateStaffRequest payload.
type CreateStaffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Photo    string `json:"photo"`
	Password string `json:"password"`
}

// UpdateStaffRequest payload. Absent fields are left unchanged.
type UpdateStaffRequest struct {
	Name     *string `json:"name"`
	Photo    *string `json:"photo"`
	Password *string `json:"password"`
}
