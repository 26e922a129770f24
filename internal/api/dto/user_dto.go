package dto

import (
	"time"

	"github.com/smartmaint/maintenance-service/internal/domain"
)

// CreateUserRequest payload for new accounts.
type CreateUserRequest struct {
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Role        domain.Role `json:"role"`
	FullName    string      `json:"full_name"`
	PhoneNumber string      `json:"phone_number"`
}

// UpdateUserRequest carries the mutable user fields; absent fields are left
// untouched.
type UpdateUserRequest struct {
	Username    *string      `json:"username"`
	FullName    *string      `json:"full_name"`
	PhoneNumber *string      `json:"phone_number"`
	IsActive    *bool        `json:"is_active"`
	Role        *domain.Role `json:"role"`
}

// DeleteUserRequest optional payload.
type DeleteUserRequest struct {
	Reason *string `json:"reason"`
}

// UserResponse projects an account without credential material.
type UserResponse struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	FullName    string      `json:"full_name"`
	PhoneNumber string      `json:"phone_number"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
