package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// LoginRequest carries user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse returns the issued bearer token.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID            uuid.UUID       `json:"id"`
	InstitutionID uuid.UUID       `json:"institution_id"`
	Email         string          `json:"email"`
	FullName      string          `json:"full_name"`
	Role          models.UserRole `json:"role"`
}

// NewUserResponse maps a user.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		InstitutionID: user.InstitutionID,
		Email:         user.Email,
		FullName:      user.FullName,
		Role:          user.Role,
	}
}
