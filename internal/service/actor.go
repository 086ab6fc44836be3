package service

import (
	"github.com/google/uuid"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

// IsStaff reports whether the actor is a teacher or admin.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}
