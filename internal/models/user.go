package models

import (
	"time"

	"github.com/google/uuid"
)

// User role enums.
const (
	UserRoleClient     = "client"
	UserRoleFreelancer = "freelancer"
)

// SignupBonusCredits is granted through the ledger when a user registers.
const SignupBonusCredits = 20

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
