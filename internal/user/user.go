package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
)

// CanReview reports whether the role may review submissions or run admin
// operations like template instantiation.
func (r Role) CanReview() bool {
	return r == RoleAdmin
}

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ClerkID   string    `json:"clerk_id" db:"clerk_id"`
	Email     string    `json:"email" db:"email"`
	Username  string    `json:"username" db:"username"`
	ImageURL  *string   `json:"image_url,omitempty" db:"image_url"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
