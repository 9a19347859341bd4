package team

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCaptain Role = "captain"
	RoleMember  Role = "member"
)

type Team struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	CaptainID  uuid.UUID `json:"captain_id" db:"captain_id"`
	MaxMembers int       `json:"max_members" db:"max_members"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Members    []*Member `json:"members,omitempty"`
}

type Member struct {
	ID                uuid.UUID `json:"id" db:"id"`
	TeamID            uuid.UUID `json:"team_id" db:"team_id"`
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	Role              Role      `json:"role" db:"role"`
	PointsContributed int       `json:"points_contributed" db:"points_contributed"`
	JoinedAt          time.Time `json:"joined_at" db:"joined_at"`
}
