package progress

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusJoined     Status = "joined"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// CampaignProgress is unique per (user, campaign). TotalPoints only grows
// while the campaign is open; credits are serialized by the store.
type CampaignProgress struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	CampaignID  uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Status      Status    `json:"status" db:"status"`
	TotalPoints int       `json:"total_points" db:"total_points"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TeamProgress mirrors CampaignProgress but is keyed by (team, campaign).
// Points arrive through team members' approved submissions.
type TeamProgress struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	TeamID              uuid.UUID `json:"team_id" db:"team_id"`
	CampaignID          uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Status              Status    `json:"status" db:"status"`
	TotalPoints         int       `json:"total_points" db:"total_points"`
	TotalTasksCompleted int       `json:"total_tasks_completed" db:"total_tasks_completed"`
	JoinedAt            time.Time `json:"joined_at" db:"joined_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Counts is what callers need to derive COMPLETED: a progress row is complete
// when every task in the campaign has an approved submission.
type Counts struct {
	CompletedTasks int `json:"completed_tasks"`
	TotalTasks     int `json:"total_tasks"`
	TotalPoints    int `json:"total_points"`
}
