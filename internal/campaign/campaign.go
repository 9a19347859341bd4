package campaign

import (
	"time"

	"github.com/google/uuid"
)

type DependencyType string

const (
	DependencyAll DependencyType = "all"
	DependencyAny DependencyType = "any"
)

type ValidationType string

const (
	ValidationManual ValidationType = "manual"
	ValidationPhoto  ValidationType = "photo"
	ValidationLink   ValidationType = "link"
)

type Campaign struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Description     string     `json:"description" db:"description"`
	Category        string     `json:"category" db:"category"`
	Difficulty      string     `json:"difficulty" db:"difficulty"`
	StartDate       time.Time  `json:"start_date" db:"start_date"`
	EndDate         time.Time  `json:"end_date" db:"end_date"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	MaxParticipants *int       `json:"max_participants,omitempty" db:"max_participants"`
	EstimatedHours  int        `json:"estimated_hours" db:"estimated_hours"`
	TotalPoints     int        `json:"total_points" db:"total_points"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	Tasks           []*Task    `json:"tasks,omitempty"`
}

// Ended reports whether the campaign window has passed. Derived, never stored.
func (c *Campaign) Ended(now time.Time) bool {
	return now.After(c.EndDate) || now.Equal(c.EndDate)
}

type Task struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	CampaignID     uuid.UUID      `json:"campaign_id" db:"campaign_id"`
	Name           string         `json:"name" db:"name"`
	Rules          string         `json:"rules" db:"rules"`
	ValidationType ValidationType `json:"validation_type" db:"validation_type"`
	DependencyType DependencyType `json:"dependency_type" db:"dependency_type"`
	Position       int            `json:"position" db:"position"`
	StartDate      time.Time      `json:"start_date" db:"start_date"`
	EndDate        time.Time      `json:"end_date" db:"end_date"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	Achievements   []*Achievement `json:"achievements,omitempty"`
	Dependencies   []*Dependency  `json:"dependencies,omitempty"`
}

// Points is the task's value: the sum of its achievements' points. The
// achievement rows are the source of truth, nothing is cached elsewhere.
func (t *Task) Points() int {
	total := 0
	for _, a := range t.Achievements {
		total += a.Points
	}
	return total
}

type Achievement struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TaskID       uuid.UUID `json:"task_id" db:"task_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Points       int       `json:"points" db:"points"`
	Icon         string    `json:"icon" db:"icon"`
	Instructions string    `json:"instructions" db:"instructions"`
}

// Dependency is a directed edge "TaskID requires DependsOnTaskID". The ALL/ANY
// semantics live on the task, not the edge.
type Dependency struct {
	TaskID          uuid.UUID `json:"task_id" db:"task_id"`
	DependsOnTaskID uuid.UUID `json:"depends_on_task_id" db:"depends_on_task_id"`
	DependsOnName   string    `json:"depends_on_name" db:"depends_on_name"`
}
