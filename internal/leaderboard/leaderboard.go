package leaderboard

import (
	"time"

	"github.com/google/uuid"
)

// Scope selects which progress rows a ranking query reads.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeCampaign Scope = "campaign"
	ScopeTeam     Scope = "team"
)

// Window restricts global rankings to progress rows joined inside the window.
type Window string

const (
	WindowAllTime Window = "all_time"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
)

func (w Window) Valid() bool {
	switch w {
	case WindowAllTime, WindowWeekly, WindowMonthly:
		return true
	}
	return false
}

// Entry is one ranked row. Ordering is total points descending, then
// joined-at ascending, then id ascending, so ties are reproducible. Rank is
// the 1-based position in the full ordered result, offset-aware.
type Entry struct {
	SubjectID   uuid.UUID `json:"subject_id" db:"subject_id"`
	Name        string    `json:"name" db:"name"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	TotalPoints int       `json:"total_points" db:"total_points"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
	Rank        int       `json:"rank"`
}

// Page is a paginated ranking view.
type Page struct {
	Entries []*Entry `json:"entries"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Pages   int      `json:"pages"`
}
