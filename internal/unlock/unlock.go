package unlock

import (
	"github.com/google/uuid"

	"campaignForgeAPI/internal/campaign"
)

// Result of resolving one task for one participant.
type Result struct {
	Unlocked bool     `json:"unlocked"`
	Missing  []string `json:"missing,omitempty"`
}

// Evaluate decides lock state for a task given its dependency edges and the
// set of task IDs the participant already has approved submissions for.
//
// A task with no edges is always unlocked. ALL requires every edge satisfied,
// ANY at least one. Missing lists the names of unmet dependencies (for ALL
// diagnostics; for an unsatisfied ANY it lists every edge). Evaluate is a
// pure function: it only looks at direct edges, so a cyclic graph cannot make
// it loop — the cycle just leaves the involved tasks locked.
func Evaluate(depType campaign.DependencyType, deps []*campaign.Dependency, approved map[uuid.UUID]bool) Result {
	if len(deps) == 0 {
		return Result{Unlocked: true}
	}

	var missing []string
	satisfied := 0
	for _, d := range deps {
		if approved[d.DependsOnTaskID] {
			satisfied++
		} else {
			missing = append(missing, d.DependsOnName)
		}
	}

	switch depType {
	case campaign.DependencyAny:
		if satisfied > 0 {
			return Result{Unlocked: true}
		}
		return Result{Unlocked: false, Missing: missing}
	default: // all
		if satisfied == len(deps) {
			return Result{Unlocked: true}
		}
		return Result{Unlocked: false, Missing: missing}
	}
}
