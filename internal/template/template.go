package template

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/campaign"
)

// Template is a reusable campaign blueprint. Its task definitions are copied
// into live Campaign/Task/Achievement rows by the instantiator.
type Template struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description" db:"description"`
	Category    string            `json:"category" db:"category"`
	Difficulty  string            `json:"difficulty" db:"difficulty"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	Tasks       []*TaskDefinition `json:"tasks,omitempty"`
}

// TaskDefinition describes one task to materialize. Dependencies reference
// other definitions in the same list by task name; the instantiator resolves
// names to the freshly inserted task IDs.
type TaskDefinition struct {
	Name           string                   `json:"name"`
	Rules          string                   `json:"rules"`
	ValidationType campaign.ValidationType  `json:"validation_type"`
	DependencyType campaign.DependencyType  `json:"dependency_type"`
	StartDate      time.Time                `json:"start_date"`
	EndDate        time.Time                `json:"end_date"`
	DependsOn      []string                 `json:"depends_on,omitempty"`
	Achievements   []*AchievementDefinition `json:"achievements"`
}

// AchievementDefinition is the explicit record shape accepted at the
// instantiator boundary. Nothing opaque passes through.
type AchievementDefinition struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Points       int    `json:"points"`
	Icon         string `json:"icon"`
	Instructions string `json:"instructions"`
}

func (t *TaskDefinition) Points() int {
	total := 0
	for _, a := range t.Achievements {
		total += a.Points
	}
	return total
}

// Validate checks a task list before any row is written: structural fields,
// name uniqueness, dependency references, and graph acyclicity.
func Validate(tasks []*TaskDefinition) error {
	if len(tasks) == 0 {
		return fmt.Errorf("campaign needs at least one task")
	}

	byName := make(map[string]*TaskDefinition, len(tasks))
	for i, task := range tasks {
		if task.Name == "" {
			return fmt.Errorf("task %d has no name", i)
		}
		if _, dup := byName[task.Name]; dup {
			return fmt.Errorf("duplicate task name %q", task.Name)
		}
		byName[task.Name] = task

		if task.DependencyType == "" {
			task.DependencyType = campaign.DependencyAll
		}
		if task.DependencyType != campaign.DependencyAll && task.DependencyType != campaign.DependencyAny {
			return fmt.Errorf("task %q: unknown dependency type %q", task.Name, task.DependencyType)
		}
		if task.EndDate.Before(task.StartDate) {
			return fmt.Errorf("task %q ends before it starts", task.Name)
		}
		if len(task.Achievements) == 0 {
			return fmt.Errorf("task %q has no achievements", task.Name)
		}
		for _, a := range task.Achievements {
			if a.Name == "" {
				return fmt.Errorf("task %q: achievement with no name", task.Name)
			}
			if a.Points < 0 {
				return fmt.Errorf("task %q: achievement %q has negative points", task.Name, a.Name)
			}
		}
	}

	for _, task := range tasks {
		for _, dep := range task.DependsOn {
			if dep == task.Name {
				return fmt.Errorf("task %q depends on itself", task.Name)
			}
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("task %q depends on unknown task %q", task.Name, dep)
			}
		}
	}

	if cyclic(tasks, byName) {
		return fmt.Errorf("task dependencies contain a cycle")
	}
	return nil
}

// cyclic runs a three-color depth-first search over the dependency edges.
func cyclic(tasks []*TaskDefinition, byName map[string]*TaskDefinition) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = gray
		for _, dep := range byName[name].DependsOn {
			switch color[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		color[name] = black
		return false
	}

	for _, task := range tasks {
		if color[task.Name] == white && visit(task.Name) {
			return true
		}
	}
	return false
}

// Derived holds the campaign fields computed from a task list. They are pure
// functions of the tasks and are recomputed whenever the task list changes.
type Derived struct {
	StartDate      time.Time
	EndDate        time.Time
	EstimatedHours int
	TotalPoints    int
}

// Derive computes the campaign window as the min/max of task windows, the
// estimated duration as the hour delta between them, and the total points as
// the sum of all task point values.
func Derive(tasks []*TaskDefinition) Derived {
	var d Derived
	for i, task := range tasks {
		if i == 0 || task.StartDate.Before(d.StartDate) {
			d.StartDate = task.StartDate
		}
		if i == 0 || task.EndDate.After(d.EndDate) {
			d.EndDate = task.EndDate
		}
		d.TotalPoints += task.Points()
	}
	d.EstimatedHours = int(d.EndDate.Sub(d.StartDate).Hours())
	return d
}
