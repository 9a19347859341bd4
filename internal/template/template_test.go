package template

import (
	"strings"
	"testing"
	"time"

	"campaignForgeAPI/internal/campaign"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func def(name string, points int, dependsOn ...string) *TaskDefinition {
	return &TaskDefinition{
		Name:           name,
		Rules:          "do the thing",
		ValidationType: campaign.ValidationManual,
		StartDate:      day(1),
		EndDate:        day(2),
		DependsOn:      dependsOn,
		Achievements: []*AchievementDefinition{
			{Name: name + " badge", Points: points},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []*TaskDefinition
		wantErr string
	}{
		{
			name:    "empty list",
			tasks:   nil,
			wantErr: "at least one task",
		},
		{
			name:  "valid chain",
			tasks: []*TaskDefinition{def("a", 10), def("b", 20, "a"), def("c", 30, "b")},
		},
		{
			name:    "duplicate names",
			tasks:   []*TaskDefinition{def("a", 10), def("a", 20)},
			wantErr: "duplicate task name",
		},
		{
			name:    "unnamed task",
			tasks:   []*TaskDefinition{def("", 10)},
			wantErr: "no name",
		},
		{
			name:    "self dependency",
			tasks:   []*TaskDefinition{def("a", 10, "a")},
			wantErr: "depends on itself",
		},
		{
			name:    "unknown dependency",
			tasks:   []*TaskDefinition{def("a", 10, "ghost")},
			wantErr: "unknown task",
		},
		{
			name:    "two task cycle",
			tasks:   []*TaskDefinition{def("a", 10, "b"), def("b", 20, "a")},
			wantErr: "cycle",
		},
		{
			name: "three task cycle",
			tasks: []*TaskDefinition{
				def("a", 10, "c"), def("b", 20, "a"), def("c", 30, "b"),
			},
			wantErr: "cycle",
		},
		{
			name: "diamond is not a cycle",
			tasks: []*TaskDefinition{
				def("root", 10),
				def("left", 10, "root"),
				def("right", 10, "root"),
				def("join", 10, "left", "right"),
			},
		},
		{
			name: "no achievements",
			tasks: []*TaskDefinition{{
				Name:      "bare",
				StartDate: day(1),
				EndDate:   day(2),
			}},
			wantErr: "no achievements",
		},
		{
			name: "negative points",
			tasks: []*TaskDefinition{{
				Name:      "bad",
				StartDate: day(1),
				EndDate:   day(2),
				Achievements: []*AchievementDefinition{
					{Name: "penalty", Points: -5},
				},
			}},
			wantErr: "negative points",
		},
		{
			name: "end before start",
			tasks: []*TaskDefinition{{
				Name:      "backwards",
				StartDate: day(5),
				EndDate:   day(1),
				Achievements: []*AchievementDefinition{
					{Name: "x", Points: 1},
				},
			}},
			wantErr: "ends before it starts",
		},
		{
			name: "unknown dependency type",
			tasks: func() []*TaskDefinition {
				d := def("a", 10)
				d.DependencyType = "some"
				return []*TaskDefinition{d}
			}(),
			wantErr: "unknown dependency type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tasks)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaultsDependencyType(t *testing.T) {
	d := def("a", 10)
	d.DependencyType = ""
	if err := Validate([]*TaskDefinition{d}); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if d.DependencyType != campaign.DependencyAll {
		t.Errorf("DependencyType = %q, want %q", d.DependencyType, campaign.DependencyAll)
	}
}

func TestDerive(t *testing.T) {
	early := def("early", 10)
	early.StartDate = day(1)
	early.EndDate = day(3)

	late := def("late", 25)
	late.StartDate = day(2)
	late.EndDate = day(6)
	late.Achievements = append(late.Achievements, &AchievementDefinition{Name: "bonus", Points: 5})

	got := Derive([]*TaskDefinition{early, late})
	if !got.StartDate.Equal(day(1)) {
		t.Errorf("StartDate = %v, want %v", got.StartDate, day(1))
	}
	if !got.EndDate.Equal(day(6)) {
		t.Errorf("EndDate = %v, want %v", got.EndDate, day(6))
	}
	if got.EstimatedHours != 5*24 {
		t.Errorf("EstimatedHours = %d, want %d", got.EstimatedHours, 5*24)
	}
	if got.TotalPoints != 40 {
		t.Errorf("TotalPoints = %d, want 40", got.TotalPoints)
	}
}
