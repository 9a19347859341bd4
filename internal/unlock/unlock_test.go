package unlock

import (
	"testing"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/campaign"
)

func dep(id uuid.UUID, name string) *campaign.Dependency {
	return &campaign.Dependency{DependsOnTaskID: id, DependsOnName: name}
}

func TestEvaluate(t *testing.T) {
	warmup := uuid.New()
	scrimmage := uuid.New()
	finals := uuid.New()

	tests := []struct {
		name         string
		depType      campaign.DependencyType
		deps         []*campaign.Dependency
		approved     map[uuid.UUID]bool
		wantUnlocked bool
		wantMissing  []string
	}{
		{
			name:         "no edges is always unlocked",
			depType:      campaign.DependencyAll,
			deps:         nil,
			approved:     map[uuid.UUID]bool{},
			wantUnlocked: true,
		},
		{
			name:    "all with every edge approved",
			depType: campaign.DependencyAll,
			deps: []*campaign.Dependency{
				dep(warmup, "Warmup"),
				dep(scrimmage, "Scrimmage"),
			},
			approved:     map[uuid.UUID]bool{warmup: true, scrimmage: true},
			wantUnlocked: true,
		},
		{
			name:    "all with one edge missing stays locked",
			depType: campaign.DependencyAll,
			deps: []*campaign.Dependency{
				dep(warmup, "Warmup"),
				dep(scrimmage, "Scrimmage"),
			},
			approved:     map[uuid.UUID]bool{warmup: true},
			wantUnlocked: false,
			wantMissing:  []string{"Scrimmage"},
		},
		{
			name:    "any with a single approval unlocks",
			depType: campaign.DependencyAny,
			deps: []*campaign.Dependency{
				dep(warmup, "Warmup"),
				dep(scrimmage, "Scrimmage"),
				dep(finals, "Finals"),
			},
			approved:     map[uuid.UUID]bool{scrimmage: true},
			wantUnlocked: true,
		},
		{
			name:    "any with nothing approved lists every edge",
			depType: campaign.DependencyAny,
			deps: []*campaign.Dependency{
				dep(warmup, "Warmup"),
				dep(scrimmage, "Scrimmage"),
			},
			approved:     map[uuid.UUID]bool{},
			wantUnlocked: false,
			wantMissing:  []string{"Warmup", "Scrimmage"},
		},
		{
			name:    "rejected submission does not satisfy an edge",
			depType: campaign.DependencyAll,
			deps:    []*campaign.Dependency{dep(warmup, "Warmup")},
			// the approved set only ever contains approved task IDs, so a
			// rejected submission is simply absent
			approved:     map[uuid.UUID]bool{},
			wantUnlocked: false,
			wantMissing:  []string{"Warmup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.depType, tt.deps, tt.approved)
			if got.Unlocked != tt.wantUnlocked {
				t.Fatalf("Unlocked = %v, want %v", got.Unlocked, tt.wantUnlocked)
			}
			if len(got.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %v, want %v", got.Missing, tt.wantMissing)
			}
			for i := range tt.wantMissing {
				if got.Missing[i] != tt.wantMissing[i] {
					t.Errorf("Missing[%d] = %q, want %q", i, got.Missing[i], tt.wantMissing[i])
				}
			}
		})
	}
}

// A diamond: Final requires both Semi A and Semi B, each of which requires the
// Opener. Approving along one branch only must not unlock the final.
func TestEvaluateDiamond(t *testing.T) {
	opener := uuid.New()
	semiA := uuid.New()
	semiB := uuid.New()

	approved := map[uuid.UUID]bool{opener: true, semiA: true}

	finalDeps := []*campaign.Dependency{
		dep(semiA, "Semi A"),
		dep(semiB, "Semi B"),
	}
	got := Evaluate(campaign.DependencyAll, finalDeps, approved)
	if got.Unlocked {
		t.Fatal("final unlocked with only one semi approved")
	}
	if len(got.Missing) != 1 || got.Missing[0] != "Semi B" {
		t.Fatalf("Missing = %v, want [Semi B]", got.Missing)
	}

	approved[semiB] = true
	if got := Evaluate(campaign.DependencyAll, finalDeps, approved); !got.Unlocked {
		t.Fatal("final still locked with both semis approved")
	}
}

// Tasks in a dependency cycle are unreachable but must not hang resolution.
func TestEvaluateCycleStaysLocked(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	resA := Evaluate(campaign.DependencyAll, []*campaign.Dependency{dep(b, "B")}, map[uuid.UUID]bool{})
	resB := Evaluate(campaign.DependencyAll, []*campaign.Dependency{dep(a, "A")}, map[uuid.UUID]bool{})
	if resA.Unlocked || resB.Unlocked {
		t.Error("tasks in a cycle should both stay locked")
	}
}
