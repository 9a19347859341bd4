package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/campaign"
	"campaignForgeAPI/internal/user"
)

type fakeUnlockStore struct {
	users    map[string]*user.User
	tasks    []*campaign.Task
	approved map[uuid.UUID]bool
}

func (f *fakeUnlockStore) GetUserByClerkID(_ context.Context, clerkID string) (*user.User, error) {
	u, ok := f.users[clerkID]
	if !ok {
		return nil, apperr.NotFoundf("user %s", clerkID)
	}
	return u, nil
}

func (f *fakeUnlockStore) ListCampaignTasks(_ context.Context, _ uuid.UUID) ([]*campaign.Task, error) {
	return f.tasks, nil
}

func (f *fakeUnlockStore) GetCampaignTask(_ context.Context, _, taskID uuid.UUID) (*campaign.Task, error) {
	for _, t := range f.tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, apperr.NotFoundf("task %s", taskID)
}

func (f *fakeUnlockStore) ApprovedTaskIDs(_ context.Context, _, _ uuid.UUID) (map[uuid.UUID]bool, error) {
	return f.approved, nil
}

// A three-step chain plus a free side task: the participant has finished step
// one only.
func newChainStore() (*fakeUnlockStore, []*campaign.Task) {
	step1 := &campaign.Task{ID: uuid.New(), Name: "Step 1", DependencyType: campaign.DependencyAll}
	step2 := &campaign.Task{
		ID: uuid.New(), Name: "Step 2", DependencyType: campaign.DependencyAll,
		Dependencies: []*campaign.Dependency{{DependsOnTaskID: step1.ID, DependsOnName: "Step 1"}},
	}
	step3 := &campaign.Task{
		ID: uuid.New(), Name: "Step 3", DependencyType: campaign.DependencyAll,
		Dependencies: []*campaign.Dependency{{DependsOnTaskID: step2.ID, DependsOnName: "Step 2"}},
	}
	side := &campaign.Task{ID: uuid.New(), Name: "Side Quest", DependencyType: campaign.DependencyAny}

	tasks := []*campaign.Task{step1, step2, step3, side}
	store := &fakeUnlockStore{
		users:    map[string]*user.User{"clerk_p": {ID: uuid.New()}},
		tasks:    tasks,
		approved: map[uuid.UUID]bool{step1.ID: true},
	}
	return store, tasks
}

func TestListUnlockedTasks(t *testing.T) {
	store, _ := newChainStore()
	svc := NewUnlockService(store)

	unlocked, err := svc.ListUnlockedTasks(context.Background(), "clerk_p", uuid.New())
	if err != nil {
		t.Fatalf("ListUnlockedTasks: %v", err)
	}

	// Step 1 (done but still unlocked), Step 2 (freed), Side Quest (no deps).
	// Step 3 stays locked behind Step 2. Campaign order is preserved.
	want := []string{"Step 1", "Step 2", "Side Quest"}
	if len(unlocked) != len(want) {
		t.Fatalf("unlocked = %d tasks, want %d", len(unlocked), len(want))
	}
	for i, name := range want {
		if unlocked[i].Name != name {
			t.Errorf("unlocked[%d] = %q, want %q", i, unlocked[i].Name, name)
		}
	}
}

func TestIsUnlocked(t *testing.T) {
	store, tasks := newChainStore()
	svc := NewUnlockService(store)
	step3 := tasks[2]

	res, err := svc.IsUnlocked(context.Background(), "clerk_p", uuid.New(), step3.ID)
	if err != nil {
		t.Fatalf("IsUnlocked: %v", err)
	}
	if res.Unlocked {
		t.Fatal("step 3 should be locked behind step 2")
	}
	if len(res.Missing) != 1 || res.Missing[0] != "Step 2" {
		t.Errorf("Missing = %v, want [Step 2]", res.Missing)
	}
}

func TestResolveAll(t *testing.T) {
	store, tasks := newChainStore()
	svc := NewUnlockService(store)

	states, err := svc.ResolveAll(context.Background(), "clerk_p", uuid.New())
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(states) != len(tasks) {
		t.Fatalf("states = %d, want one per task", len(states))
	}

	byName := map[string]bool{}
	for _, s := range states {
		byName[s.Task.Name] = s.Unlocked
	}
	for name, want := range map[string]bool{
		"Step 1": true, "Step 2": true, "Step 3": false, "Side Quest": true,
	} {
		if byName[name] != want {
			t.Errorf("%s unlocked = %v, want %v", name, byName[name], want)
		}
	}
}
