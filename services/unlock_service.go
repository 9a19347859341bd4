package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/campaign"
	"campaignForgeAPI/internal/unlock"
	"campaignForgeAPI/internal/user"
)

// UnlockStore is the slice of the persistence port the resolver reads.
type UnlockStore interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	ListCampaignTasks(ctx context.Context, campaignID uuid.UUID) ([]*campaign.Task, error)
	GetCampaignTask(ctx context.Context, campaignID, taskID uuid.UUID) (*campaign.Task, error)
	ApprovedTaskIDs(ctx context.Context, userID, campaignID uuid.UUID) (map[uuid.UUID]bool, error)
}

// UnlockService is the task graph resolver. It has no state and no side
// effects; every call reads the current submission rows.
type UnlockService struct {
	store UnlockStore
}

func NewUnlockService(store UnlockStore) *UnlockService {
	return &UnlockService{store: store}
}

// IsUnlocked resolves one task for the authenticated participant.
func (s *UnlockService) IsUnlocked(ctx context.Context, clerkID string, campaignID, taskID uuid.UUID) (unlock.Result, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return unlock.Result{}, err
	}
	return s.resolve(ctx, u.ID, campaignID, taskID)
}

func (s *UnlockService) resolve(ctx context.Context, userID, campaignID, taskID uuid.UUID) (unlock.Result, error) {
	task, err := s.store.GetCampaignTask(ctx, campaignID, taskID)
	if err != nil {
		return unlock.Result{}, err
	}

	approved, err := s.store.ApprovedTaskIDs(ctx, userID, campaignID)
	if err != nil {
		return unlock.Result{}, fmt.Errorf("failed to load approved tasks: %w", err)
	}

	return unlock.Evaluate(task.DependencyType, task.Dependencies, approved), nil
}

// ListUnlockedTasks returns the campaign's tasks, in campaign order, that the
// participant may currently submit against.
func (s *UnlockService) ListUnlockedTasks(ctx context.Context, clerkID string, campaignID uuid.UUID) ([]*campaign.Task, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.ListCampaignTasks(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	approved, err := s.store.ApprovedTaskIDs(ctx, u.ID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved tasks: %w", err)
	}

	unlocked := make([]*campaign.Task, 0, len(tasks))
	for _, task := range tasks {
		if unlock.Evaluate(task.DependencyType, task.Dependencies, approved).Unlocked {
			unlocked = append(unlocked, task)
		}
	}
	return unlocked, nil
}

// TaskState pairs a task with its resolved lock state, for campaign detail
// views.
type TaskState struct {
	Task     *campaign.Task `json:"task"`
	Unlocked bool           `json:"unlocked"`
	Missing  []string       `json:"missing,omitempty"`
}

// ResolveAll resolves every task in the campaign for the participant.
func (s *UnlockService) ResolveAll(ctx context.Context, clerkID string, campaignID uuid.UUID) ([]*TaskState, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.ListCampaignTasks(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	approved, err := s.store.ApprovedTaskIDs(ctx, u.ID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved tasks: %w", err)
	}

	states := make([]*TaskState, 0, len(tasks))
	for _, task := range tasks {
		res := unlock.Evaluate(task.DependencyType, task.Dependencies, approved)
		states = append(states, &TaskState{Task: task, Unlocked: res.Unlocked, Missing: res.Missing})
	}
	return states, nil
}
