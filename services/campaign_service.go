package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/campaign"
	"campaignForgeAPI/internal/progress"
	"campaignForgeAPI/internal/template"
	"campaignForgeAPI/internal/user"
)

// CampaignStore is the slice of the persistence port the instantiator and
// campaign reads use.
type CampaignStore interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*template.Template, error)
	CreateTemplate(ctx context.Context, tpl *template.Template) (*template.Template, error)
	InstantiateCampaign(ctx context.Context, c *campaign.Campaign, defs []*template.TaskDefinition) (*campaign.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error)
	ListCampaignTasks(ctx context.Context, campaignID uuid.UUID) ([]*campaign.Task, error)
	JoinCampaign(ctx context.Context, userID, campaignID uuid.UUID) (*progress.CampaignProgress, error)
	ProgressCounts(ctx context.Context, userID, campaignID uuid.UUID) (*progress.Counts, error)
	MarkCompleted(ctx context.Context, userID, campaignID uuid.UUID) error
}

type CampaignService struct {
	store CampaignStore
}

func NewCampaignService(store CampaignStore) *CampaignService {
	return &CampaignService{store: store}
}

// InstantiateRequest carries the caller overrides. A nil TemplateID means an
// ad-hoc campaign built purely from Tasks; a non-nil Tasks list fully
// replaces the template's definitions.
type InstantiateRequest struct {
	TemplateID      *uuid.UUID                 `json:"template_id,omitempty"`
	Name            string                     `json:"name,omitempty"`
	Description     string                     `json:"description,omitempty"`
	Category        string                     `json:"category,omitempty"`
	Difficulty      string                     `json:"difficulty,omitempty"`
	StartDate       *time.Time                 `json:"start_date,omitempty"`
	EndDate         *time.Time                 `json:"end_date,omitempty"`
	MaxParticipants *int                       `json:"max_participants,omitempty"`
	Tasks           []*template.TaskDefinition `json:"tasks,omitempty"`
}

// Instantiate materializes a campaign from a template, from caller-supplied
// tasks, or both. Validation (structure, dependency references, acyclicity)
// happens before any row is written; the write itself is one transaction.
// Campaign window, duration, and total points are derived from the task list
// unless the caller pins the window explicitly.
func (s *CampaignService) Instantiate(ctx context.Context, clerkID string, req *InstantiateRequest) (*campaign.Campaign, error) {
	actor, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanReview() {
		return nil, fmt.Errorf("%w: instantiating campaigns requires the admin role", apperr.ErrForbidden)
	}

	c := &campaign.Campaign{
		ID:              uuid.New(),
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Difficulty:      req.Difficulty,
		IsActive:        true,
		MaxParticipants: req.MaxParticipants,
	}

	defs := req.Tasks
	if req.TemplateID != nil {
		tpl, err := s.store.GetTemplate(ctx, *req.TemplateID)
		if err != nil {
			return nil, err
		}
		if defs == nil {
			defs = tpl.Tasks
		}
		if c.Name == "" {
			c.Name = tpl.Name
		}
		if c.Description == "" {
			c.Description = tpl.Description
		}
		if c.Category == "" {
			c.Category = tpl.Category
		}
		if c.Difficulty == "" {
			c.Difficulty = tpl.Difficulty
		}
	}

	if err := template.Validate(defs); err != nil {
		return nil, apperr.Conflictf("invalid task list: %v", err)
	}

	derived := template.Derive(defs)
	c.StartDate = derived.StartDate
	c.EndDate = derived.EndDate
	c.EstimatedHours = derived.EstimatedHours
	c.TotalPoints = derived.TotalPoints
	if req.StartDate != nil {
		c.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		c.EndDate = *req.EndDate
	}
	if req.StartDate != nil || req.EndDate != nil {
		// Overridden dates resize the window, so the hour estimate follows.
		c.EstimatedHours = int(c.EndDate.Sub(c.StartDate).Hours())
	}

	created, err := s.store.InstantiateCampaign(ctx, c, defs)
	if err != nil {
		return nil, err
	}

	log.Printf("Instantiate: %s created campaign %s with %d tasks (%d points)", actor.ID, created.ID, len(defs), created.TotalPoints)
	return created, nil
}

// Duplicate clones a template into a new template row, tasks and achievement
// definitions included.
func (s *CampaignService) Duplicate(ctx context.Context, clerkID string, templateID uuid.UUID) (*template.Template, error) {
	actor, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanReview() {
		return nil, fmt.Errorf("%w: duplicating templates requires the admin role", apperr.ErrForbidden)
	}

	src, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	copyTpl := &template.Template{
		ID:          uuid.New(),
		Name:        src.Name + " (copy)",
		Description: src.Description,
		Category:    src.Category,
		Difficulty:  src.Difficulty,
		Tasks:       src.Tasks,
	}
	return s.store.CreateTemplate(ctx, copyTpl)
}

// GetCampaign returns the campaign with its ordered task list.
func (s *CampaignService) GetCampaign(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Tasks, err = s.store.ListCampaignTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Join creates the caller's joined progress row for the campaign.
func (s *CampaignService) Join(ctx context.Context, clerkID string, campaignID uuid.UUID) (*progress.CampaignProgress, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.store.JoinCampaign(ctx, u.ID, campaignID)
}

// Progress returns the caller's completion counts for a campaign, and flips
// the progress row to completed once every task has an approved submission.
func (s *CampaignService) Progress(ctx context.Context, clerkID string, campaignID uuid.UUID) (*progress.Counts, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.ProgressCounts(ctx, u.ID, campaignID)
	if err != nil {
		return nil, err
	}

	if counts.TotalTasks > 0 && counts.CompletedTasks == counts.TotalTasks {
		if err := s.store.MarkCompleted(ctx, u.ID, campaignID); err != nil {
			log.Printf("Progress: failed to mark campaign %s completed for %s: %v", campaignID, u.ID, err)
		}
	}
	return counts, nil
}
