package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/progress"
	"campaignForgeAPI/internal/team"
	"campaignForgeAPI/internal/user"
)

const defaultMaxMembers = 10

// TeamStore is the slice of the persistence port the team operations use.
type TeamStore interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	CreateTeam(ctx context.Context, t *team.Team) (*team.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*team.Team, error)
	AddMember(ctx context.Context, teamID, userID uuid.UUID) (*team.Member, error)
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
	TransferCaptain(ctx context.Context, teamID, fromUserID, toUserID uuid.UUID) error
	TeamJoinCampaign(ctx context.Context, teamID, campaignID uuid.UUID) (*progress.TeamProgress, error)
}

type TeamService struct {
	store TeamStore
}

func NewTeamService(store TeamStore) *TeamService {
	return &TeamService{store: store}
}

// Create makes a new team with the caller as captain.
func (s *TeamService) Create(ctx context.Context, clerkID, name string, maxMembers int) (*team.Team, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperr.Conflictf("team name is required")
	}
	if maxMembers <= 0 {
		maxMembers = defaultMaxMembers
	}

	t := &team.Team{
		ID:         uuid.New(),
		Name:       name,
		CaptainID:  u.ID,
		MaxMembers: maxMembers,
	}
	created, err := s.store.CreateTeam(ctx, t)
	if err != nil {
		return nil, err
	}

	log.Printf("CreateTeam: %s created team %s", u.ID, created.ID)
	return created, nil
}

func (s *TeamService) Get(ctx context.Context, teamID uuid.UUID) (*team.Team, error) {
	return s.store.GetTeam(ctx, teamID)
}

// Join adds the caller to a team, respecting the member cap and the
// one-membership-per-user constraint.
func (s *TeamService) Join(ctx context.Context, clerkID string, teamID uuid.UUID) (*team.Member, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.store.AddMember(ctx, teamID, u.ID)
}

// Leave removes the caller from a team. The captain must transfer captaincy
// first.
func (s *TeamService) Leave(ctx context.Context, clerkID string, teamID uuid.UUID) error {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}
	return s.store.RemoveMember(ctx, teamID, u.ID)
}

// TransferCaptain hands the captain role to another member. Only the current
// captain may call this.
func (s *TeamService) TransferCaptain(ctx context.Context, clerkID string, teamID, toUserID uuid.UUID) error {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}
	return s.store.TransferCaptain(ctx, teamID, u.ID, toUserID)
}

// JoinCampaign enters the team into a campaign. Captain only; members'
// approvals then feed the team's progress row.
func (s *TeamService) JoinCampaign(ctx context.Context, clerkID string, teamID, campaignID uuid.UUID) (*progress.TeamProgress, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	t, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if t.CaptainID != u.ID {
		return nil, fmt.Errorf("%w: only the captain can enter the team into a campaign", apperr.ErrForbidden)
	}

	return s.store.TeamJoinCampaign(ctx, teamID, campaignID)
}
