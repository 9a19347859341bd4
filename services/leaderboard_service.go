package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/leaderboard"
	"campaignForgeAPI/internal/progress"
	"campaignForgeAPI/internal/user"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LeaderboardStore is the slice of the persistence port the ranker reads.
// One function per scope keeps the tie-break and pagination in one place.
type LeaderboardStore interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	GetProgress(ctx context.Context, userID, campaignID uuid.UUID) (*progress.CampaignProgress, error)
	GlobalLeaderboard(ctx context.Context, window leaderboard.Window, limit, offset int) ([]*leaderboard.Entry, int, error)
	CampaignLeaderboard(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*leaderboard.Entry, int, error)
	TeamLeaderboard(ctx context.Context, campaignID *uuid.UUID, limit, offset int) ([]*leaderboard.Entry, int, error)
	UserGlobalRank(ctx context.Context, userID uuid.UUID, window leaderboard.Window) (int, error)
	UserCampaignRank(ctx context.Context, userID, campaignID uuid.UUID) (int, error)
	TeamGlobalRank(ctx context.Context, teamID uuid.UUID) (int, error)
	TeamCampaignRank(ctx context.Context, teamID, campaignID uuid.UUID) (int, error)
}

// LeaderboardService computes every ranking fresh from current progress
// rows. Reads vastly outnumber point-changing writes, and recomputation is
// the only ordering that stays correct after point corrections.
type LeaderboardService struct {
	store LeaderboardStore
}

func NewLeaderboardService(store LeaderboardStore) *LeaderboardService {
	return &LeaderboardService{store: store}
}

// RankQuery selects a scope and a page of it.
type RankQuery struct {
	Scope      leaderboard.Scope
	Window     leaderboard.Window
	CampaignID *uuid.UUID
	Page       int
	Limit      int
}

func (q *RankQuery) normalize() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Window == "" {
		q.Window = leaderboard.WindowAllTime
	}
	if !q.Window.Valid() {
		return apperr.Conflictf("unknown window %q", q.Window)
	}
	switch q.Scope {
	case leaderboard.ScopeGlobal, leaderboard.ScopeTeam:
	case leaderboard.ScopeCampaign:
		if q.CampaignID == nil {
			return apperr.Conflictf("campaign scope requires a campaign id")
		}
	default:
		return apperr.Conflictf("unknown scope %q", q.Scope)
	}
	return nil
}

// Rank returns one page of the scope's ordered table. Each entry's rank is
// its 1-based position in the full ordering, offset included — ties are not
// collapsed into a dense rank.
func (s *LeaderboardService) Rank(ctx context.Context, q RankQuery) (*leaderboard.Page, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	skip := (q.Page - 1) * q.Limit

	var (
		entries []*leaderboard.Entry
		total   int
		err     error
	)
	switch q.Scope {
	case leaderboard.ScopeGlobal:
		entries, total, err = s.store.GlobalLeaderboard(ctx, q.Window, q.Limit, skip)
	case leaderboard.ScopeCampaign:
		entries, total, err = s.store.CampaignLeaderboard(ctx, *q.CampaignID, q.Limit, skip)
	case leaderboard.ScopeTeam:
		entries, total, err = s.store.TeamLeaderboard(ctx, q.CampaignID, q.Limit, skip)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rank %s scope: %w", q.Scope, err)
	}

	for i, entry := range entries {
		entry.Rank = skip + i + 1
	}

	pages := 0
	if total > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}

	if entries == nil {
		entries = []*leaderboard.Entry{}
	}

	return &leaderboard.Page{
		Entries: entries,
		Total:   total,
		Page:    q.Page,
		Pages:   pages,
	}, nil
}

// TopPerformers returns the first n entries of the same ordering Rank uses,
// so a podium always agrees with the full table.
func (s *LeaderboardService) TopPerformers(ctx context.Context, q RankQuery, n int) ([]*leaderboard.Entry, error) {
	q.Page = 1
	q.Limit = n
	page, err := s.Rank(ctx, q)
	if err != nil {
		return nil, err
	}
	return page.Entries, nil
}

// UserRank answers the caller's current position: the number of subjects
// strictly preceding them under the shared ordering key, plus one.
func (s *LeaderboardService) UserRank(ctx context.Context, clerkID string, q RankQuery) (int, error) {
	if err := q.normalize(); err != nil {
		return 0, err
	}

	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	switch q.Scope {
	case leaderboard.ScopeCampaign:
		// The subject must hold a progress row; a missing row is not rank 1.
		if _, err := s.store.GetProgress(ctx, u.ID, *q.CampaignID); err != nil {
			return 0, err
		}
		return s.store.UserCampaignRank(ctx, u.ID, *q.CampaignID)
	case leaderboard.ScopeGlobal:
		return s.store.UserGlobalRank(ctx, u.ID, q.Window)
	default:
		return 0, apperr.Conflictf("user rank is not defined for scope %q", q.Scope)
	}
}

// TeamRank answers a team's current position, globally or in one campaign.
func (s *LeaderboardService) TeamRank(ctx context.Context, teamID uuid.UUID, campaignID *uuid.UUID) (int, error) {
	if campaignID != nil {
		return s.store.TeamCampaignRank(ctx, teamID, *campaignID)
	}
	return s.store.TeamGlobalRank(ctx, teamID)
}
