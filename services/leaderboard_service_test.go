package services

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/leaderboard"
	"campaignForgeAPI/internal/progress"
	"campaignForgeAPI/internal/user"
)

// fakeLeaderboardStore serves pre-ranked entries, ordering them with the same
// key the SQL queries use: points descending, joined-at ascending, id
// ascending.
type fakeLeaderboardStore struct {
	users    map[string]*user.User
	progress map[uuid.UUID]map[uuid.UUID]*progress.CampaignProgress // userID -> campaignID
	entries  []*leaderboard.Entry
}

func newFakeLeaderboardStore() *fakeLeaderboardStore {
	return &fakeLeaderboardStore{
		users:    map[string]*user.User{},
		progress: map[uuid.UUID]map[uuid.UUID]*progress.CampaignProgress{},
	}
}

func (f *fakeLeaderboardStore) ordered() []*leaderboard.Entry {
	out := make([]*leaderboard.Entry, len(f.entries))
	copy(out, f.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return bytes.Compare(out[i].SubjectID[:], out[j].SubjectID[:]) < 0
	})
	return out
}

func (f *fakeLeaderboardStore) page(limit, offset int) ([]*leaderboard.Entry, int, error) {
	all := f.ordered()
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (f *fakeLeaderboardStore) GetUserByClerkID(_ context.Context, clerkID string) (*user.User, error) {
	u, ok := f.users[clerkID]
	if !ok {
		return nil, apperr.NotFoundf("user %s", clerkID)
	}
	return u, nil
}

func (f *fakeLeaderboardStore) GetProgress(_ context.Context, userID, campaignID uuid.UUID) (*progress.CampaignProgress, error) {
	p, ok := f.progress[userID][campaignID]
	if !ok {
		return nil, apperr.NotFoundf("no progress for user %s in campaign %s", userID, campaignID)
	}
	return p, nil
}

func (f *fakeLeaderboardStore) GlobalLeaderboard(_ context.Context, _ leaderboard.Window, limit, offset int) ([]*leaderboard.Entry, int, error) {
	return f.page(limit, offset)
}

func (f *fakeLeaderboardStore) CampaignLeaderboard(_ context.Context, _ uuid.UUID, limit, offset int) ([]*leaderboard.Entry, int, error) {
	return f.page(limit, offset)
}

func (f *fakeLeaderboardStore) TeamLeaderboard(_ context.Context, _ *uuid.UUID, limit, offset int) ([]*leaderboard.Entry, int, error) {
	return f.page(limit, offset)
}

// rankOf mirrors the store's my-rank queries: a subject with no progress row
// is NotFound, never silently rank 1.
func (f *fakeLeaderboardStore) rankOf(subjectID uuid.UUID) (int, error) {
	for i, e := range f.ordered() {
		if e.SubjectID == subjectID {
			return i + 1, nil
		}
	}
	return 0, apperr.NotFoundf("subject %s has no progress", subjectID)
}

func (f *fakeLeaderboardStore) UserGlobalRank(_ context.Context, userID uuid.UUID, _ leaderboard.Window) (int, error) {
	return f.rankOf(userID)
}

func (f *fakeLeaderboardStore) UserCampaignRank(_ context.Context, userID, _ uuid.UUID) (int, error) {
	return f.rankOf(userID)
}

func (f *fakeLeaderboardStore) TeamGlobalRank(_ context.Context, teamID uuid.UUID) (int, error) {
	return f.rankOf(teamID)
}

func (f *fakeLeaderboardStore) TeamCampaignRank(_ context.Context, teamID, _ uuid.UUID) (int, error) {
	return f.rankOf(teamID)
}

func entryAt(points int, joined time.Time) *leaderboard.Entry {
	return &leaderboard.Entry{SubjectID: uuid.New(), TotalPoints: points, JoinedAt: joined}
}

func TestRankPagination(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.entries = append(store.entries, entryAt(100-i*10, base))
	}

	page, err := svc.Rank(context.Background(), RankQuery{Scope: leaderboard.ScopeGlobal, Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if page.Total != 5 || page.Pages != 3 || page.Page != 2 {
		t.Fatalf("page meta = total %d pages %d page %d, want 5/3/2", page.Total, page.Pages, page.Page)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(page.Entries))
	}
	// Ranks continue across pages: page 2 of size 2 holds positions 3 and 4.
	if page.Entries[0].Rank != 3 || page.Entries[1].Rank != 4 {
		t.Errorf("ranks = %d, %d, want 3, 4", page.Entries[0].Rank, page.Entries[1].Rank)
	}
	if page.Entries[0].TotalPoints != 80 || page.Entries[1].TotalPoints != 70 {
		t.Errorf("points = %d, %d, want 80, 70", page.Entries[0].TotalPoints, page.Entries[1].TotalPoints)
	}
}

func TestRankTieBreakIsDeterministic(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	early := entryAt(50, base)
	late := entryAt(50, base.Add(time.Hour))
	top := entryAt(90, base.Add(2*time.Hour))
	store.entries = []*leaderboard.Entry{late, top, early}

	q := RankQuery{Scope: leaderboard.ScopeGlobal}
	first, err := svc.Rank(context.Background(), q)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	want := []uuid.UUID{top.SubjectID, early.SubjectID, late.SubjectID}
	for i, e := range first.Entries {
		if e.SubjectID != want[i] {
			t.Fatalf("position %d = %s, want %s", i+1, e.SubjectID, want[i])
		}
		if e.Rank != i+1 {
			t.Errorf("rank at %d = %d, ties must not collapse", i, e.Rank)
		}
	}

	// Same query, same order.
	second, err := svc.Rank(context.Background(), q)
	if err != nil {
		t.Fatalf("Rank again: %v", err)
	}
	for i := range first.Entries {
		if first.Entries[i].SubjectID != second.Entries[i].SubjectID {
			t.Fatal("repeated query returned a different ordering")
		}
	}
}

func TestRankQueryNormalization(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	ctx := context.Background()

	if _, err := svc.Rank(ctx, RankQuery{Scope: "galaxy"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("unknown scope: err = %v, want ErrConflict", err)
	}
	if _, err := svc.Rank(ctx, RankQuery{Scope: leaderboard.ScopeGlobal, Window: "hourly"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("unknown window: err = %v, want ErrConflict", err)
	}
	if _, err := svc.Rank(ctx, RankQuery{Scope: leaderboard.ScopeCampaign}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("campaign scope without id: err = %v, want ErrConflict", err)
	}

	// Empty board still returns a well-formed page.
	page, err := svc.Rank(ctx, RankQuery{Scope: leaderboard.ScopeGlobal, Page: -3, Limit: 500})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if page.Entries == nil || len(page.Entries) != 0 {
		t.Errorf("Entries = %v, want empty non-nil slice", page.Entries)
	}
	if page.Page != 1 || page.Pages != 0 || page.Total != 0 {
		t.Errorf("page meta = %d/%d/%d, want 1/0/0", page.Page, page.Pages, page.Total)
	}
}

func TestTopPerformersMatchesRank(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		store.entries = append(store.entries, entryAt(10*i, base))
	}

	top, err := svc.TopPerformers(context.Background(), RankQuery{Scope: leaderboard.ScopeGlobal}, 3)
	if err != nil {
		t.Fatalf("TopPerformers: %v", err)
	}
	full, err := svc.Rank(context.Background(), RankQuery{Scope: leaderboard.ScopeGlobal})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if len(top) != 3 {
		t.Fatalf("top = %d entries, want 3", len(top))
	}
	for i := range top {
		if top[i].SubjectID != full.Entries[i].SubjectID {
			t.Errorf("podium position %d disagrees with the full table", i+1)
		}
	}
}

func TestUserRankRequiresProgressRow(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	u := &user.User{ID: uuid.New(), ClerkID: "clerk_p"}
	store.users["clerk_p"] = u
	campaignID := uuid.New()

	_, err := svc.UserRank(context.Background(), "clerk_p", RankQuery{
		Scope:      leaderboard.ScopeCampaign,
		CampaignID: &campaignID,
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for a user who never joined", err)
	}

	store.progress[u.ID] = map[uuid.UUID]*progress.CampaignProgress{
		campaignID: {UserID: u.ID, CampaignID: campaignID, Status: progress.StatusJoined},
	}
	store.entries = []*leaderboard.Entry{{SubjectID: u.ID, TotalPoints: 0}}

	rank, err := svc.UserRank(context.Background(), "clerk_p", RankQuery{
		Scope:      leaderboard.ScopeCampaign,
		CampaignID: &campaignID,
	})
	if err != nil {
		t.Fatalf("UserRank: %v", err)
	}
	if rank != 1 {
		t.Errorf("rank = %d, want 1", rank)
	}
}

func TestUserRankGlobalRequiresProgressRow(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	u := &user.User{ID: uuid.New(), ClerkID: "clerk_p"}
	store.users["clerk_p"] = u

	// A ranked board exists, but this user never earned a row on it.
	store.entries = []*leaderboard.Entry{
		{SubjectID: uuid.New(), TotalPoints: 40},
		{SubjectID: uuid.New(), TotalPoints: 10},
	}

	_, err := svc.UserRank(context.Background(), "clerk_p", RankQuery{Scope: leaderboard.ScopeGlobal})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound, not a phantom rank", err)
	}

	store.entries = append(store.entries, &leaderboard.Entry{SubjectID: u.ID, TotalPoints: 20})
	rank, err := svc.UserRank(context.Background(), "clerk_p", RankQuery{Scope: leaderboard.ScopeGlobal})
	if err != nil {
		t.Fatalf("UserRank: %v", err)
	}
	if rank != 2 {
		t.Errorf("rank = %d, want 2", rank)
	}
}

func TestTeamRankRequiresProgressRow(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	teamID := uuid.New()
	campaignID := uuid.New()
	store.entries = []*leaderboard.Entry{{SubjectID: uuid.New(), TotalPoints: 30}}

	if _, err := svc.TeamRank(context.Background(), teamID, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("global: err = %v, want ErrNotFound for a team with no progress", err)
	}
	if _, err := svc.TeamRank(context.Background(), teamID, &campaignID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("campaign: err = %v, want ErrNotFound for a team with no progress", err)
	}

	store.entries = append(store.entries, &leaderboard.Entry{SubjectID: teamID, TotalPoints: 70})
	rank, err := svc.TeamRank(context.Background(), teamID, &campaignID)
	if err != nil {
		t.Fatalf("TeamRank: %v", err)
	}
	if rank != 1 {
		t.Errorf("rank = %d, want 1", rank)
	}
}

func TestUserRankScopeRestrictions(t *testing.T) {
	store := newFakeLeaderboardStore()
	svc := NewLeaderboardService(store)
	store.users["clerk_p"] = &user.User{ID: uuid.New(), ClerkID: "clerk_p"}

	_, err := svc.UserRank(context.Background(), "clerk_p", RankQuery{Scope: leaderboard.ScopeTeam})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("team scope: err = %v, want ErrConflict", err)
	}
}
