package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/leaderboard"
)

// Every ranking query below shares the same ordering key: total points
// descending, then joined-at ascending, then id ascending. The secondary keys
// make tied point totals reproducible across calls; UserRank and TeamRank
// count predecessors with the identical rule so positions always agree with
// the paginated table. The my-rank queries select FROM the subject's own row,
// so a subject with no progress row gets NotFound, never rank 1.

// windowClause returns the joined-at restriction for a global window. The
// fragments are compile-time constants, never caller input.
func windowClause(window leaderboard.Window) string {
	switch window {
	case leaderboard.WindowWeekly:
		return `AND cp.joined_at >= DATE_TRUNC('week', NOW())`
	case leaderboard.WindowMonthly:
		return `AND cp.joined_at >= DATE_TRUNC('month', NOW())`
	default:
		return ``
	}
}

// GlobalLeaderboard ranks users over the sum of their progress rows, all-time
// or restricted to rows joined inside the window.
func (s *Store) GlobalLeaderboard(ctx context.Context, window leaderboard.Window, limit, offset int) ([]*leaderboard.Entry, int, error) {
	query := fmt.Sprintf(`
	SELECT u.id AS subject_id, u.username, u.image_url,
		COALESCE(SUM(cp.total_points), 0) AS total_points,
		MIN(cp.joined_at) AS joined_at
	FROM users u
	INNER JOIN campaign_progress cp ON cp.user_id = u.id %s
	GROUP BY u.id, u.username, u.image_url
	ORDER BY total_points DESC, joined_at ASC, subject_id ASC
	LIMIT $1 OFFSET $2
	`, windowClause(window))

	countQuery := fmt.Sprintf(`
	SELECT COUNT(DISTINCT cp.user_id)
	FROM campaign_progress cp
	WHERE TRUE %s
	`, windowClause(window))

	return s.rankedEntries(ctx, query, countQuery, []any{limit, offset}, nil)
}

// CampaignLeaderboard ranks the participants of one campaign.
func (s *Store) CampaignLeaderboard(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*leaderboard.Entry, int, error) {
	query := `
	SELECT u.id AS subject_id, u.username, u.image_url, cp.total_points, cp.joined_at
	FROM campaign_progress cp
	INNER JOIN users u ON u.id = cp.user_id
	WHERE cp.campaign_id = $3
	ORDER BY cp.total_points DESC, cp.joined_at ASC, u.id ASC
	LIMIT $1 OFFSET $2
	`

	countQuery := `SELECT COUNT(*) FROM campaign_progress WHERE campaign_id = $1`

	return s.rankedEntries(ctx, query, countQuery, []any{limit, offset, campaignID}, []any{campaignID})
}

// TeamLeaderboard ranks teams, either across all campaigns or within one.
func (s *Store) TeamLeaderboard(ctx context.Context, campaignID *uuid.UUID, limit, offset int) ([]*leaderboard.Entry, int, error) {
	if campaignID != nil {
		query := `
		SELECT t.id AS subject_id, t.name, NULL::TEXT AS image_url, tp.total_points, tp.joined_at
		FROM team_progress tp
		INNER JOIN teams t ON t.id = tp.team_id
		WHERE tp.campaign_id = $3
		ORDER BY tp.total_points DESC, tp.joined_at ASC, t.id ASC
		LIMIT $1 OFFSET $2
		`
		countQuery := `SELECT COUNT(*) FROM team_progress WHERE campaign_id = $1`
		return s.rankedEntries(ctx, query, countQuery, []any{limit, offset, *campaignID}, []any{*campaignID})
	}

	query := `
	SELECT t.id AS subject_id, t.name, NULL::TEXT AS image_url,
		COALESCE(SUM(tp.total_points), 0) AS total_points,
		MIN(tp.joined_at) AS joined_at
	FROM teams t
	INNER JOIN team_progress tp ON tp.team_id = t.id
	GROUP BY t.id, t.name
	ORDER BY total_points DESC, joined_at ASC, subject_id ASC
	LIMIT $1 OFFSET $2
	`
	countQuery := `SELECT COUNT(DISTINCT team_id) FROM team_progress`
	return s.rankedEntries(ctx, query, countQuery, []any{limit, offset}, nil)
}

func (s *Store) rankedEntries(ctx context.Context, query, countQuery string, args, countArgs []any) ([]*leaderboard.Entry, int, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.Entry
	for rows.Next() {
		entry := &leaderboard.Entry{}
		err := rows.Scan(
			&entry.SubjectID,
			&entry.Name,
			&entry.ImageURL,
			&entry.TotalPoints,
			&entry.JoinedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	var total int
	if err := s.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leaderboard rows: %w", err)
	}

	return entries, total, nil
}

// UserCampaignRank answers the user's position in one campaign: predecessors
// under the shared ordering key, plus one.
func (s *Store) UserCampaignRank(ctx context.Context, userID, campaignID uuid.UUID) (int, error) {
	query := `
	SELECT COUNT(other.user_id) + 1
	FROM campaign_progress mine
	LEFT JOIN campaign_progress other
		ON other.campaign_id = mine.campaign_id
		AND other.user_id != mine.user_id
		AND (other.total_points > mine.total_points
			OR (other.total_points = mine.total_points AND other.joined_at < mine.joined_at)
			OR (other.total_points = mine.total_points AND other.joined_at = mine.joined_at AND other.user_id < mine.user_id))
	WHERE mine.user_id = $1 AND mine.campaign_id = $2
	GROUP BY mine.user_id
	`

	var rank int
	if err := s.db.QueryRow(ctx, query, userID, campaignID).Scan(&rank); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFoundf("user %s has no progress in campaign %s", userID, campaignID)
		}
		return 0, fmt.Errorf("failed to compute user rank: %w", err)
	}
	return rank, nil
}

// UserGlobalRank answers the user's position over the aggregated scope.
func (s *Store) UserGlobalRank(ctx context.Context, userID uuid.UUID, window leaderboard.Window) (int, error) {
	query := fmt.Sprintf(`
	WITH totals AS (
		SELECT cp.user_id, SUM(cp.total_points) AS pts, MIN(cp.joined_at) AS joined_at
		FROM campaign_progress cp
		WHERE TRUE %s
		GROUP BY cp.user_id
	)
	SELECT COUNT(other.user_id) + 1
	FROM totals mine
	LEFT JOIN totals other
		ON other.user_id != mine.user_id
		AND (other.pts > mine.pts
			OR (other.pts = mine.pts AND other.joined_at < mine.joined_at)
			OR (other.pts = mine.pts AND other.joined_at = mine.joined_at AND other.user_id < mine.user_id))
	WHERE mine.user_id = $1
	GROUP BY mine.user_id
	`, windowClause(window))

	var rank int
	if err := s.db.QueryRow(ctx, query, userID).Scan(&rank); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFoundf("user %s has no progress in any campaign", userID)
		}
		return 0, fmt.Errorf("failed to compute global rank: %w", err)
	}
	return rank, nil
}

// TeamCampaignRank answers a team's position inside one campaign.
func (s *Store) TeamCampaignRank(ctx context.Context, teamID, campaignID uuid.UUID) (int, error) {
	query := `
	SELECT COUNT(other.team_id) + 1
	FROM team_progress mine
	LEFT JOIN team_progress other
		ON other.campaign_id = mine.campaign_id
		AND other.team_id != mine.team_id
		AND (other.total_points > mine.total_points
			OR (other.total_points = mine.total_points AND other.joined_at < mine.joined_at)
			OR (other.total_points = mine.total_points AND other.joined_at = mine.joined_at AND other.team_id < mine.team_id))
	WHERE mine.team_id = $1 AND mine.campaign_id = $2
	GROUP BY mine.team_id
	`

	var rank int
	if err := s.db.QueryRow(ctx, query, teamID, campaignID).Scan(&rank); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFoundf("team %s has no progress in campaign %s", teamID, campaignID)
		}
		return 0, fmt.Errorf("failed to compute team rank: %w", err)
	}
	return rank, nil
}

// TeamGlobalRank answers a team's position over all campaigns.
func (s *Store) TeamGlobalRank(ctx context.Context, teamID uuid.UUID) (int, error) {
	query := `
	WITH totals AS (
		SELECT team_id, SUM(total_points) AS pts, MIN(joined_at) AS joined_at
		FROM team_progress
		GROUP BY team_id
	)
	SELECT COUNT(other.team_id) + 1
	FROM totals mine
	LEFT JOIN totals other
		ON other.team_id != mine.team_id
		AND (other.pts > mine.pts
			OR (other.pts = mine.pts AND other.joined_at < mine.joined_at)
			OR (other.pts = mine.pts AND other.joined_at = mine.joined_at AND other.team_id < mine.team_id))
	WHERE mine.team_id = $1
	GROUP BY mine.team_id
	`

	var rank int
	if err := s.db.QueryRow(ctx, query, teamID).Scan(&rank); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFoundf("team %s has no progress in any campaign", teamID)
		}
		return 0, fmt.Errorf("failed to compute team rank: %w", err)
	}
	return rank, nil
}
