package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/progress"
	"campaignForgeAPI/internal/team"
)

// CreateTeam writes the team and its captain membership in one transaction.
func (s *Store) CreateTeam(ctx context.Context, t *team.Team) (*team.Team, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO teams (id, name, captain_id, max_members, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING created_at`,
		t.ID, t.Name, t.CaptainID, t.MaxMembers,
	).Scan(&t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert team: %w", err)
	}

	captain := &team.Member{
		ID:     uuid.New(),
		TeamID: t.ID,
		UserID: t.CaptainID,
		Role:   team.RoleCaptain,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO team_members (id, team_id, user_id, role, points_contributed, joined_at)
		 VALUES ($1, $2, $3, $4, 0, NOW())
		 RETURNING joined_at`,
		captain.ID, captain.TeamID, captain.UserID, captain.Role,
	).Scan(&captain.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert captain membership: %w", err)
	}
	t.Members = append(t.Members, captain)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit team: %w", err)
	}

	return t, nil
}

func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (*team.Team, error) {
	query := `
	SELECT id, name, captain_id, max_members, created_at
	FROM teams
	WHERE id = $1
	`

	t := &team.Team{}
	err := s.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.CaptainID, &t.MaxMembers, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("team %s", id)
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	memberQuery := `
	SELECT id, team_id, user_id, role, points_contributed, joined_at
	FROM team_members
	WHERE team_id = $1
	ORDER BY joined_at
	`
	rows, err := s.db.Query(ctx, memberQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := &team.Member{}
		err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.PointsContributed, &m.JoinedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		t.Members = append(t.Members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team members: %w", err)
	}

	return t, nil
}

// AddMember enforces the member cap and the one-row-per-user constraint under
// the team row lock.
func (s *Store) AddMember(ctx context.Context, teamID, userID uuid.UUID) (*team.Member, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxMembers int
	err = tx.QueryRow(ctx, `SELECT max_members FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&maxMembers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("team %s", teamID)
		}
		return nil, fmt.Errorf("failed to lock team: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM team_members WHERE team_id = $1`, teamID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if count >= maxMembers {
		return nil, apperr.Conflictf("team %s is full (%d members)", teamID, maxMembers)
	}

	m := &team.Member{
		ID:     uuid.New(),
		TeamID: teamID,
		UserID: userID,
		Role:   team.RoleMember,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO team_members (id, team_id, user_id, role, points_contributed, joined_at)
		 VALUES ($1, $2, $3, 'member', 0, NOW())
		 RETURNING joined_at`,
		m.ID, m.TeamID, m.UserID,
	).Scan(&m.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflictf("user already a member of team %s", teamID)
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit membership: %w", err)
	}

	return m, nil
}

func (s *Store) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2 AND role != 'captain'`,
		teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either not a member, or the captain trying to leave.
		var isCaptain bool
		err := s.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 AND role = 'captain')`,
			teamID, userID,
		).Scan(&isCaptain)
		if err != nil {
			return fmt.Errorf("failed to check captain: %w", err)
		}
		if isCaptain {
			return apperr.Conflictf("captain must transfer captaincy before leaving")
		}
		return apperr.NotFoundf("membership of user %s in team %s", userID, teamID)
	}
	return nil
}

// TransferCaptain swaps the captain role between two members and updates the
// team row, all in one transaction.
func (s *Store) TransferCaptain(ctx context.Context, teamID, fromUserID, toUserID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var captainID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT captain_id FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&captainID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("team %s", teamID)
		}
		return fmt.Errorf("failed to lock team: %w", err)
	}
	if captainID != fromUserID {
		return fmt.Errorf("%w: only the captain can transfer captaincy", apperr.ErrForbidden)
	}

	result, err := tx.Exec(ctx,
		`UPDATE team_members SET role = 'captain' WHERE team_id = $1 AND user_id = $2`,
		teamID, toUserID)
	if err != nil {
		return fmt.Errorf("failed to promote member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFoundf("membership of user %s in team %s", toUserID, teamID)
	}

	_, err = tx.Exec(ctx,
		`UPDATE team_members SET role = 'member' WHERE team_id = $1 AND user_id = $2`,
		teamID, fromUserID)
	if err != nil {
		return fmt.Errorf("failed to demote captain: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE teams SET captain_id = $2 WHERE id = $1`, teamID, toUserID)
	if err != nil {
		return fmt.Errorf("failed to update team captain: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit captain transfer: %w", err)
	}

	return nil
}

// TeamJoinCampaign creates the team's joined progress row for a campaign.
func (s *Store) TeamJoinCampaign(ctx context.Context, teamID, campaignID uuid.UUID) (*progress.TeamProgress, error) {
	p := &progress.TeamProgress{
		ID:         uuid.New(),
		TeamID:     teamID,
		CampaignID: campaignID,
		Status:     progress.StatusJoined,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO team_progress (id, team_id, campaign_id, status, total_points, total_tasks_completed, joined_at, updated_at)
		 VALUES ($1, $2, $3, 'joined', 0, 0, NOW(), NOW())
		 RETURNING joined_at, updated_at`,
		p.ID, p.TeamID, p.CampaignID,
	).Scan(&p.JoinedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflictf("team already joined campaign %s", campaignID)
		}
		return nil, fmt.Errorf("failed to join campaign: %w", err)
	}
	return p, nil
}
