package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/progress"
)

// JoinCampaign creates the participant's joined progress row. The campaign
// must be active and not full; both checks run inside the transaction.
func (s *Store) JoinCampaign(ctx context.Context, userID, campaignID uuid.UUID) (*progress.CampaignProgress, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var isActive bool
	var maxParticipants *int
	err = tx.QueryRow(ctx,
		`SELECT is_active, max_participants FROM campaigns WHERE id = $1 FOR UPDATE`, campaignID,
	).Scan(&isActive, &maxParticipants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("campaign %s", campaignID)
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if !isActive {
		return nil, apperr.Conflictf("campaign %s is not active", campaignID)
	}

	if maxParticipants != nil {
		var count int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM campaign_progress WHERE campaign_id = $1`, campaignID,
		).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("failed to count participants: %w", err)
		}
		if count >= *maxParticipants {
			return nil, apperr.Conflictf("campaign %s is full", campaignID)
		}
	}

	p := &progress.CampaignProgress{
		ID:         uuid.New(),
		UserID:     userID,
		CampaignID: campaignID,
		Status:     progress.StatusJoined,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO campaign_progress (id, user_id, campaign_id, status, total_points, joined_at, updated_at)
		 VALUES ($1, $2, $3, 'joined', 0, NOW(), NOW())
		 RETURNING joined_at, updated_at`,
		p.ID, p.UserID, p.CampaignID,
	).Scan(&p.JoinedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflictf("user already joined campaign %s", campaignID)
		}
		return nil, fmt.Errorf("failed to join campaign: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}

	return p, nil
}

func (s *Store) GetProgress(ctx context.Context, userID, campaignID uuid.UUID) (*progress.CampaignProgress, error) {
	query := `
	SELECT id, user_id, campaign_id, status, total_points, joined_at, updated_at
	FROM campaign_progress
	WHERE user_id = $1 AND campaign_id = $2
	`

	p := &progress.CampaignProgress{}
	err := s.db.QueryRow(ctx, query, userID, campaignID).Scan(
		&p.ID,
		&p.UserID,
		&p.CampaignID,
		&p.Status,
		&p.TotalPoints,
		&p.JoinedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("progress for user %s in campaign %s", userID, campaignID)
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	return p, nil
}

// ProgressCounts exposes what callers need to derive COMPLETED: approved
// submissions vs total tasks, plus the accumulated points.
func (s *Store) ProgressCounts(ctx context.Context, userID, campaignID uuid.UUID) (*progress.Counts, error) {
	query := `
	SELECT
		(SELECT COUNT(*) FROM submissions WHERE user_id = $1 AND campaign_id = $2 AND status = 'approved'),
		(SELECT COUNT(*) FROM campaign_tasks WHERE campaign_id = $2),
		COALESCE((SELECT total_points FROM campaign_progress WHERE user_id = $1 AND campaign_id = $2), 0)
	`

	c := &progress.Counts{}
	err := s.db.QueryRow(ctx, query, userID, campaignID).Scan(&c.CompletedTasks, &c.TotalTasks, &c.TotalPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("progress for user %s in campaign %s", userID, campaignID)
		}
		return nil, fmt.Errorf("failed to get progress counts: %w", err)
	}

	return c, nil
}

// MarkCompleted flips a progress row to completed. Callers derive the
// condition (completedTasks == totalTasks) from ProgressCounts.
func (s *Store) MarkCompleted(ctx context.Context, userID, campaignID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`UPDATE campaign_progress SET status = 'completed', updated_at = NOW() WHERE user_id = $1 AND campaign_id = $2`,
		userID, campaignID)
	if err != nil {
		return fmt.Errorf("failed to mark progress completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFoundf("progress for user %s in campaign %s", userID, campaignID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
