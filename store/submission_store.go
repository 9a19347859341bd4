package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/submission"
)

const submissionColumns = `id, user_id, task_id, campaign_id, status, submitted_at, reviewed_at, reviewed_by_id, feedback, created_at, updated_at`

func scanSubmission(row pgx.Row) (*submission.Submission, error) {
	sub := &submission.Submission{}
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.TaskID,
		&sub.CampaignID,
		&sub.Status,
		&sub.SubmittedAt,
		&sub.ReviewedAt,
		&sub.ReviewedByID,
		&sub.Feedback,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	sub, err := scanSubmission(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("submission %s", id)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	proofQuery := `
	SELECT id, submission_id, type, content, validation_status, created_at
	FROM proofs
	WHERE submission_id = $1
	ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, proofQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list proofs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &submission.Proof{}
		err := rows.Scan(&p.ID, &p.SubmissionID, &p.Type, &p.Content, &p.ValidationStatus, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proof: %w", err)
		}
		sub.Proofs = append(sub.Proofs, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proofs: %w", err)
	}

	return sub, nil
}

// UpsertSubmitted creates or resubmits the submission for the natural key
// (user, task, campaign), moving it to submitted. The unique constraint
// collapses concurrent calls onto one row. An approved submission is never
// touched; the caller gets AlreadyCompleted.
func (s *Store) UpsertSubmitted(ctx context.Context, userID, taskID, campaignID uuid.UUID) (*submission.Submission, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	query := `
	INSERT INTO submissions (id, user_id, task_id, campaign_id, status, submitted_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, 'submitted', $5, NOW(), NOW())
	ON CONFLICT (user_id, task_id, campaign_id) DO UPDATE SET
		status = 'submitted',
		submitted_at = EXCLUDED.submitted_at,
		updated_at = NOW()
	WHERE submissions.status IN ('draft', 'rejected', 'needs_info')
	RETURNING ` + submissionColumns

	sub, err := scanSubmission(tx.QueryRow(ctx, query, uuid.New(), userID, taskID, campaignID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conflict row exists but its status blocked the update.
			existing, lookupErr := scanSubmission(tx.QueryRow(ctx,
				`SELECT `+submissionColumns+` FROM submissions WHERE user_id = $1 AND task_id = $2 AND campaign_id = $3`,
				userID, taskID, campaignID))
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to load conflicting submission: %w", lookupErr)
			}
			if existing.Status == submission.StatusApproved {
				return nil, fmt.Errorf("%w: task already approved for this user", apperr.ErrAlreadyCompleted)
			}
			// Already submitted: idempotent resubmit.
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("failed to commit submission: %w", err)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to upsert submission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}

	return sub, nil
}

// InsertProof appends a proof while the submission still accepts one. The
// status check runs in the same transaction as the insert so a concurrent
// approval cannot slip a proof into a finalized submission.
func (s *Store) InsertProof(ctx context.Context, p *submission.Proof) (*submission.Proof, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status submission.Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM submissions WHERE id = $1 FOR UPDATE`, p.SubmissionID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("submission %s", p.SubmissionID)
		}
		return nil, fmt.Errorf("failed to lock submission: %w", err)
	}

	if !submission.CanAttachProof(status) {
		return nil, fmt.Errorf("%w: submission is %s", apperr.ErrSubmissionFinalized, status)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO proofs (id, submission_id, type, content, validation_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING created_at`,
		p.ID, p.SubmissionID, p.Type, p.Content, p.ValidationStatus,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert proof: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit proof: %w", err)
	}

	return p, nil
}

// SetProofValidation updates one proof's own validation status, independent
// of the parent submission.
func (s *Store) SetProofValidation(ctx context.Context, proofID uuid.UUID, status submission.ProofValidationStatus) error {
	result, err := s.db.Exec(ctx,
		`UPDATE proofs SET validation_status = $2 WHERE id = $1`, proofID, status)
	if err != nil {
		return fmt.Errorf("failed to update proof validation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFoundf("proof %s", proofID)
	}
	return nil
}

// FinalizeReview applies a reject or request-info decision. Approvals go
// through ApproveAndCredit instead, since they must credit atomically.
func (s *Store) FinalizeReview(ctx context.Context, submissionID, reviewerID uuid.UUID, to submission.Status, feedback *string) (*submission.Submission, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := lockSubmission(ctx, tx, submissionID)
	if err != nil {
		return nil, err
	}
	if !submission.CanTransition(sub.Status, to) {
		if sub.Status == submission.StatusApproved {
			return nil, fmt.Errorf("%w: submission already approved", apperr.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, sub.Status, to)
	}

	sub, err = scanSubmission(tx.QueryRow(ctx,
		`UPDATE submissions
		 SET status = $2, reviewed_at = NOW(), reviewed_by_id = $3, feedback = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+submissionColumns,
		submissionID, to, reviewerID, feedback))
	if err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	return sub, nil
}

// ApproveAndCredit moves the submission to approved and credits the task's
// point value (summed from its achievement rows) to the participant's
// campaign progress, and to the team progress when the participant's team
// joined the campaign. Everything happens in one transaction: a crash cannot
// record the approval without the credit or the credit without the approval.
// The credit is keyed by the transition itself — a submission that is already
// approved fails the transition check and never reaches the increment.
func (s *Store) ApproveAndCredit(ctx context.Context, submissionID, reviewerID uuid.UUID, feedback *string) (*submission.Submission, int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := lockSubmission(ctx, tx, submissionID)
	if err != nil {
		return nil, 0, err
	}
	if !submission.CanTransition(sub.Status, submission.StatusApproved) {
		if sub.Status == submission.StatusApproved {
			return nil, 0, fmt.Errorf("%w: submission already approved", apperr.ErrAlreadyCompleted)
		}
		return nil, 0, fmt.Errorf("%w: %s -> approved", apperr.ErrInvalidTransition, sub.Status)
	}

	var points int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM achievements WHERE task_id = $1`,
		sub.TaskID,
	).Scan(&points)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to sum task points: %w", err)
	}

	sub, err = scanSubmission(tx.QueryRow(ctx,
		`UPDATE submissions
		 SET status = 'approved', reviewed_at = NOW(), reviewed_by_id = $2, feedback = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+submissionColumns,
		submissionID, reviewerID, feedback))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to approve submission: %w", err)
	}

	// The upsert takes the progress row lock, serializing concurrent credits.
	_, err = tx.Exec(ctx,
		`INSERT INTO campaign_progress (id, user_id, campaign_id, status, total_points, joined_at, updated_at)
		 VALUES ($1, $2, $3, 'in_progress', $4, NOW(), NOW())
		 ON CONFLICT (user_id, campaign_id) DO UPDATE SET
			total_points = campaign_progress.total_points + EXCLUDED.total_points,
			status = 'in_progress',
			updated_at = NOW()`,
		uuid.New(), sub.UserID, sub.CampaignID, points)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to credit campaign progress: %w", err)
	}

	// A user in several enrolled teams always credits the one they joined
	// first; the team_id tiebreak keeps equal timestamps stable.
	var teamID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT tm.team_id
		 FROM team_members tm
		 INNER JOIN team_progress tp ON tp.team_id = tm.team_id AND tp.campaign_id = $2
		 WHERE tm.user_id = $1
		 ORDER BY tm.joined_at ASC, tm.team_id ASC
		 LIMIT 1`,
		sub.UserID, sub.CampaignID,
	).Scan(&teamID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Solo participant, no team credit.
	case err != nil:
		return nil, 0, fmt.Errorf("failed to resolve team membership: %w", err)
	default:
		_, err = tx.Exec(ctx,
			`UPDATE team_progress
			 SET total_points = total_points + $3, total_tasks_completed = total_tasks_completed + 1, status = 'in_progress', updated_at = NOW()
			 WHERE team_id = $1 AND campaign_id = $2`,
			teamID, sub.CampaignID, points)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to credit team progress: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE team_members SET points_contributed = points_contributed + $3 WHERE team_id = $1 AND user_id = $2`,
			teamID, sub.UserID, points)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to update member contribution: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit approval: %w", err)
	}

	return sub, points, nil
}

func lockSubmission(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*submission.Submission, error) {
	sub, err := scanSubmission(tx.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("submission %s", id)
		}
		return nil, fmt.Errorf("failed to lock submission: %w", err)
	}
	return sub, nil
}
