package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/campaign"
	"campaignForgeAPI/internal/submission"
	"campaignForgeAPI/internal/unlock"
	"campaignForgeAPI/internal/user"
)

// SubmissionStore is the slice of the persistence port the state machine
// writes through.
type SubmissionStore interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	GetCampaignTask(ctx context.Context, campaignID, taskID uuid.UUID) (*campaign.Task, error)
	ApprovedTaskIDs(ctx context.Context, userID, campaignID uuid.UUID) (map[uuid.UUID]bool, error)
	UpsertSubmitted(ctx context.Context, userID, taskID, campaignID uuid.UUID) (*submission.Submission, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*submission.Submission, error)
	InsertProof(ctx context.Context, p *submission.Proof) (*submission.Proof, error)
	SetProofValidation(ctx context.Context, proofID uuid.UUID, status submission.ProofValidationStatus) error
	FinalizeReview(ctx context.Context, submissionID, reviewerID uuid.UUID, to submission.Status, feedback *string) (*submission.Submission, error)
	ApproveAndCredit(ctx context.Context, submissionID, reviewerID uuid.UUID, feedback *string) (*submission.Submission, int, error)
}

type SubmissionService struct {
	store SubmissionStore
}

func NewSubmissionService(store SubmissionStore) *SubmissionService {
	return &SubmissionService{store: store}
}

// CreateOrResubmit upserts the participant's submission for (user, task,
// campaign) into submitted. The task must be unlocked; an already-approved
// submission is never reopened.
func (s *SubmissionService) CreateOrResubmit(ctx context.Context, clerkID string, campaignID, taskID uuid.UUID) (*submission.Submission, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetCampaignTask(ctx, campaignID, taskID)
	if err != nil {
		return nil, err
	}

	approved, err := s.store.ApprovedTaskIDs(ctx, u.ID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved tasks: %w", err)
	}

	if res := unlock.Evaluate(task.DependencyType, task.Dependencies, approved); !res.Unlocked {
		return nil, fmt.Errorf("%w: missing %s", apperr.ErrTaskLocked, strings.Join(res.Missing, ", "))
	}

	sub, err := s.store.UpsertSubmitted(ctx, u.ID, taskID, campaignID)
	if err != nil {
		return nil, err
	}

	log.Printf("CreateOrResubmit: user %s submitted task %s in campaign %s", u.ID, taskID, campaignID)
	return sub, nil
}

// ProofInput is the request shape for attaching evidence.
type ProofInput struct {
	Type    submission.ProofType `json:"type"`
	Content string               `json:"content"`
}

// AttachProof appends a proof to the caller's own submission while it still
// accepts one.
func (s *SubmissionService) AttachProof(ctx context.Context, clerkID string, submissionID uuid.UUID, in ProofInput) (*submission.Proof, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown proof type %q", apperr.ErrInvalidTransition, in.Type)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("%w: proof content is empty", apperr.ErrInvalidTransition)
	}

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != u.ID {
		return nil, fmt.Errorf("%w: submission belongs to another user", apperr.ErrForbidden)
	}

	proof := &submission.Proof{
		ID:               uuid.New(),
		SubmissionID:     submissionID,
		Type:             in.Type,
		Content:          in.Content,
		ValidationStatus: submission.ProofPending,
	}
	return s.store.InsertProof(ctx, proof)
}

// ValidateProof sets one proof's own validation status. Proofs are validated
// individually while the parent submission is still under review; the parent
// status only moves through Review.
func (s *SubmissionService) ValidateProof(ctx context.Context, clerkID string, proofID uuid.UUID, status submission.ProofValidationStatus) error {
	reviewer, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}
	if !reviewer.Role.CanReview() {
		return fmt.Errorf("%w: validating proofs requires the admin role", apperr.ErrForbidden)
	}
	if status != submission.ProofAccepted && status != submission.ProofDeclined {
		return fmt.Errorf("%w: unknown validation status %q", apperr.ErrInvalidTransition, status)
	}
	return s.store.SetProofValidation(ctx, proofID, status)
}

// ReviewOutcome reports what a single review did.
type ReviewOutcome struct {
	Submission    *submission.Submission `json:"submission"`
	PointsAwarded int                    `json:"points_awarded"`
}

// Review applies one decision. Only admins may review. An approval credits
// the task's points in the same transaction as the status write.
func (s *SubmissionService) Review(ctx context.Context, clerkID string, submissionID uuid.UUID, decision submission.Decision, feedback *string) (*ReviewOutcome, error) {
	reviewer, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if !reviewer.Role.CanReview() {
		return nil, fmt.Errorf("%w: reviewing requires the admin role", apperr.ErrForbidden)
	}

	to, ok := decision.StatusFor()
	if !ok {
		return nil, fmt.Errorf("%w: unknown decision %q", apperr.ErrInvalidTransition, decision)
	}

	if to == submission.StatusApproved {
		sub, points, err := s.store.ApproveAndCredit(ctx, submissionID, reviewer.ID, feedback)
		if err != nil {
			return nil, err
		}
		log.Printf("Review: %s approved submission %s (+%d points)", reviewer.ID, submissionID, points)
		return &ReviewOutcome{Submission: sub, PointsAwarded: points}, nil
	}

	sub, err := s.store.FinalizeReview(ctx, submissionID, reviewer.ID, to, feedback)
	if err != nil {
		return nil, err
	}
	log.Printf("Review: %s moved submission %s to %s", reviewer.ID, submissionID, to)
	return &ReviewOutcome{Submission: sub}, nil
}

// BulkReviewItem is one entry of a batch review request.
type BulkReviewItem struct {
	SubmissionID uuid.UUID           `json:"submission_id"`
	Decision     submission.Decision `json:"decision"`
	Feedback     *string             `json:"feedback,omitempty"`
}

// BulkReviewResult is the per-item outcome of a batch review.
type BulkReviewResult struct {
	SubmissionID  uuid.UUID `json:"submission_id"`
	OK            bool      `json:"ok"`
	PointsAwarded int       `json:"points_awarded,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// BulkReview applies the single-submission rule independently per item. One
// failed item never rolls back the others.
func (s *SubmissionService) BulkReview(ctx context.Context, clerkID string, items []BulkReviewItem) ([]BulkReviewResult, error) {
	reviewer, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if !reviewer.Role.CanReview() {
		return nil, fmt.Errorf("%w: reviewing requires the admin role", apperr.ErrForbidden)
	}

	results := make([]BulkReviewResult, 0, len(items))
	for _, item := range items {
		outcome, err := s.Review(ctx, clerkID, item.SubmissionID, item.Decision, item.Feedback)
		if err != nil {
			results = append(results, BulkReviewResult{SubmissionID: item.SubmissionID, Error: err.Error()})
			continue
		}
		results = append(results, BulkReviewResult{
			SubmissionID:  item.SubmissionID,
			OK:            true,
			PointsAwarded: outcome.PointsAwarded,
		})
	}
	return results, nil
}

// GetSubmission returns a submission with its proofs. Participants only see
// their own; admins see all.
func (s *SubmissionService) GetSubmission(ctx context.Context, clerkID string, submissionID uuid.UUID) (*submission.Submission, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != u.ID && !u.Role.CanReview() {
		return nil, fmt.Errorf("%w: submission belongs to another user", apperr.ErrForbidden)
	}
	return sub, nil
}
