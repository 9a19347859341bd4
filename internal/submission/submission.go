package submission

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusNeedsInfo Status = "needs_info"
)

// Valid reports whether s is one of the closed set of submission statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusNeedsInfo:
		return true
	}
	return false
}

// Terminal reports whether no further participant transition is legal.
// Approved is the only terminal state; rejected and needs_info allow
// resubmission.
func (s Status) Terminal() bool {
	return s == StatusApproved
}

// transitions is the full legality table. A submission may only move along
// these edges, regardless of who asks.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected, StatusNeedsInfo},
	StatusRejected:  {StatusSubmitted},
	StatusNeedsInfo: {StatusSubmitted},
	StatusApproved:  {},
}

// CanTransition reports whether moving from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Decision string

const (
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionRequestInfo Decision = "request_info"
)

// StatusFor returns the submission status a review decision produces.
func (d Decision) StatusFor() (Status, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	case DecisionRequestInfo:
		return StatusNeedsInfo, true
	}
	return "", false
}

// CanAttachProof reports whether a proof may still be added. Proofs are
// accepted while drafting, while under review, and when the reviewer asked
// for more information.
func CanAttachProof(s Status) bool {
	return s == StatusDraft || s == StatusSubmitted || s == StatusNeedsInfo
}

// Submission is uniquely keyed by (user, task, campaign).
type Submission struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	TaskID       uuid.UUID  `json:"task_id" db:"task_id"`
	CampaignID   uuid.UUID  `json:"campaign_id" db:"campaign_id"`
	Status       Status     `json:"status" db:"status"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedByID *uuid.UUID `json:"reviewed_by_id,omitempty" db:"reviewed_by_id"`
	Feedback     *string    `json:"feedback,omitempty" db:"feedback"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	Proofs       []*Proof   `json:"proofs,omitempty"`
}

type ProofType string

const (
	ProofImage ProofType = "image"
	ProofURL   ProofType = "url"
	ProofText  ProofType = "text"
	ProofAudio ProofType = "audio"
)

func (p ProofType) Valid() bool {
	switch p {
	case ProofImage, ProofURL, ProofText, ProofAudio:
		return true
	}
	return false
}

type ProofValidationStatus string

const (
	ProofPending  ProofValidationStatus = "pending"
	ProofAccepted ProofValidationStatus = "accepted"
	ProofDeclined ProofValidationStatus = "declined"
)

// Proof is evidence attached to a submission. Its validation status is
// independent of the parent submission's status: several proofs can be
// individually validated before the submission is finalized. Image and audio
// payloads are opaque object-storage URLs.
type Proof struct {
	ID               uuid.UUID             `json:"id" db:"id"`
	SubmissionID     uuid.UUID             `json:"submission_id" db:"submission_id"`
	Type             ProofType             `json:"type" db:"type"`
	Content          string                `json:"content" db:"content"`
	ValidationStatus ProofValidationStatus `json:"validation_status" db:"validation_status"`
	CreatedAt        time.Time             `json:"created_at" db:"created_at"`
}
