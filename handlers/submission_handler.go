package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"campaignForgeAPI/internal/submission"
	"campaignForgeAPI/middleware"
	"campaignForgeAPI/services"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
}

func NewSubmissionHandler(submissionService *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
	}
}

type createSubmissionRequest struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	TaskID     uuid.UUID `json:"task_id"`
}

func (h *SubmissionHandler) CreateOrResubmit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.submissionService.CreateOrResubmit(ctx, clerkID, req.CampaignID, req.TaskID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	middleware.RecordSubmissionCreated()
	respondWithJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	submissionID, err := uuid.Parse(mux.Vars(r)["submissionID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	sub, err := h.submissionService.GetSubmission(ctx, clerkID, submissionID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) AttachProof(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	submissionID, err := uuid.Parse(mux.Vars(r)["submissionID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	var req services.ProofInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	proof, err := h.submissionService.AttachProof(ctx, clerkID, submissionID, req)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, proof)
}

type validateProofRequest struct {
	Status submission.ProofValidationStatus `json:"status"`
}

func (h *SubmissionHandler) ValidateProof(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	proofID, err := uuid.Parse(mux.Vars(r)["proofID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid proof id")
		return
	}

	var req validateProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.submissionService.ValidateProof(ctx, clerkID, proofID, req.Status); err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

type reviewRequest struct {
	Decision submission.Decision `json:"decision"`
	Feedback *string             `json:"feedback,omitempty"`
}

func (h *SubmissionHandler) Review(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	submissionID, err := uuid.Parse(mux.Vars(r)["submissionID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := h.submissionService.Review(ctx, clerkID, submissionID, req.Decision, req.Feedback)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	// Count every approval, zero-point tasks included.
	if req.Decision == submission.DecisionApprove {
		middleware.RecordApprovalCredited(outcome.PointsAwarded)
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

func (h *SubmissionHandler) BulkReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var items []services.BulkReviewItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, err := h.submissionService.BulkReview(ctx, clerkID, items)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	// Results line up with items one to one, failed ones included.
	for i, res := range results {
		if res.OK && items[i].Decision == submission.DecisionApprove {
			middleware.RecordApprovalCredited(res.PointsAwarded)
		}
	}
	respondWithJSON(w, http.StatusOK, results)
}
