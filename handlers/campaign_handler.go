package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"campaignForgeAPI/middleware"
	"campaignForgeAPI/services"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	unlockService   *services.UnlockService
}

func NewCampaignHandler(campaignService *services.CampaignService, unlockService *services.UnlockService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		unlockService:   unlockService,
	}
}

func (h *CampaignHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req services.InstantiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.campaignService.Instantiate(ctx, clerkID, &req)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CampaignHandler) DuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	templateID, err := uuid.Parse(mux.Vars(r)["templateID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	copyTpl, err := h.campaignService.Duplicate(ctx, clerkID, templateID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, copyTpl)
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	campaignID, err := uuid.Parse(mux.Vars(r)["campaignID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	c, err := h.campaignService.GetCampaign(ctx, campaignID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// GetCampaignTasks returns every task with its lock state for the caller.
func (h *CampaignHandler) GetCampaignTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	campaignID, err := uuid.Parse(mux.Vars(r)["campaignID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	states, err := h.unlockService.ResolveAll(ctx, clerkID, campaignID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, states)
}

func (h *CampaignHandler) ListUnlockedTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	campaignID, err := uuid.Parse(mux.Vars(r)["campaignID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	tasks, err := h.unlockService.ListUnlockedTasks(ctx, clerkID, campaignID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

func (h *CampaignHandler) IsUnlocked(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	campaignID, err := uuid.Parse(vars["campaignID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	taskID, err := uuid.Parse(vars["taskID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	result, err := h.unlockService.IsUnlocked(ctx, clerkID, campaignID, taskID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *CampaignHandler) JoinCampaign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	campaignID, err := uuid.Parse(mux.Vars(r)["campaignID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	p, err := h.campaignService.Join(ctx, clerkID, campaignID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

func (h *CampaignHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	campaignID, err := uuid.Parse(mux.Vars(r)["campaignID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	counts, err := h.campaignService.Progress(ctx, clerkID, campaignID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, counts)
}
