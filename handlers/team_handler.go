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

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

type createTeamRequest struct {
	Name       string `json:"name"`
	MaxMembers int    `json:"max_members,omitempty"`
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.teamService.Create(ctx, clerkID, req.Name, req.MaxMembers)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, t)
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	teamID, err := uuid.Parse(mux.Vars(r)["teamID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	t, err := h.teamService.Get(ctx, teamID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

func (h *TeamHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	teamID, err := uuid.Parse(mux.Vars(r)["teamID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	m, err := h.teamService.Join(ctx, clerkID, teamID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, m)
}

func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	teamID, err := uuid.Parse(mux.Vars(r)["teamID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	if err := h.teamService.Leave(ctx, clerkID, teamID); err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Left team"})
}

type transferCaptainRequest struct {
	ToUserID uuid.UUID `json:"to_user_id"`
}

func (h *TeamHandler) TransferCaptain(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	teamID, err := uuid.Parse(mux.Vars(r)["teamID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	var req transferCaptainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.teamService.TransferCaptain(ctx, clerkID, teamID, req.ToUserID); err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Captaincy transferred"})
}

func (h *TeamHandler) JoinCampaign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	teamID, err := uuid.Parse(vars["teamID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid team id")
		return
	}
	campaignID, err := uuid.Parse(vars["campaignID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	p, err := h.teamService.JoinCampaign(ctx, clerkID, teamID, campaignID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}
