package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"campaignForgeAPI/internal/leaderboard"
	"campaignForgeAPI/middleware"
	"campaignForgeAPI/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

// rankQueryFromRequest reads scope, window, campaign, page, and limit from
// query parameters. Unset values fall back to the service defaults.
func rankQueryFromRequest(r *http.Request) (services.RankQuery, error) {
	q := services.RankQuery{
		Scope:  leaderboard.Scope(r.URL.Query().Get("scope")),
		Window: leaderboard.Window(r.URL.Query().Get("window")),
	}
	if q.Scope == "" {
		q.Scope = leaderboard.ScopeGlobal
	}

	if raw := r.URL.Query().Get("campaign_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, err
		}
		q.CampaignID = &id
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		q.Page, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		q.Limit, _ = strconv.Atoi(raw)
	}
	return q, nil
}

func (h *LeaderboardHandler) Rank(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := rankQueryFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	page, err := h.leaderboardService.Rank(ctx, q)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *LeaderboardHandler) TopPerformers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := rankQueryFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	n := 3
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries, err := h.leaderboardService.TopPerformers(ctx, q, n)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) UserRank(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	q, err := rankQueryFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}

	rank, err := h.leaderboardService.UserRank(ctx, clerkID, q)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"rank": rank})
}

func (h *LeaderboardHandler) TeamRank(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	teamID, err := uuid.Parse(mux.Vars(r)["teamID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid team id")
		return
	}

	var campaignID *uuid.UUID
	if raw := r.URL.Query().Get("campaign_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
			return
		}
		campaignID = &id
	}

	rank, err := h.leaderboardService.TeamRank(ctx, teamID, campaignID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"rank": rank})
}
