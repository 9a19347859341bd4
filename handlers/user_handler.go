package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"campaignForgeAPI/internal/user"
	"campaignForgeAPI/middleware"
	"campaignForgeAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

type bootstrapRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Bootstrap upserts the authenticated identity into the local users table.
// Called by the client after sign-in; repeat calls refresh the profile
// fields and never change the role.
func (h *UserHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Username == "" {
		respondWithError(w, http.StatusBadRequest, "email and username are required")
		return
	}

	u := &user.User{
		ID:       uuid.New(),
		ClerkID:  clerkID,
		Email:    req.Email,
		Username: req.Username,
		ImageURL: req.ImageURL,
		Role:     user.RoleParticipant,
	}
	if err := h.userService.EnsureUser(ctx, u); err != nil {
		respondWithEngineError(w, err)
		return
	}

	stored, err := h.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		respondWithEngineError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stored)
}
