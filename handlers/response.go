package handlers

import (
	"encoding/json"
	"net/http"

	"campaignForgeAPI/internal/apperr"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithEngineError maps the engine's error taxonomy onto HTTP statuses.
func respondWithEngineError(w http.ResponseWriter, err error) {
	respondWithError(w, apperr.StatusFor(err), err.Error())
}
