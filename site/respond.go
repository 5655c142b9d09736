package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"inkwell/database"
	"inkwell/offload"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondInternal(w http.ResponseWriter, r *http.Request, message string, err error) {
	log.Printf("%s %s: %s: %v", r.Method, r.URL.Path, message, err)
	respondError(w, http.StatusInternalServerError, message)
}

// respondStoreError translates repository and offload errors into HTTP
// responses. action names the operation in client messages.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, database.ErrForbidden):
		respondError(w, http.StatusForbidden, fmt.Sprintf("Not authorized to %s this post", action))
	case errors.Is(err, database.ErrInvalidCategory):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid category", Message: err.Error()})
	case errors.Is(err, database.ErrInvalidTags):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid tags", Message: err.Error()})
	case errors.Is(err, offload.ErrUnresolvableImage),
		errors.Is(err, offload.ErrNotImage),
		errors.Is(err, offload.ErrMalformedDataURI):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid image", Message: err.Error()})
	default:
		respondInternal(w, r, fmt.Sprintf("Failed to %s post", action), err)
	}
}

func parseID(value string) (uint, bool) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
