package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
	"github.com/AnshRaj112/salvioris-chatsync/pkg/utils"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("⚠️  failed to write response: %v", err)
	}
}

func writeOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{Success: false, Message: message})
}

// writeError maps a services error to its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	var locked *services.LockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(locked.Until), 10))
		writeFail(w, http.StatusLocked, err.Error())
		return
	}
	var invalid *utils.ValidationError
	if errors.As(err, &invalid) {
		writeFail(w, http.StatusBadRequest, invalid.Message)
		return
	}

	switch {
	case errors.Is(err, services.ErrNoSession):
		writeFail(w, http.StatusUnauthorized, "Session expired. Please log in again.")
	case errors.Is(err, services.ErrWrongPassword):
		writeFail(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, services.ErrMuted):
		writeFail(w, http.StatusForbidden, "You are muted and cannot post right now")
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrDMsDisabled):
		writeFail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateGroup):
		writeFail(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalid), errors.Is(err, services.ErrNotPrivate), errors.Is(err, services.ErrNotEditable):
		writeFail(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("❌ request failed: %v", err)
		writeFail(w, http.StatusInternalServerError, "Failed to save changes")
	}
}

func retryAfterSeconds(until models.Millis) int64 {
	secs := (int64(until) - int64(models.Now()) + 999) / 1000
	if secs < 1 {
		return 1
	}
	return secs
}

// decodeBody reads a JSON request body into v, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathParam returns the unescaped URL parameter key.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// millisParam parses a timestamp URL parameter, answering 400 itself on failure.
func millisParam(w http.ResponseWriter, r *http.Request, key string) (models.Millis, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid "+key)
		return 0, false
	}
	return models.Millis(n), true
}
