package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

// SupportRequest represents a note to the administrator
type SupportRequest struct {
	Message string `json:"message"`
}

// SubmitSupportMessage stores a support note in the local profile.
func SubmitSupportMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req SupportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := engine.SendSupportMessage(s, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Message sent to the administrator", Data: msg})
}

// GetSupportMessages lists every note for the admin, and the caller's own otherwise.
func GetSupportMessages(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	msgs, err := engine.SupportMessages(s)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.SupportMessage{}
	}
	writeOK(w, "", msgs)
}

func MarkSupportAnswered(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid index")
		return
	}
	if err := engine.MarkSupportAnswered(s, index); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Marked as answered", nil)
}
