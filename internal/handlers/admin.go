package handlers

import (
	"net/http"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
)

// MuteRequest mutes a user for Minutes; zero or less mutes until unmuted.
type MuteRequest struct {
	Username string `json:"username"`
	Minutes  int    `json:"minutes"`
}

type RoleRequest struct {
	Moderator bool `json:"moderator"`
}

func GetMutes(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	mutes, err := engine.ActiveMutes(s)
	if err != nil {
		writeError(w, err)
		return
	}
	if mutes == nil {
		mutes = []models.MuteEntry{}
	}
	writeOK(w, "", mutes)
}

func MuteUser(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req MuteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := engine.Mute(s, req.Username, req.Minutes); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, req.Username+" muted", nil)
}

func UnmuteUser(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	username := pathParam(r, "username")
	if err := engine.Unmute(s, username); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, username+" unmuted", nil)
}

func GetModLog(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	entries, err := engine.ModLog(s)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.ModLogEntry{}
	}
	writeOK(w, "", entries)
}

// adminAction runs an admin-only operation that only reports success.
func adminAction(op func(*services.Session) error, done string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := requireSession(w, r)
		if !ok {
			return
		}
		if err := op(s); err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, done, nil)
	}
}

func ClearModLog(w http.ResponseWriter, r *http.Request) {
	adminAction(engine.ClearModLog, "Moderation log cleared")(w, r)
}

// ClearAllData wipes users, posts, chats and groups; the admin account survives.
func ClearAllData(w http.ResponseWriter, r *http.Request) {
	adminAction(engine.ClearAllData, "All data cleared")(w, r)
}

func ClearAllMessages(w http.ResponseWriter, r *http.Request) {
	adminAction(engine.ClearAllMessages, "All messages cleared")(w, r)
}

func ClearFailedAttempts(w http.ResponseWriter, r *http.Request) {
	adminAction(engine.ClearFailedAttempts, "Failed login attempts cleared")(w, r)
}

func GetFailedAttempts(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	attempts, err := engine.FailedAttempts(s)
	if err != nil {
		writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []models.FailedAttempt{}
	}
	writeOK(w, "", attempts)
}

// SetUserRole promotes {username} to moderator or demotes them to user. Admin only.
func SetUserRole(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req RoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	username := pathParam(r, "username")
	if err := engine.SetModerator(s, username, req.Moderator); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Role updated for "+username, nil)
}

func DeleteUser(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	username := pathParam(r, "username")
	if err := engine.DeleteUser(s, username); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, username+" deleted", nil)
}
