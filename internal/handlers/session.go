package handlers

import (
	"net/http"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
)

type ViewRequest struct {
	View string `json:"view"`
}

type FocusRequest struct {
	Focused bool `json:"focused"`
}

type TypingRequest struct {
	Scope  services.TypingScope `json:"scope"`
	Target string               `json:"target,omitempty"`
}

// ShowView switches the section the session shows and re-renders it over /ws/events.
func ShowView(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req ViewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, ok := services.ParseView(req.View)
	if !ok {
		writeFail(w, http.StatusBadRequest, "Unknown view")
		return
	}
	if err := engine.ShowView(r.Context(), s, view); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", nil)
}

func SetFocus(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req FocusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := engine.Focus(s, req.Focused); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", nil)
}

func collectionParam(w http.ResponseWriter, r *http.Request) (models.Collection, bool) {
	c := models.Collection(pathParam(r, "collection"))
	if !c.Valid() {
		writeFail(w, http.StatusNotFound, "Unknown collection")
		return "", false
	}
	return c, true
}

// GetCollection returns the cached value of a collection as the caller may see it.
func GetCollection(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	c, ok := collectionParam(w, r)
	if !ok {
		return
	}
	raw, err := engine.Snapshot(s, c)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

// RefreshCollection pulls a collection from the remote store once, then returns it.
func RefreshCollection(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	c, ok := collectionParam(w, r)
	if !ok {
		return
	}
	raw, err := engine.Refresh(r.Context(), s, c)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func GetBadges(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	badges, err := engine.Badges(s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", badges)
}

func StartTyping(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req TypingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := engine.Typing(s, req.Scope, req.Target); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", nil)
}

// GetTyping reports who is typing under the ?key= typing key.
func GetTyping(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}
	user, typing := engine.TypingUser(r.URL.Query().Get("key"))
	writeOK(w, "", map[string]interface{}{"typing": typing, "user": user})
}

// Heartbeat stamps the caller as active now.
func Heartbeat(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := engine.UpdateActivity(s); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", nil)
}

func GetOnlineUsers(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	users, err := engine.OnlineUsers(s)
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeOK(w, "", users)
}
