package handlers

import (
	"net/http"

	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
)

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name    string `json:"name"`
	Privacy string `json:"privacy,omitempty"`
}

// AddMemberRequest names the user to add to a private group
type AddMemberRequest struct {
	Username string `json:"username"`
}

// CreateGroup creates a group with the caller as its only member.
// Privacy defaults to public.
func CreateGroup(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req CreateGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	group, err := engine.CreateGroup(s, req.Name, services.ParsePrivacy(req.Privacy))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Group created", Data: group})
}

// OpenGroup makes {name} the caller's active group, joining it when public.
func OpenGroup(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	group, err := engine.OpenGroup(s, pathParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", group)
}

func SendGroupMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	in, ok := readMessage(w, r)
	if !ok {
		return
	}
	msg, err := engine.SendGroupMessage(r.Context(), s, pathParam(r, "name"), in.Text, in.File)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Message sent", Data: msg})
}

func AddGroupMember(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req AddMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := engine.AddGroupMember(s, pathParam(r, "name"), req.Username); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, req.Username+" added to the group", nil)
}

func EditGroupMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	date, ok := millisParam(w, r, "date")
	if !ok {
		return
	}
	var req EditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := engine.EditGroupMessage(s, pathParam(r, "name"), date, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Message updated", msg)
}

func DeleteGroupMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	date, ok := millisParam(w, r, "date")
	if !ok {
		return
	}
	if err := engine.DeleteGroupMessage(s, pathParam(r, "name"), date); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Message deleted", nil)
}

// DeleteGroup removes a group with its history. Moderators and the admin only.
func DeleteGroup(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := engine.DeleteGroup(s, pathParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Group deleted", nil)
}
