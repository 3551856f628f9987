package handlers

import (
	"net/http"

	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
)

type VoteRequest struct {
	Vote services.Vote `json:"vote"`
}

type EditRequest struct {
	Text string `json:"text"`
}

// CreatePost adds a forum post. Accepts JSON {text} or multipart text+file.
func CreatePost(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	in, ok := readMessage(w, r)
	if !ok {
		return
	}
	post, err := engine.AddPost(r.Context(), s, in.Text, in.File)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Post created", Data: post})
}

func CreateReply(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
	if !ok {
		return
	}
	in, ok := readMessage(w, r)
	if !ok {
		return
	}
	reply, err := engine.AddReply(r.Context(), s, postID, in.Text, in.File)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Reply added", Data: reply})
}

// VotePost toggles the caller's vote; voting the same way twice withdraws it.
func VotePost(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
	if !ok {
		return
	}
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	post, err := engine.VotePost(s, postID, req.Vote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", post)
}

func VoteReply(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
	if !ok {
		return
	}
	date, ok := millisParam(w, r, "date")
	if !ok {
		return
	}
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := engine.VoteReply(s, postID, date, req.Vote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", reply)
}

func TogglePin(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
	if !ok {
		return
	}
	pinned, err := engine.TogglePin(s, postID)
	if err != nil {
		writeError(w, err)
		return
	}
	msg := "Post unpinned"
	if pinned {
		msg = "Post pinned"
	}
	writeOK(w, msg, map[string]bool{"pinned": pinned})
}

func EditPost(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
	if !ok {
		return
	}
	var req EditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	post, err := engine.EditPost(s, postID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Post updated", post)
}

func EditReply(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
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
	reply, err := engine.EditReply(s, postID, date, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Reply updated", reply)
}

func DeletePost(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
	if !ok {
		return
	}
	if err := engine.DeletePost(s, postID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Post deleted", nil)
}

func DeleteReply(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	postID, ok := millisParam(w, r, "postID")
	if !ok {
		return
	}
	date, ok := millisParam(w, r, "date")
	if !ok {
		return
	}
	if err := engine.DeleteReply(s, postID, date); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Reply deleted", nil)
}
