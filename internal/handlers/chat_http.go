package handlers

import (
	"net/http"
)

// OpenPrivateChat makes the conversation with {username} the caller's active
// chat and clears its unread count.
func OpenPrivateChat(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	key, err := engine.OpenPrivateChat(s, pathParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", map[string]string{"key": key})
}

// SendPrivateMessage accepts JSON {text} or multipart text+file.
func SendPrivateMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	in, ok := readMessage(w, r)
	if !ok {
		return
	}
	msg, err := engine.SendPrivateMessage(r.Context(), s, pathParam(r, "username"), in.Text, in.File)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "Message sent", Data: msg})
}

func EditPrivateMessage(w http.ResponseWriter, r *http.Request) {
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
	msg, err := engine.EditPrivateMessage(s, pathParam(r, "key"), date, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Message updated", msg)
}

func DeletePrivateMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	date, ok := millisParam(w, r, "date")
	if !ok {
		return
	}
	if err := engine.DeletePrivateMessage(s, pathParam(r, "key"), date); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Message deleted", nil)
}
