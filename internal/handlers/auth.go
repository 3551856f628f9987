package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
)

var engine *services.Engine

// Init binds the handlers to the profile's engine. It must run before routes are served.
func Init(e *services.Engine) {
	engine = e
}

// LoginRequest signs in, registering the account on first use.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the new session token and its state.
type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Token   string                 `json:"token,omitempty"`
	Session *services.SessionState `json:"session,omitempty"`
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// requireSession resolves the caller's session, answering 401 itself when there is none.
func requireSession(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeFail(w, http.StatusUnauthorized, "Missing session token")
		return nil, false
	}
	s, ok := engine.Session(token)
	if !ok {
		writeFail(w, http.StatusUnauthorized, "Session expired. Please log in again.")
		return nil, false
	}
	return s, true
}

// Login handles sign-in and first-use registration.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeFail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	s, err := engine.Login(r.Context(), req.Username, req.Password, r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := engine.State(s)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(AuthResponse{
		Success: true,
		Message: "Logged in successfully",
		Token:   s.Token,
		Session: &state,
	}); err != nil {
		log.Printf("⚠️  failed to write login response: %v", err)
	}
}

// Logout ends the caller's session. Unknown tokens succeed.
func Logout(w http.ResponseWriter, r *http.Request) {
	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		engine.Logout(token)
	}
	writeOK(w, "Logged out", nil)
}

// GetMe returns the caller's session state.
func GetMe(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	state, err := engine.State(s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "", state)
}

type ChangePasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func ChangePassword(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := engine.ChangePassword(s, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Password changed", nil)
}

type AllowDMsRequest struct {
	AllowDMs bool `json:"allowDMs"`
}

func SetAllowDMs(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req AllowDMsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := engine.SetAllowDMs(s, req.AllowDMs); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Preference saved", nil)
}

// ProfileRequest is the JSON form of a profile update. A new avatar image is
// sent as multipart form data instead, in the "avatar" field.
type ProfileRequest struct {
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

func UpdateProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	var upd services.ProfileUpdate
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeFail(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
			return
		}
		avatar, err := readUpload(r, "avatar")
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Failed to read avatar: "+err.Error())
			return
		}
		upd.Avatar = avatar
		if _, sent := r.MultipartForm.Value["bio"]; sent {
			bio := r.FormValue("bio")
			upd.Bio = &bio
		}
	} else {
		var req ProfileRequest
		if !decodeBody(w, r, &req) {
			return
		}
		upd.AvatarURL = req.AvatarURL
		upd.Bio = req.Bio
	}

	user, err := engine.UpdateProfile(r.Context(), s, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Profile updated", user)
}
