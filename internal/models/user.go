package models

// Role is a user's authorization level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Privileged reports whether the role may moderate content.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleModerator
}

type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Password     string `json:"password,omitempty"` // legacy plaintext, read-only; cleared on upgrade
	Avatar       string `json:"avatar"`
	Role         Role   `json:"role"`
	Bio          string `json:"bio,omitempty"`
	CreatedAt    Millis `json:"createdAt,omitempty"`
	LastActive   Millis `json:"lastActive,omitempty"`
	AllowDMs     *bool  `json:"allowDMs,omitempty"`
}

// AcceptsDirectMessages reports whether other users may open a private chat.
// An absent preference means allowed.
func (u User) AcceptsDirectMessages() bool {
	return u.AllowDMs == nil || *u.AllowDMs
}

// Public returns a copy safe to hand to the rendering layer.
func (u User) Public() User {
	u.PasswordHash = ""
	u.Password = ""
	return u
}

// FindUser returns the index of username in users, or -1.
func FindUser(users []User, username string) int {
	for i := range users {
		if users[i].Username == username {
			return i
		}
	}
	return -1
}

// DefaultAvatars are assigned round-robin to new accounts.
var DefaultAvatars = []string{
	"https://api.dicebear.com/7.x/thumbs/svg?seed=fox",
	"https://api.dicebear.com/7.x/thumbs/svg?seed=owl",
	"https://api.dicebear.com/7.x/thumbs/svg?seed=cat",
	"https://api.dicebear.com/7.x/thumbs/svg?seed=bear",
	"https://api.dicebear.com/7.x/thumbs/svg?seed=otter",
}
