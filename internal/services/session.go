package services

import (
	"context"
	"log"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/google/uuid"
)

// View is the section a session is currently showing.
type View string

const (
	ViewNone     View = ""
	ViewForum    View = "forum"
	ViewPrivate  View = "private"
	ViewGroups   View = "groups"
	ViewProfile  View = "profile"
	ViewSettings View = "settings"
	ViewSupport  View = "support"
	ViewAdmin    View = "admin"
)

// ParseView maps a client-supplied name to a View.
func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewForum, ViewPrivate, ViewGroups, ViewProfile, ViewSettings, ViewSupport, ViewAdmin:
		return v, true
	}
	return ViewNone, false
}

// ViewFor is the view that renders collection c.
func ViewFor(c models.Collection) View {
	switch c {
	case models.CollectionPosts, models.CollectionUsers:
		return ViewForum
	case models.CollectionPrivateChats:
		return ViewPrivate
	case models.CollectionGroups:
		return ViewGroups
	default:
		return ViewAdmin
	}
}

// navBadge names the navigation badge pulsed for unseen changes.
func navBadge(c models.Collection) string {
	switch c {
	case models.CollectionPosts:
		return "forum"
	case models.CollectionPrivateChats:
		return "private"
	case models.CollectionGroups:
		return "groups"
	}
	return ""
}

// isMessageCollection reports whether changes to c count as unseen activity.
func isMessageCollection(c models.Collection) bool {
	return navBadge(c) != ""
}

// Session is one logged-in user of this profile. It lives from Login to Logout.
// Fields other than Token and Username are guarded by the engine lock.
type Session struct {
	Token    string
	Username string

	view        View
	activeChat  string
	activeGroup string
	pending     int
	focused     bool

	stop context.CancelFunc
}

// SessionState is a snapshot of a session for the API.
type SessionState struct {
	Token       string      `json:"token"`
	User        models.User `json:"user"`
	View        View        `json:"view"`
	ActiveChat  string      `json:"activeChat,omitempty"`
	ActiveGroup string      `json:"activeGroup,omitempty"`
	Pending     int         `json:"pending"`
	Focused     bool        `json:"focused"`
	Badges      Badges      `json:"badges"`
}

// Session looks up a session by token.
func (e *Engine) Session(token string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[token]
	return s, ok
}

// State returns a snapshot of s.
func (e *Engine) State(s *Session) (SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(s)
}

func (e *Engine) stateLocked(s *Session) (SessionState, error) {
	me, err := e.actor(s)
	if err != nil {
		return SessionState{}, err
	}
	return SessionState{
		Token:       s.Token,
		User:        me.Public(),
		View:        s.view,
		ActiveChat:  s.activeChat,
		ActiveGroup: s.activeGroup,
		Pending:     s.pending,
		Focused:     s.focused,
		Badges:      e.badgesFor(s.Username),
	}, nil
}

func (e *Engine) newSession(user models.User) *Session {
	ctx, cancel := context.WithCancel(e.baseCtx)
	s := &Session{
		Token:    uuid.New().String(),
		Username: user.Username,
		focused:  true,
		stop:     cancel,
	}
	e.sessions[s.Token] = s
	if err := cache.SetJSON(e.cache, KeyCurrentUser, user.Public()); err != nil {
		log.Printf("⚠️  failed to store current user: %v", err)
	}
	go e.heartbeat(ctx, s)
	return s
}

// Logout ends the session. Unknown tokens are ignored.
func (e *Engine) Logout(token string) {
	e.mu.Lock()
	s, ok := e.sessions[token]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.sessions, token)
	s.stop()
	if len(e.sessions) == 0 {
		if err := e.cache.Delete(KeyCurrentUser); err != nil {
			log.Printf("⚠️  failed to clear current user: %v", err)
		}
	}
	e.mu.Unlock()

	e.hub.Close(token)
	log.Printf("👋 %s logged out", s.Username)
}

// Focus records whether the client window has focus. Regaining focus clears
// the pending-changes counter.
func (e *Engine) Focus(s *Session, focused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.actor(s); err != nil {
		return err
	}
	s.focused = focused
	if focused {
		s.pending = 0
	}
	e.emitSession(s)
	return nil
}

// ShowView switches the session to view, refreshing the collections it shows
// from the remote store first. The admin view requires the admin role.
func (e *Engine) ShowView(ctx context.Context, s *Session, view View) error {
	e.mu.Lock()
	me, err := e.actor(s)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if view == ViewAdmin && me.Role != models.RoleAdmin {
		return ErrForbidden
	}

	var pulls []models.Collection
	switch view {
	case ViewForum:
		pulls = []models.Collection{models.CollectionPosts, models.CollectionUsers}
	case ViewPrivate:
		pulls = []models.Collection{models.CollectionUsers, models.CollectionPrivateChats}
	case ViewGroups:
		pulls = []models.Collection{models.CollectionGroups, models.CollectionUsers}
	case ViewAdmin:
		pulls = []models.Collection{models.CollectionUsers, models.CollectionModLog, models.CollectionMuted}
	}
	for _, c := range pulls {
		e.remote.PullOnce(ctx, c)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.actor(s); err != nil {
		return err
	}
	s.view = view
	if view == ViewForum {
		if err := cache.SetJSON(e.cache, KeyLastForumSeen, e.now()); err != nil {
			log.Printf("⚠️  failed to store lastForumSeen: %v", err)
		}
	}
	if isMessageView(view) {
		s.pending = 0
	}
	for _, c := range pulls {
		e.emitRender(s, c, e.remote.Cached(c))
	}
	e.emitBadges(s)
	e.emitSession(s)
	return nil
}

func isMessageView(v View) bool {
	return v == ViewForum || v == ViewPrivate || v == ViewGroups
}

// Refresh pulls c once from the remote store and returns it as the session sees it.
func (e *Engine) Refresh(ctx context.Context, s *Session, c models.Collection) ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalid
	}
	e.remote.PullOnce(ctx, c)
	return e.Snapshot(s, c)
}

// Snapshot returns the cached value of c as the session sees it.
func (e *Engine) Snapshot(s *Session, c models.Collection) ([]byte, error) {
	if !c.Valid() {
		return nil, ErrInvalid
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return nil, err
	}
	if (c == models.CollectionModLog || c == models.CollectionMuted) && !CanModerate(me.Role) {
		return nil, ErrForbidden
	}
	return e.viewOf(me, c, e.remote.Cached(c)), nil
}
