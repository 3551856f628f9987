package services

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/normalize"
)

type EventType string

const (
	EventRender  EventType = "render"
	EventNotify  EventType = "notify"
	EventBadges  EventType = "badges"
	EventTyping  EventType = "typing"
	EventSession EventType = "session"
)

// DeletedPlaceholder replaces tombstoned text for non-privileged viewers.
const DeletedPlaceholder = "Message deleted"

// Event is what the rendering layer receives over the events socket.
type Event struct {
	Type       EventType         `json:"type"`
	Collection models.Collection `json:"collection,omitempty"`
	View       View              `json:"view,omitempty"`
	Value      json.RawMessage   `json:"value,omitempty"`
	Badges     *Badges           `json:"badges,omitempty"`
	Pending    int               `json:"pending,omitempty"`
	Pulse      string            `json:"pulse,omitempty"`
	Typing     *TypingEvent      `json:"typing,omitempty"`
	Time       models.Millis     `json:"time"`
}

const subscriberBuffer = 64

// Hub fans events out to the subscribers of each session.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for token's events. The returned func removes it.
func (h *Hub) Subscribe(token string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[token] == nil {
		h.subs[token] = make(map[chan Event]struct{})
	}
	h.subs[token][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[token][ch]; ok {
			delete(h.subs[token], ch)
			close(ch)
		}
	}
}

// Publish delivers ev to every subscriber of token without blocking.
// A subscriber whose buffer is full misses the event.
func (h *Hub) Publish(token string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[token] {
		select {
		case ch <- ev:
		default:
			log.Printf("⚠️  event buffer full for session %s, dropping %s", shortToken(token), ev.Type)
		}
	}
}

// Close ends every subscription of token.
func (h *Hub) Close(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[token] {
		close(ch)
	}
	delete(h.subs, token)
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}

// visible reports whether the session's current view shows collection c.
func visible(s *Session, c models.Collection) bool {
	if s.view == ViewNone {
		return false
	}
	if s.view == ViewFor(c) {
		return true
	}
	// user lists appear beside every conversation view
	return c == models.CollectionUsers && (s.view == ViewPrivate || s.view == ViewGroups || s.view == ViewAdmin)
}

func (e *Engine) emitRender(s *Session, c models.Collection, canonical []byte) {
	users := e.users()
	i := models.FindUser(users, s.Username)
	if i < 0 {
		return
	}
	if (c == models.CollectionModLog || c == models.CollectionMuted) && !CanModerate(users[i].Role) {
		return
	}
	e.hub.Publish(s.Token, Event{
		Type:       EventRender,
		Collection: c,
		View:       s.view,
		Value:      e.viewOf(users[i], c, canonical),
		Time:       e.now(),
	})
}

func (e *Engine) emitBadges(s *Session) {
	b := e.badgesFor(s.Username)
	e.hub.Publish(s.Token, Event{Type: EventBadges, Badges: &b, Pending: s.pending, Time: e.now()})
}

func (e *Engine) emitSession(s *Session) {
	e.hub.Publish(s.Token, Event{Type: EventSession, View: s.view, Pending: s.pending, Time: e.now()})
}

// localChange re-renders sessions after a write made by this profile.
func (e *Engine) localChange(c models.Collection, canonical []byte) {
	for _, s := range e.sessions {
		if visible(s, c) {
			e.emitRender(s, c, canonical)
		}
		if isMessageCollection(c) {
			e.emitBadges(s)
		}
	}
}

// viewOf shapes a canonical value for viewer: password fields are always
// stripped, and non-privileged viewers see tombstones redacted and only their
// own private conversations.
func (e *Engine) viewOf(viewer models.User, c models.Collection, canonical []byte) []byte {
	privileged := viewer.Role.Privileged()
	var v any
	switch c {
	case models.CollectionUsers:
		users := normalize.Users(canonical)
		for i := range users {
			users[i] = users[i].Public()
		}
		v = users
	case models.CollectionPosts:
		if privileged {
			return canonical
		}
		posts := normalize.Posts(canonical)
		for i := range posts {
			redactPost(&posts[i])
		}
		v = posts
	case models.CollectionPrivateChats:
		if privileged {
			return canonical
		}
		chats := normalize.PrivateChats(canonical)
		for key, chat := range chats {
			if !isParticipant(key, viewer.Username) {
				delete(chats, key)
				continue
			}
			for i := range chat.Messages {
				redactMessage(&chat.Messages[i])
			}
		}
		v = chats
	case models.CollectionGroups:
		if privileged {
			return canonical
		}
		groups := normalize.Groups(canonical)
		for i := range groups {
			for j := range groups[i].Messages {
				redactMessage(&groups[i].Messages[j])
			}
		}
		v = groups
	default:
		return canonical
	}
	data, err := normalize.Encode(c, v)
	if err != nil {
		return c.Empty()
	}
	return data
}

func isParticipant(key, username string) bool {
	return strings.HasPrefix(key, username+"_") || strings.HasSuffix(key, "_"+username)
}

func redactPost(p *models.Post) {
	if p.Deleted {
		p.Text = DeletedPlaceholder
		p.Attachment = nil
		p.Edits = nil
		p.DeletedData = nil
	}
	for i := range p.Replies {
		r := &p.Replies[i]
		if r.Deleted {
			r.Text = DeletedPlaceholder
			r.Attachment = nil
			r.Edits = nil
			r.DeletedData = nil
		}
	}
}

func redactMessage(m *models.Message) {
	if !m.Deleted {
		return
	}
	m.Type = models.MessageText
	m.Text = DeletedPlaceholder
	m.Edits = nil
	m.DeletedData = nil
}
