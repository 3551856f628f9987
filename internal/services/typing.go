package services

import (
	"log"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

// TypingScope is where a user is typing.
type TypingScope string

const (
	TypingForum   TypingScope = "forum"
	TypingPrivate TypingScope = "private"
	TypingGroup   TypingScope = "group"
)

// TypingEvent announces that User started or stopped typing under Key.
type TypingEvent struct {
	Key    string `json:"key"`
	User   string `json:"user"`
	Active bool   `json:"active"`
}

// TypingKey is the local cache key holding the typing username.
func TypingKey(scope TypingScope, target string) string {
	switch scope {
	case TypingPrivate:
		return "typing_private_" + target
	case TypingGroup:
		return "typing_group_" + target
	default:
		return "typing_forum"
	}
}

// typingTimers holds one pending expiry and the current typist per typing key;
// guarded by the engine lock.
type typingTimers struct {
	timers  map[string]*time.Timer
	gen     map[string]uint64
	holders map[string]string
}

func newTypingTimers() *typingTimers {
	return &typingTimers{
		timers:  make(map[string]*time.Timer),
		gen:     make(map[string]uint64),
		holders: make(map[string]string),
	}
}

// Typing marks the session user as typing. The mark expires after the typing
// TTL unless Typing is called again for the same key first.
func (e *Engine) Typing(s *Session, scope TypingScope, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}

	switch scope {
	case TypingForum:
		target = ""
	case TypingPrivate:
		if target == "" {
			target = s.activeChat
		}
		if target == "" {
			return ErrInvalid
		}
		target = models.ConversationKey(me.Username, target)
	case TypingGroup:
		if target == "" {
			target = s.activeGroup
		}
		if target == "" {
			return ErrInvalid
		}
	default:
		return ErrInvalid
	}

	key := TypingKey(scope, target)
	if err := e.cache.Set(key, []byte(me.Username)); err != nil {
		log.Printf("⚠️  failed to store typing key %s: %v", key, err)
	}

	t := e.typing
	if old, ok := t.timers[key]; ok {
		old.Stop()
	}
	if holder := t.holders[key]; holder != me.Username {
		if holder != "" {
			e.broadcastTyping(TypingEvent{Key: key, User: holder, Active: false})
		}
		t.holders[key] = me.Username
		e.broadcastTyping(TypingEvent{Key: key, User: me.Username, Active: true})
	}
	t.gen[key]++
	gen := t.gen[key]
	t.timers[key] = time.AfterFunc(e.cfg.TypingTTL, func() { e.expireTyping(key, me.Username, gen) })
	return nil
}

func (e *Engine) expireTyping(key, username string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.typing
	if t.gen[key] != gen {
		return
	}
	delete(t.timers, key)
	delete(t.gen, key)
	delete(t.holders, key)
	if err := e.cache.Delete(key); err != nil {
		log.Printf("⚠️  failed to clear typing key %s: %v", key, err)
	}
	e.broadcastTyping(TypingEvent{Key: key, User: username, Active: false})
}

// TypingUser returns who is typing under key, if anyone.
func (e *Engine) TypingUser(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok, err := e.cache.Get(key)
	if err != nil || !ok {
		return "", false
	}
	return string(v), true
}

func (e *Engine) broadcastTyping(ev TypingEvent) {
	for _, s := range e.sessions {
		e.hub.Publish(s.Token, Event{Type: EventTyping, Typing: &ev, Time: e.now()})
	}
}
