package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/normalize"
	"github.com/AnshRaj112/salvioris-chatsync/internal/remote"
)

// Local-only cache keys. They are never replicated.
const (
	KeyCurrentUser     = "currentUser"
	KeyFailedAttempts  = "failedAdminAttempts"
	KeySupportMessages = "supportMessages"
	KeyLastForumSeen   = "lastForumSeen"
)

const (
	DefaultTypingTTL    = 1500 * time.Millisecond
	DefaultHeartbeat    = 2000 * time.Millisecond
	DefaultOnlineWindow = 120 * time.Second
)

type Config struct {
	AdminUsername string
	AdminPassword string
	TypingTTL     time.Duration
	Heartbeat     time.Duration
	OnlineWindow  time.Duration
}

// Engine owns the profile's state. Every mutation runs under mu, reading the
// full collection from the local cache, changing it and writing it back whole.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	cache  cache.LocalCache
	remote *remote.Adapter
	hub    *Hub
	upload Uploader
	now    func() models.Millis

	baseCtx  context.Context
	sessions map[string]*Session

	reconciler *Reconciler
	typing     *typingTimers

	// last admin hash known to match the configured password
	verifiedAdminHash string
}

func NewEngine(cfg Config, local cache.LocalCache, adapter *remote.Adapter, uploader Uploader) *Engine {
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "Jade"
	}
	if cfg.TypingTTL <= 0 {
		cfg.TypingTTL = DefaultTypingTTL
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.OnlineWindow <= 0 {
		cfg.OnlineWindow = DefaultOnlineWindow
	}
	e := &Engine{
		cfg:      cfg,
		cache:    local,
		remote:   adapter,
		hub:      NewHub(),
		upload:   uploader,
		now:      models.Now,
		baseCtx:  context.Background(),
		sessions: make(map[string]*Session),
	}
	adapter.Guard(&e.mu)
	e.reconciler = newReconciler(e)
	e.typing = newTypingTimers()
	return e
}

// Start sets the context that bounds watches and heartbeats.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()
}

// Hub returns the event hub sessions subscribe to.
func (e *Engine) Hub() *Hub {
	return e.hub
}

// AdminUsername is the reserved admin account name.
func (e *Engine) AdminUsername() string {
	return e.cfg.AdminUsername
}

// Shutdown ends every session and waits for queued pushes.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	tokens := make([]string, 0, len(e.sessions))
	for token := range e.sessions {
		tokens = append(tokens, token)
	}
	e.mu.Unlock()

	for _, token := range tokens {
		e.Logout(token)
	}
	return e.remote.Flush(ctx)
}

// commit writes the full canonical value of c locally and queues the remote push.
// If the local write fails nothing has changed and the error is returned.
func (e *Engine) commit(c models.Collection, v any) ([]byte, error) {
	data, err := normalize.Encode(c, v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrLocalWrite, c, err)
	}
	if err := e.cache.Set(string(c), data); err != nil {
		log.Printf("⚠️  local write of %s failed: %v", c, err)
		return nil, fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	e.remote.Push(c, data)
	e.localChange(c, data)
	return data, nil
}

func (e *Engine) users() []models.User {
	return normalize.Users(e.remote.Cached(models.CollectionUsers))
}

func (e *Engine) posts() []models.Post {
	return normalize.Posts(e.remote.Cached(models.CollectionPosts))
}

func (e *Engine) privateChats() models.PrivateChats {
	return normalize.PrivateChats(e.remote.Cached(models.CollectionPrivateChats))
}

func (e *Engine) groups() []models.Group {
	return normalize.Groups(e.remote.Cached(models.CollectionGroups))
}

func (e *Engine) modLog() []models.ModLogEntry {
	return normalize.ModLog(e.remote.Cached(models.CollectionModLog))
}

func (e *Engine) muted() []models.MuteEntry {
	return normalize.Muted(e.remote.Cached(models.CollectionMuted))
}

// actor resolves the session's current account. Roles are read fresh so a
// promotion or demotion applies to the next action.
func (e *Engine) actor(s *Session) (models.User, error) {
	if s == nil || e.sessions[s.Token] != s {
		return models.User{}, ErrNoSession
	}
	users := e.users()
	i := models.FindUser(users, s.Username)
	if i < 0 {
		return models.User{}, fmt.Errorf("%w: account %s no longer exists", ErrNoSession, s.Username)
	}
	return users[i], nil
}

func (e *Engine) appendModLog(action models.ModAction, actor, target, details string) {
	entries := append(e.modLog(), models.ModLogEntry{
		Time:    e.now(),
		Action:  action,
		Actor:   actor,
		Target:  target,
		Details: details,
	})
	if _, err := e.commit(models.CollectionModLog, entries); err != nil {
		log.Printf("⚠️  failed to append moderation log (%s): %v", action, err)
	}
}

// uniqueMillis returns the first value >= want for which taken is false.
func uniqueMillis(want models.Millis, taken func(models.Millis) bool) models.Millis {
	for taken(want) {
		want++
	}
	return want
}
