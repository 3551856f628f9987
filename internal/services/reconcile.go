package services

import (
	"bytes"
	"context"
	"log"
	"sync"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/normalize"
	"github.com/AnshRaj112/salvioris-chatsync/internal/remote"
)

// Reconciler merges remote snapshots into the local cache and notifies sessions.
// It is started once and keeps watching for the life of the process.
type Reconciler struct {
	engine  *Engine
	started sync.Once
	// collections that have had their first delivery; guarded by the engine lock
	seen map[models.Collection]bool
}

func newReconciler(e *Engine) *Reconciler {
	return &Reconciler{engine: e, seen: make(map[models.Collection]bool)}
}

// Start subscribes to every collection. Later calls do nothing.
func (r *Reconciler) Start(ctx context.Context) {
	r.started.Do(func() {
		for _, c := range models.AllCollections {
			c := c
			if !r.engine.remote.Watch(ctx, c, func(d remote.Delivery) { r.apply(c, d) }) {
				log.Printf("⚠️  %s is already being watched", c)
			}
		}
		log.Println("✅ Remote listeners active")
	})
}

// apply handles one watch delivery for c.
func (r *Reconciler) apply(c models.Collection, d remote.Delivery) {
	e := r.engine
	canonical := normalize.Normalize(c, d.Value)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remote.Stale(c, d) {
		// older than a local write still queued; replayed once it lands
		return
	}

	prev, _, err := e.cache.Get(string(c))
	if err != nil {
		log.Printf("⚠️  local cache read failed for %s: %v", c, err)
	}
	changed := !bytes.Equal(prev, canonical)
	first := !r.seen[c]
	r.seen[c] = true

	if err := e.cache.Set(string(c), canonical); err != nil {
		log.Printf("⚠️  local cache write failed for %s: %v", c, err)
	}

	if !changed && !first {
		return
	}

	for _, s := range e.sessions {
		switch {
		case visible(s, c):
			e.emitRender(s, c, canonical)
		case changed && isMessageCollection(c):
			s.pending++
			e.hub.Publish(s.Token, Event{
				Type:       EventNotify,
				Collection: c,
				Pending:    s.pending,
				Pulse:      navBadge(c),
				Time:       e.now(),
			})
		}
		if changed && isMessageCollection(c) {
			e.emitBadges(s)
		}
	}
}
