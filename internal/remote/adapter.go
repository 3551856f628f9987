package remote

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/normalize"
)

const DefaultPullTimeout = 3000 * time.Millisecond

// Options tune an Adapter. Zero values select the defaults.
type Options struct {
	PullTimeout  time.Duration
	PushRetries  int
	RetryBackoff time.Duration
}

// Adapter is the only path between the services layer and the remote store.
// Remote failures are logged and absorbed here; callers never see them.
type Adapter struct {
	store       Store
	cache       cache.LocalCache
	outbox      *Outbox
	pullTimeout time.Duration

	// guard serializes cache writes made by PullOnce with the owner's local writes
	guard sync.Locker

	mu        sync.Mutex
	listeners map[models.Collection]func(Delivery)
}

// Delivery is one remote value of a watched collection.
type Delivery struct {
	Value []byte
	epoch uint64
}

func NewAdapter(store Store, local cache.LocalCache, opts Options) *Adapter {
	if opts.PullTimeout <= 0 {
		opts.PullTimeout = DefaultPullTimeout
	}
	a := &Adapter{
		store:       store,
		cache:       local,
		outbox:      NewOutbox(store, opts.PushRetries, opts.RetryBackoff),
		pullTimeout: opts.PullTimeout,
		guard:       &sync.Mutex{},
		listeners:   make(map[models.Collection]func(Delivery)),
	}
	a.outbox.onSettle = a.resync
	return a
}

// Guard makes PullOnce take l around its cache update. The owner must hold l
// while it writes the cache and calls Push, and must not hold it when calling PullOnce.
func (a *Adapter) Guard(l sync.Locker) {
	a.guard = l
}

// Start runs the push worker until ctx is done.
func (a *Adapter) Start(ctx context.Context) {
	go a.outbox.Run(ctx)
}

// Push writes the full value of c in the background.
func (a *Adapter) Push(c models.Collection, value []byte) {
	a.outbox.Enqueue(c, value)
}

// Flush waits for queued pushes to be attempted.
func (a *Adapter) Flush(ctx context.Context) error {
	return a.outbox.Flush(ctx)
}

// PullOnce reads the remote value of c, racing the read against the pull timeout.
// A non-null remote value is normalized and written to the local cache. On timeout,
// error or a null remote value, the cached value is returned instead. A remote
// value that predates a local write to c is discarded in favor of the cache.
func (a *Adapter) PullOnce(ctx context.Context, c models.Collection) []byte {
	if a.outbox.Unsettled(c) {
		return a.Cached(c)
	}
	epoch := a.outbox.Epoch(c)
	ctx, cancel := context.WithTimeout(ctx, a.pullTimeout)
	defer cancel()

	type result struct {
		value []byte
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := a.store.Get(ctx, c.Path())
		ch <- result{value: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			log.Printf("⚠️  remote read error for %s, using local cache: %v", c, r.err)
			return a.Cached(c)
		}
		if isNull(r.value) {
			return a.Cached(c)
		}
		canonical := normalize.Normalize(c, r.value)
		a.guard.Lock()
		defer a.guard.Unlock()
		if a.outbox.Unsettled(c) || a.outbox.Epoch(c) != epoch {
			return a.Cached(c)
		}
		if err := a.cache.Set(string(c), canonical); err != nil {
			log.Printf("⚠️  failed to cache %s: %v", c, err)
		}
		return canonical
	case <-ctx.Done():
		log.Printf("⚠️  remote read timeout for %s, using local cache", c)
		return a.Cached(c)
	}
}

// Cached returns the canonical local value of c, or its empty value.
func (a *Adapter) Cached(c models.Collection) []byte {
	v, ok, err := a.cache.Get(string(c))
	if err != nil {
		log.Printf("⚠️  local cache read failed for %s: %v", c, err)
		return c.Empty()
	}
	if !ok {
		return c.Empty()
	}
	return normalize.Normalize(c, v)
}

// Watch subscribes onChange to c's remote feed. Only the first call per collection
// subscribes; later calls return false and change nothing.
//
// onChange should skip a delivery when Stale reports true; the remote value is
// delivered again once the queued local write has been attempted.
func (a *Adapter) Watch(ctx context.Context, c models.Collection, onChange func(Delivery)) bool {
	a.mu.Lock()
	if _, ok := a.listeners[c]; ok {
		a.mu.Unlock()
		return false
	}
	a.listeners[c] = onChange
	a.mu.Unlock()

	deliver := func(raw []byte) {
		onChange(Delivery{Value: raw, epoch: a.outbox.Epoch(c)})
	}
	if err := a.store.Watch(ctx, c.Path(), deliver); err != nil {
		log.Printf("⚠️  failed to watch %s: %v", c, err)
		a.mu.Lock()
		delete(a.listeners, c)
		a.mu.Unlock()
		return false
	}
	return true
}

// resync re-reads c and hands the value to its listener.
func (a *Adapter) resync(ctx context.Context, c models.Collection) {
	a.mu.Lock()
	onChange := a.listeners[c]
	a.mu.Unlock()
	if onChange == nil {
		return
	}

	epoch := a.outbox.Epoch(c)
	ctx, cancel := context.WithTimeout(ctx, a.pullTimeout)
	defer cancel()
	v, err := a.store.Get(ctx, c.Path())
	if err != nil {
		log.Printf("⚠️  resync of %s failed: %v", c, err)
		return
	}
	onChange(Delivery{Value: v, epoch: epoch})
}

// Stale reports whether d predates a local write to c and must not be applied.
// The owner should ask while holding its guard lock.
func (a *Adapter) Stale(c models.Collection, d Delivery) bool {
	return a.outbox.Stale(c, d.epoch)
}

// Close releases the underlying store.
func (a *Adapter) Close() error {
	return a.store.Close()
}
