package remote

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

const pushTimeout = 5 * time.Second

// Outbox delivers pushes in the background. Pending writes are coalesced per
// collection: under full-value replace only the newest value needs to land.
//
// A collection is unsettled from Enqueue until its last queued value has been
// attempted, and its epoch counts the writes ever queued for it. A remote value
// read under an older epoch, or while the collection is unsettled, predates a
// local write. Such values are held back and onSettle is called once the
// collection settles, or when its write had to be dropped.
type Outbox struct {
	store   Store
	retries int
	backoff time.Duration

	mu         sync.Mutex
	pending    map[models.Collection][]byte
	order      []models.Collection
	unsettled  map[models.Collection]bool
	held       map[models.Collection]bool
	epochs     map[models.Collection]uint64
	idle       chan struct{}
	idleClosed bool
	wake       chan struct{}

	onSettle func(ctx context.Context, c models.Collection)
}

// NewOutbox creates an outbox that retries each failed write up to retries times,
// waiting backoff, then twice that, and so on, capped at 30s.
func NewOutbox(store Store, retries int, backoff time.Duration) *Outbox {
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = minBackoff
	}
	idle := make(chan struct{})
	close(idle)
	return &Outbox{
		store:      store,
		retries:    retries,
		backoff:    backoff,
		pending:    make(map[models.Collection][]byte),
		unsettled:  make(map[models.Collection]bool),
		held:       make(map[models.Collection]bool),
		epochs:     make(map[models.Collection]uint64),
		idle:       idle,
		idleClosed: true,
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue schedules value to be written to c's path. It never blocks.
func (o *Outbox) Enqueue(c models.Collection, value []byte) {
	o.mu.Lock()
	if _, queued := o.pending[c]; !queued {
		o.order = append(o.order, c)
	}
	o.pending[c] = append([]byte(nil), value...)
	o.unsettled[c] = true
	o.epochs[c]++
	if o.idleClosed {
		o.idle = make(chan struct{})
		o.idleClosed = false
	}
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Run delivers queued writes until ctx is done.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.wake:
			o.drain(ctx)
		}
	}
}

func (o *Outbox) drain(ctx context.Context) {
	for {
		o.mu.Lock()
		if len(o.order) == 0 {
			if !o.idleClosed {
				close(o.idle)
				o.idleClosed = true
			}
			o.mu.Unlock()
			return
		}
		c := o.order[0]
		o.order = o.order[1:]
		value := o.pending[c]
		delete(o.pending, c)
		o.mu.Unlock()

		delivered := o.deliver(ctx, c, value)
		if ctx.Err() != nil {
			return
		}
		o.settle(ctx, c, delivered)
	}
}

// settle marks c settled unless a newer value was queued meanwhile, and
// replays the remote state if a delivery was held back or the write was lost.
func (o *Outbox) settle(ctx context.Context, c models.Collection, delivered bool) {
	o.mu.Lock()
	if _, again := o.pending[c]; again {
		o.mu.Unlock()
		return
	}
	held := o.held[c]
	delete(o.unsettled, c)
	delete(o.held, c)
	hook := o.onSettle
	o.mu.Unlock()

	if (held || !delivered) && hook != nil {
		hook(ctx, c)
	}
}

// Unsettled reports whether a local write to c has not been attempted yet.
func (o *Outbox) Unsettled(c models.Collection) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unsettled[c]
}

// Epoch returns the number of writes queued for c so far.
func (o *Outbox) Epoch(c models.Collection) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.epochs[c]
}

// Stale reports whether a remote value of c read under epoch predates a local
// write. Values rejected while c is unsettled are replayed on settle.
func (o *Outbox) Stale(c models.Collection, epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsettled[c] {
		o.held[c] = true
		return true
	}
	return o.epochs[c] != epoch
}

// deliver writes value, retrying on failure. It reports whether the write landed;
// a write abandoned for a newer queued value counts as landed.
func (o *Outbox) deliver(ctx context.Context, c models.Collection, value []byte) bool {
	wait := o.backoff
	for attempt := 0; ; attempt++ {
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		err := o.store.Set(pushCtx, c.Path(), value)
		cancel()
		if err == nil {
			return true
		}
		log.Printf("⚠️  push %s failed (attempt %d): %v", c, attempt+1, err)

		if attempt >= o.retries {
			log.Printf("⚠️  push %s dropped after %d attempts", c, attempt+1)
			return false
		}
		if o.superseded(c) {
			return true
		}
		if !sleepCtx(ctx, wait) {
			return false
		}
		wait = nextBackoff(wait)
	}
}

// superseded reports whether a newer value for c is already queued.
func (o *Outbox) superseded(c models.Collection) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.pending[c]
	return ok
}

// Flush waits until every queued write has been attempted.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	idle := o.idle
	o.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
