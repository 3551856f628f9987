// Package remote replicates whole collection trees through a shared store.
package remote

import (
	"context"
	"time"
)

// Store holds one full JSON tree per path and streams full-value updates.
// Get returns a nil value without error when the path has never been written.
type Store interface {
	Set(ctx context.Context, path string, value []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	// Watch starts delivering the current value and every later value of path to
	// onValue until ctx is done. It returns once the subscription is running.
	Watch(ctx context.Context, path string, onValue func([]byte)) error
	Close() error
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// nextBackoff doubles d up to maxBackoff.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleepCtx waits for d or until ctx is done. It reports whether ctx is still live.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// isNull reports whether a raw value is absent or JSON null.
func isNull(v []byte) bool {
	return len(v) == 0 || string(v) == "null"
}
