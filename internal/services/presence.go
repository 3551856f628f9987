package services

import (
	"context"
	"errors"
	"log"
	"time"
)

// heartbeat refreshes the session user's lastActive while the window is focused.
func (e *Engine) heartbeat(ctx context.Context, s *Session) {
	ticker := time.NewTicker(e.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			focused := s.focused
			e.mu.Unlock()
			if !focused {
				continue
			}
			if err := e.UpdateActivity(s); err != nil {
				if errors.Is(err, ErrNoSession) {
					return
				}
				log.Printf("⚠️  heartbeat for %s failed: %v", s.Username, err)
			}
		}
	}
}
