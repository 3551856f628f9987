package services

import (
	"log"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

const (
	lockoutThreshold = 3
	lockoutWindow    = models.Millis(24 * time.Hour / time.Millisecond)
	lockoutDuration  = models.Millis(time.Hour / time.Millisecond)
)

// EvaluateLockout reports whether the admin account is locked at now.
// It locks once lockoutThreshold failures fall within the trailing 24 hours,
// until one hour after the most recent of them.
func EvaluateLockout(attempts []models.FailedAttempt, now models.Millis) (bool, models.Millis) {
	var recent int
	var last models.Millis
	for _, a := range attempts {
		if now-a.Time >= lockoutWindow {
			continue
		}
		recent++
		if a.Time > last {
			last = a.Time
		}
	}
	if recent < lockoutThreshold {
		return false, 0
	}
	until := last + lockoutDuration
	if now < until {
		return true, until
	}
	return false, 0
}

func (e *Engine) failedAttempts() []models.FailedAttempt {
	var attempts []models.FailedAttempt
	if _, err := cache.GetJSON(e.cache, KeyFailedAttempts, &attempts); err != nil {
		log.Printf("⚠️  unreadable failed admin attempts, starting over: %v", err)
		return nil
	}
	return attempts
}

// recordFailedAdminLogin keeps the attempt locally and mirrors it to the moderation log.
// The attempted password is not recorded anywhere.
func (e *Engine) recordFailedAdminLogin(username, userAgent string) {
	attempts := append(e.failedAttempts(), models.FailedAttempt{
		Time:              e.now(),
		AttemptedUsername: username,
		UserAgent:         userAgent,
	})
	if err := cache.SetJSON(e.cache, KeyFailedAttempts, attempts); err != nil {
		log.Printf("⚠️  failed to record admin login attempt: %v", err)
	}
	details := ""
	if userAgent != "" {
		details = "ua:" + userAgent
	}
	e.appendModLog(models.ActionFailedAdminLogin, username, e.cfg.AdminUsername, details)
	log.Printf("⚠️  failed admin login attempt (%d recorded)", len(attempts))
}
