package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/pkg/clientip"
	"golang.org/x/time/rate"
)

// Message sending rate limit: per session, 1 msg/s with burst 10. Requests without
// a session token are keyed by IP with a tighter bucket; they fail auth anyway.

const (
	messageAuthBurst = 10
	messageAnonBurst = 3
)

var (
	messageAuthLimiters = newLimiterSet(rate.Limit(1), messageAuthBurst)
	messageAnonLimiters = newLimiterSet(rate.Limit(0.2), messageAnonBurst)
)

// isMessageWrite reports whether r creates content: posts, replies, private and group messages.
func isMessageWrite(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	p := r.URL.Path
	switch {
	case p == "/api/posts":
		return true
	case strings.HasPrefix(p, "/api/posts/") && strings.HasSuffix(p, "/replies"):
		return true
	case strings.HasPrefix(p, "/api/private/users/") && strings.HasSuffix(p, "/messages"):
		return true
	case strings.HasPrefix(p, "/api/groups/") && strings.HasSuffix(p, "/messages"):
		return true
	}
	return false
}

func sessionToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// MessageRateLimit applies rate limiting only to message-creating routes.
// Returns 429 with X-RateLimit headers when exceeded.
func MessageRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMessageWrite(r) {
			next.ServeHTTP(w, r)
			return
		}

		set, key, limit := messageAnonLimiters, clientip.RealClientIP(r), messageAnonBurst
		if token := sessionToken(r); token != "" {
			set, key, limit = messageAuthLimiters, token, messageAuthBurst
		}
		limiter := set.get(key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		if !limiter.Allow() {
			w.Header().Set("X-RateLimit-Remaining", "0")
			tooManyRequests(w, "You are sending messages too quickly. Please slow down.")
			return
		}
		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}
