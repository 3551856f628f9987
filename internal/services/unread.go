package services

import (
	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

// Badges are the derived unread counts for one viewer.
type Badges struct {
	Private int `json:"private"`
	Groups  int `json:"groups"`
	Forum   int `json:"forum"`
	Total   int `json:"total"`
}

// IncrementUnread adds one to every participant's count except the sender's.
// A nil map is allocated.
func IncrementUnread(unread map[string]int, participants []string, sender string) map[string]int {
	if unread == nil {
		unread = make(map[string]int)
	}
	done := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == sender || p == "" || done[p] {
			continue
		}
		done[p] = true
		n := unread[p]
		if n < 0 {
			n = 0
		}
		unread[p] = n + 1
	}
	return unread
}

// ResetUnread clears viewer's count and reports whether it was non-zero.
func ResetUnread(unread map[string]int, viewer string) (map[string]int, bool) {
	if unread == nil {
		unread = make(map[string]int)
	}
	changed := unread[viewer] != 0
	unread[viewer] = 0
	return unread, changed
}

// ComputeBadges sums viewer's unread counts over all conversations and counts
// forum posts newer than lastForumSeen.
func ComputeBadges(chats models.PrivateChats, groups []models.Group, posts []models.Post, viewer string, lastForumSeen models.Millis) Badges {
	var b Badges
	for _, chat := range chats {
		if n := chat.Unread[viewer]; n > 0 {
			b.Private += n
		}
	}
	for _, g := range groups {
		if n := g.Unread[viewer]; n > 0 {
			b.Groups += n
		}
	}
	for _, p := range posts {
		if models.ParseISO(p.Date) > lastForumSeen {
			b.Forum++
		}
	}
	b.Total = b.Private + b.Groups
	return b
}

func (e *Engine) badgesFor(viewer string) Badges {
	var lastSeen models.Millis
	if _, err := cache.GetJSON(e.cache, KeyLastForumSeen, &lastSeen); err != nil {
		lastSeen = 0
	}
	return ComputeBadges(e.privateChats(), e.groups(), e.posts(), viewer, lastSeen)
}

// Badges returns the session's current badge counts.
func (e *Engine) Badges(s *Session) (Badges, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.actor(s); err != nil {
		return Badges{}, err
	}
	return e.badgesFor(s.Username), nil
}
