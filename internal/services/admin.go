package services

import (
	"log"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

func (e *Engine) requireAdmin(s *Session) (models.User, error) {
	me, err := e.actor(s)
	if err != nil {
		return models.User{}, err
	}
	if me.Role != models.RoleAdmin {
		return models.User{}, ErrForbidden
	}
	return me, nil
}

// ClearAllData empties users, posts, private chats and groups. The admin
// account is recreated immediately.
func (e *Engine) ClearAllData(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.requireAdmin(s)
	if err != nil {
		return err
	}
	if _, err := e.saveUsers(nil); err != nil {
		return err
	}
	if _, err := e.commit(models.CollectionPosts, []models.Post{}); err != nil {
		return err
	}
	if _, err := e.commit(models.CollectionPrivateChats, models.PrivateChats{}); err != nil {
		return err
	}
	if _, err := e.commit(models.CollectionGroups, []models.Group{}); err != nil {
		return err
	}
	for _, other := range e.sessions {
		other.activeChat = ""
		other.activeGroup = ""
	}
	e.appendModLog(models.ActionClearAllData, me.Username, "", "")
	log.Printf("🧹 all data cleared by %s", me.Username)
	return nil
}

// ClearAllMessages deletes every post and private chat and empties every
// group's history, keeping the groups and their members.
func (e *Engine) ClearAllMessages(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.requireAdmin(s)
	if err != nil {
		return err
	}
	if _, err := e.commit(models.CollectionPosts, []models.Post{}); err != nil {
		return err
	}
	if _, err := e.commit(models.CollectionPrivateChats, models.PrivateChats{}); err != nil {
		return err
	}
	groups := e.groups()
	for i := range groups {
		groups[i].Messages = []models.Message{}
		groups[i].Unread = map[string]int{}
	}
	if _, err := e.commit(models.CollectionGroups, groups); err != nil {
		return err
	}
	e.appendModLog(models.ActionClearAllMessages, me.Username, "", "")
	log.Printf("🧹 all messages cleared by %s", me.Username)
	return nil
}

// ClearModLog empties the moderation log. Admin only.
func (e *Engine) ClearModLog(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireAdmin(s); err != nil {
		return err
	}
	_, err := e.commit(models.CollectionModLog, []models.ModLogEntry{})
	return err
}

// FailedAttempts lists recorded failed admin logins. Admin only.
func (e *Engine) FailedAttempts(s *Session) ([]models.FailedAttempt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireAdmin(s); err != nil {
		return nil, err
	}
	return e.failedAttempts(), nil
}

// ClearFailedAttempts forgets failed admin logins, lifting any lockout.
func (e *Engine) ClearFailedAttempts(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.requireAdmin(s)
	if err != nil {
		return err
	}
	if err := e.cache.Delete(KeyFailedAttempts); err != nil {
		return ErrLocalWrite
	}
	e.appendModLog(models.ActionClearFailedLogins, me.Username, "", "")
	return nil
}
