package services

import (
	"log"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

const maxSupportLength = 2000

func (e *Engine) supportMessages() []models.SupportMessage {
	var msgs []models.SupportMessage
	if _, err := cache.GetJSON(e.cache, KeySupportMessages, &msgs); err != nil {
		log.Printf("⚠️  unreadable support messages, starting over: %v", err)
		return nil
	}
	return msgs
}

// SendSupportMessage leaves a note for the administrator. Support messages
// live in the local profile only.
func (e *Engine) SendSupportMessage(s *Session, text string) (models.SupportMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxSupportLength {
		return models.SupportMessage{}, ErrInvalid
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.SupportMessage{}, err
	}
	msg := models.SupportMessage{
		From:   me.Username,
		Avatar: me.Avatar,
		Text:   text,
		Date:   e.now(),
		Status: models.SupportPending,
	}
	if err := cache.SetJSON(e.cache, KeySupportMessages, append(e.supportMessages(), msg)); err != nil {
		return models.SupportMessage{}, ErrLocalWrite
	}
	return msg, nil
}

// SupportMessages returns every message for the admin and the user's own otherwise.
func (e *Engine) SupportMessages(s *Session) ([]models.SupportMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return nil, err
	}
	all := e.supportMessages()
	if me.Role == models.RoleAdmin {
		return all, nil
	}
	own := make([]models.SupportMessage, 0, len(all))
	for _, m := range all {
		if m.From == me.Username {
			own = append(own, m)
		}
	}
	return own, nil
}

// MarkSupportAnswered marks message index as read and answered. Admin only.
func (e *Engine) MarkSupportAnswered(s *Session, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if me.Role != models.RoleAdmin {
		return ErrForbidden
	}
	msgs := e.supportMessages()
	if index < 0 || index >= len(msgs) {
		return ErrNotFound
	}
	msgs[index].Read = true
	msgs[index].Status = models.SupportAnswered
	if err := cache.SetJSON(e.cache, KeySupportMessages, msgs); err != nil {
		return ErrLocalWrite
	}
	e.appendModLog(models.ActionAnswerSupport, me.Username, msgs[index].From, "")
	return nil
}
