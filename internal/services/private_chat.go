package services

import (
	"context"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

// newMessage builds a text message, or a file message when att is set. File
// messages carry the attachment payload as their text.
func newMessage(from, text string, att *models.Attachment, date models.Millis) models.Message {
	m := models.Message{From: from, Type: models.MessageText, Text: text, Date: date}
	if att != nil {
		m.Type = models.MessageFile
		if att.Type == models.AttachmentImage {
			m.Type = models.MessageImage
		}
		m.Text = att.Payload
	}
	return m
}

func (e *Engine) messageDate(messages []models.Message) models.Millis {
	return uniqueMillis(e.now(), func(d models.Millis) bool { return models.FindMessage(messages, d) >= 0 })
}

// OpenPrivateChat makes the conversation with other active for the session and
// clears the session user's unread count in it.
func (e *Engine) OpenPrivateChat(s *Session, other string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return "", err
	}
	other = strings.TrimSpace(other)
	if other == "" || other == me.Username {
		return "", ErrInvalid
	}
	if models.FindUser(e.users(), other) < 0 {
		return "", ErrNotFound
	}

	s.activeChat = other
	key := models.ConversationKey(me.Username, other)
	chats := e.privateChats()
	if chat, ok := chats[key]; ok {
		var changed bool
		chat.Unread, changed = ResetUnread(chat.Unread, me.Username)
		if changed {
			chats[key] = chat
			if _, err := e.commit(models.CollectionPrivateChats, chats); err != nil {
				return "", err
			}
		}
	}
	e.emitBadges(s)
	e.emitSession(s)
	return key, nil
}

// SendPrivateMessage appends a message to the conversation with to, creating
// it on first use, and increments the recipient's unread count.
func (e *Engine) SendPrivateMessage(ctx context.Context, s *Session, to, text string, file *Upload) (models.Message, error) {
	text = strings.TrimSpace(text)
	to = strings.TrimSpace(to)
	if (text == "" && file == nil) || to == "" {
		return models.Message{}, ErrInvalid
	}
	if err := e.checkCanPost(s); err != nil {
		return models.Message{}, err
	}
	att, err := e.attach(ctx, file)
	if err != nil {
		return models.Message{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Message{}, err
	}
	if to == me.Username {
		return models.Message{}, ErrInvalid
	}
	if err := CanPost(e.activeMutes(), me.Username, e.now()); err != nil {
		return models.Message{}, err
	}
	users := e.users()
	i := models.FindUser(users, to)
	if i < 0 {
		return models.Message{}, ErrNotFound
	}
	if err := CanDirectMessage(me.Role, users[i]); err != nil {
		return models.Message{}, err
	}

	key := models.ConversationKey(me.Username, to)
	chats := e.privateChats()
	chat := chats[key]
	msg := newMessage(me.Username, text, att, e.messageDate(chat.Messages))
	chat.Messages = append(chat.Messages, msg)
	chat.Unread = IncrementUnread(chat.Unread, []string{me.Username, to}, me.Username)
	chats[key] = chat
	if _, err := e.commit(models.CollectionPrivateChats, chats); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// EditPrivateMessage replaces the text of a message in conversation key.
func (e *Engine) EditPrivateMessage(s *Session, key string, date models.Millis, text string) (models.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Message{}, err
	}
	chats := e.privateChats()
	chat, ok := chats[key]
	if !ok {
		return models.Message{}, ErrNotFound
	}
	if !me.Role.Privileged() && !isParticipant(key, me.Username) {
		return models.Message{}, ErrForbidden
	}
	i := models.FindMessage(chat.Messages, date)
	if i < 0 {
		return models.Message{}, ErrNotFound
	}
	m := &chat.Messages[i]
	text, changed, err := editText(me, m.From, m.Text, text, m.Type != models.MessageText, m.Deleted)
	if err != nil || !changed {
		return *m, err
	}
	m.Edits = append(m.Edits, models.Edit{Time: e.now(), OldText: m.Text, Editor: me.Username})
	m.Text = text
	if _, err := e.commit(models.CollectionPrivateChats, chats); err != nil {
		return models.Message{}, err
	}
	e.appendModLog(models.ActionEditPrivateMsg, me.Username, key, "from:"+m.From)
	return *m, nil
}

// DeletePrivateMessage tombstones a message. Moderators and the admin only.
func (e *Engine) DeletePrivateMessage(s *Session, key string, date models.Millis) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if err := CanDelete(me.Role); err != nil {
		return err
	}
	chats := e.privateChats()
	chat, ok := chats[key]
	if !ok {
		return ErrNotFound
	}
	i := models.FindMessage(chat.Messages, date)
	if i < 0 {
		return ErrNotFound
	}
	m := &chat.Messages[i]
	if m.Deleted {
		return nil
	}
	m.Tombstone = e.tombstone(me.Username, &models.DeletedData{
		From: m.From,
		Type: string(m.Type),
		Text: m.Text,
		Date: rawJSON(m.Date),
	})
	if _, err := e.commit(models.CollectionPrivateChats, chats); err != nil {
		return err
	}
	e.appendModLog(models.ActionDeletePrivateMsg, me.Username, key, "from:"+m.From)
	return nil
}
