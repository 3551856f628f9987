package services

import (
	"context"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/pkg/utils"
)

// ParsePrivacy maps a request value to a group privacy. Anything but
// "private" is public.
func ParsePrivacy(s string) models.GroupPrivacy {
	if strings.EqualFold(strings.TrimSpace(s), string(models.GroupPrivate)) {
		return models.GroupPrivate
	}
	return models.GroupPublic
}

// findGroupFold looks a group up by name ignoring case.
func findGroupFold(groups []models.Group, name string) int {
	for i := range groups {
		if strings.EqualFold(groups[i].Name, name) {
			return i
		}
	}
	return -1
}

// CreateGroup creates a group with the session user as its only member.
// Names are unique ignoring case.
func (e *Engine) CreateGroup(s *Session, name string, privacy models.GroupPrivacy) (models.Group, error) {
	name, err := utils.ValidateGroupName(name)
	if err != nil {
		return models.Group{}, err
	}
	if privacy != models.GroupPrivate {
		privacy = models.GroupPublic
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Group{}, err
	}
	groups := e.groups()
	if findGroupFold(groups, name) >= 0 {
		return models.Group{}, ErrDuplicateGroup
	}
	g := models.Group{
		Name:     name,
		Privacy:  privacy,
		Members:  []string{me.Username},
		Messages: []models.Message{},
		Unread:   map[string]int{},
	}
	if _, err := e.commit(models.CollectionGroups, append(groups, g)); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// joinable reports whether me may enter g, and whether doing so adds me as a member.
func joinable(g models.Group, me models.User) (ok, join bool) {
	switch {
	case g.HasMember(me.Username):
		return true, false
	case g.Privacy == models.GroupPublic:
		return true, true
	default:
		return false, false
	}
}

// OpenGroup makes the group active for the session. Opening a public group
// joins it; private groups are members only.
func (e *Engine) OpenGroup(s *Session, name string) (models.Group, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Group{}, err
	}
	groups := e.groups()
	i := models.FindGroup(groups, name)
	if i < 0 {
		return models.Group{}, ErrNotFound
	}
	g := &groups[i]
	ok, join := joinable(*g, me)
	if !ok {
		return models.Group{}, ErrForbidden
	}
	if join {
		g.Members = append(g.Members, me.Username)
	}
	var reset bool
	g.Unread, reset = ResetUnread(g.Unread, me.Username)
	if join || reset {
		if _, err := e.commit(models.CollectionGroups, groups); err != nil {
			return models.Group{}, err
		}
	}

	s.activeGroup = g.Name
	e.emitBadges(s)
	e.emitSession(s)
	return *g, nil
}

// SendGroupMessage appends a message to group name and increments every other
// member's unread count.
func (e *Engine) SendGroupMessage(ctx context.Context, s *Session, name, text string, file *Upload) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && file == nil {
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
	if err := CanPost(e.activeMutes(), me.Username, e.now()); err != nil {
		return models.Message{}, err
	}
	if name == "" {
		name = s.activeGroup
	}
	groups := e.groups()
	i := models.FindGroup(groups, name)
	if i < 0 {
		return models.Message{}, ErrNotFound
	}
	g := &groups[i]
	ok, join := joinable(*g, me)
	if !ok {
		return models.Message{}, ErrForbidden
	}
	if join {
		g.Members = append(g.Members, me.Username)
	}

	msg := newMessage(me.Username, text, att, e.messageDate(g.Messages))
	g.Messages = append(g.Messages, msg)
	g.Unread = IncrementUnread(g.Unread, g.Members, me.Username)
	if _, err := e.commit(models.CollectionGroups, groups); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// AddGroupMember adds target to a private group the session user belongs to.
func (e *Engine) AddGroupMember(s *Session, name, target string) error {
	target = strings.TrimSpace(target)
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	groups := e.groups()
	i := models.FindGroup(groups, name)
	if i < 0 {
		return ErrNotFound
	}
	g := &groups[i]
	if g.Privacy != models.GroupPrivate {
		return ErrNotPrivate
	}
	if !g.HasMember(me.Username) && !me.Role.Privileged() {
		return ErrForbidden
	}
	if models.FindUser(e.users(), target) < 0 {
		return ErrNotFound
	}
	if g.HasMember(target) {
		return &utils.ValidationError{Field: "username", Message: target + " is already a member"}
	}
	g.Members = append(g.Members, target)
	_, err = e.commit(models.CollectionGroups, groups)
	return err
}

// EditGroupMessage replaces the text of a message in group name.
func (e *Engine) EditGroupMessage(s *Session, name string, date models.Millis, text string) (models.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Message{}, err
	}
	groups := e.groups()
	i := models.FindGroup(groups, name)
	if i < 0 {
		return models.Message{}, ErrNotFound
	}
	j := models.FindMessage(groups[i].Messages, date)
	if j < 0 {
		return models.Message{}, ErrNotFound
	}
	m := &groups[i].Messages[j]
	text, changed, err := editText(me, m.From, m.Text, text, m.Type != models.MessageText, m.Deleted)
	if err != nil || !changed {
		return *m, err
	}
	m.Edits = append(m.Edits, models.Edit{Time: e.now(), OldText: m.Text, Editor: me.Username})
	m.Text = text
	if _, err := e.commit(models.CollectionGroups, groups); err != nil {
		return models.Message{}, err
	}
	e.appendModLog(models.ActionEditGroupMsg, me.Username, groups[i].Name, "from:"+m.From)
	return *m, nil
}

// DeleteGroupMessage tombstones a group message. Moderators and the admin only.
func (e *Engine) DeleteGroupMessage(s *Session, name string, date models.Millis) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if err := CanDelete(me.Role); err != nil {
		return err
	}
	groups := e.groups()
	i := models.FindGroup(groups, name)
	if i < 0 {
		return ErrNotFound
	}
	j := models.FindMessage(groups[i].Messages, date)
	if j < 0 {
		return ErrNotFound
	}
	m := &groups[i].Messages[j]
	if m.Deleted {
		return nil
	}
	m.Tombstone = e.tombstone(me.Username, &models.DeletedData{
		From: m.From,
		Type: string(m.Type),
		Text: m.Text,
		Date: rawJSON(m.Date),
	})
	if _, err := e.commit(models.CollectionGroups, groups); err != nil {
		return err
	}
	e.appendModLog(models.ActionDeleteGroupMsg, me.Username, groups[i].Name, "from:"+m.From)
	return nil
}

// DeleteGroup removes a group and its history. Moderators and the admin only.
func (e *Engine) DeleteGroup(s *Session, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if !CanModerate(me.Role) {
		return ErrForbidden
	}
	groups := e.groups()
	i := models.FindGroup(groups, name)
	if i < 0 {
		return ErrNotFound
	}
	groups = append(groups[:i], groups[i+1:]...)
	if _, err := e.commit(models.CollectionGroups, groups); err != nil {
		return err
	}
	for _, other := range e.sessions {
		if other.activeGroup == name {
			other.activeGroup = ""
		}
	}
	e.appendModLog(models.ActionDeleteGroup, me.Username, name, "")
	return nil
}
