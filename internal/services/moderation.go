package services

import (
	"fmt"
	"log"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

// CanPost fails with ErrMuted while username has an active mute.
func CanPost(mutes []models.MuteEntry, username string, now models.Millis) error {
	for _, m := range mutes {
		if m.Username == username && m.Active(now) {
			return ErrMuted
		}
	}
	return nil
}

// CanEdit allows the owner and privileged roles.
func CanEdit(actor, owner string, actorRole models.Role) error {
	if actor == owner || actorRole.Privileged() {
		return nil
	}
	return ErrForbidden
}

// CanEditContent refuses content that carries an attachment or is not text.
func CanEditContent(hasAttachment bool) error {
	if hasAttachment {
		return ErrNotEditable
	}
	return nil
}

// CanDelete allows admins and moderators.
func CanDelete(actorRole models.Role) error {
	if actorRole.Privileged() {
		return nil
	}
	return ErrForbidden
}

// CanMute allows privileged actors to silence anyone but themselves and the admin.
func CanMute(actor string, actorRole models.Role, target string, targetRole models.Role) error {
	if !actorRole.Privileged() || targetRole == models.RoleAdmin || target == actor {
		return ErrForbidden
	}
	return nil
}

// CanModerate covers pinning, group deletion and user deletion.
func CanModerate(role models.Role) bool {
	return role.Privileged()
}

// CanManageRoles is reserved to the admin.
func CanManageRoles(role models.Role) bool {
	return role == models.RoleAdmin
}

// CanDirectMessage respects the recipient's allowDMs preference.
// Privileged senders are not bound by it.
func CanDirectMessage(senderRole models.Role, target models.User) error {
	if senderRole.Privileged() || target.AcceptsDirectMessages() {
		return nil
	}
	return ErrDMsDisabled
}

// activeMutes drops expired entries and persists the filtered list when anything expired.
func (e *Engine) activeMutes() []models.MuteEntry {
	now := e.now()
	all := e.muted()
	active := make([]models.MuteEntry, 0, len(all))
	for _, m := range all {
		if m.Active(now) {
			active = append(active, m)
		}
	}
	if len(active) != len(all) {
		if _, err := e.commit(models.CollectionMuted, active); err != nil {
			log.Printf("⚠️  failed to prune expired mutes: %v", err)
		}
	}
	return active
}

// ActiveMutes returns the mutes still in force.
func (e *Engine) ActiveMutes(s *Session) ([]models.MuteEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.actor(s); err != nil {
		return nil, err
	}
	return e.activeMutes(), nil
}

// Mute silences target for minutes; zero or fewer minutes mutes permanently.
func (e *Engine) Mute(s *Session, target string, minutes int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	var targetRole models.Role
	users := e.users()
	if i := models.FindUser(users, target); i >= 0 {
		targetRole = users[i].Role
	}
	if err := CanMute(me.Username, me.Role, target, targetRole); err != nil {
		return err
	}

	entry := models.MuteEntry{Username: target}
	details := "Permanent mute"
	if minutes > 0 {
		until := e.now() + models.Millis(minutes)*60000
		entry.Until = &until
		details = fmt.Sprintf("Muted for %d minutes", minutes)
	}

	list := withoutMute(e.activeMutes(), target)
	if _, err := e.commit(models.CollectionMuted, append(list, entry)); err != nil {
		return err
	}
	e.appendModLog(models.ActionMute, me.Username, target, details)
	return nil
}

// Unmute lifts any mute on target.
func (e *Engine) Unmute(s *Session, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if !CanModerate(me.Role) {
		return ErrForbidden
	}
	if _, err := e.commit(models.CollectionMuted, withoutMute(e.activeMutes(), target)); err != nil {
		return err
	}
	e.appendModLog(models.ActionUnmute, me.Username, target, "Manual unmute")
	return nil
}

func withoutMute(list []models.MuteEntry, username string) []models.MuteEntry {
	out := make([]models.MuteEntry, 0, len(list))
	for _, m := range list {
		if m.Username != username {
			out = append(out, m)
		}
	}
	return out
}

// ModLog returns the moderation log, oldest first.
func (e *Engine) ModLog(s *Session) ([]models.ModLogEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return nil, err
	}
	if !CanModerate(me.Role) {
		return nil, ErrForbidden
	}
	return e.modLog(), nil
}
