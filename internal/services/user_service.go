package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/pkg/utils"
)

// saveUsers enforces the admin singleton and writes the users collection.
// The reserved account always exists with the admin role and the configured
// password; any other admin is demoted and duplicates of the reserved name dropped.
func (e *Engine) saveUsers(users []models.User) ([]models.User, error) {
	users, err := e.enforceAdmin(users)
	if err != nil {
		return nil, err
	}
	if _, err := e.commit(models.CollectionUsers, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (e *Engine) enforceAdmin(users []models.User) ([]models.User, error) {
	name := e.cfg.AdminUsername
	out := make([]models.User, 0, len(users)+1)
	seenAdmin := false
	for _, u := range users {
		if u.Username == name {
			if seenAdmin {
				continue
			}
			seenAdmin = true
		} else if u.Role == models.RoleAdmin {
			u.Role = models.RoleUser
		}
		out = append(out, u)
	}

	if !seenAdmin {
		out = append([]models.User{{
			Username:  name,
			Avatar:    models.DefaultAvatars[0],
			Role:      models.RoleAdmin,
			CreatedAt: e.now(),
		}}, out...)
	}

	admin := &out[models.FindUser(out, name)]
	admin.Role = models.RoleAdmin
	admin.Password = ""
	if admin.Avatar == "" {
		admin.Avatar = models.DefaultAvatars[0]
	}
	if e.cfg.AdminPassword != "" && (admin.PasswordHash == "" || admin.PasswordHash != e.verifiedAdminHash) {
		ok, upgrade := utils.CheckPassword(e.cfg.AdminPassword, admin.PasswordHash, "")
		if !ok || upgrade {
			hash, err := utils.HashPassword(e.cfg.AdminPassword)
			if err != nil {
				return nil, err
			}
			admin.PasswordHash = hash
		}
		e.verifiedAdminHash = admin.PasswordHash
	}
	return out, nil
}

// UpdateActivity stamps the session user's lastActive.
func (e *Engine) UpdateActivity(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	users := e.users()
	users[models.FindUser(users, me.Username)].LastActive = e.now()
	users, err = e.saveUsers(users)
	if err != nil {
		return err
	}
	i := models.FindUser(users, me.Username)
	if err := cache.SetJSON(e.cache, KeyCurrentUser, users[i].Public()); err != nil {
		log.Printf("⚠️  failed to store current user: %v", err)
	}
	return nil
}

// OnlineUsers lists users active within the online window, most recent first.
func (e *Engine) OnlineUsers(s *Session) ([]models.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.actor(s); err != nil {
		return nil, err
	}
	cutoff := e.now() - models.Millis(e.cfg.OnlineWindow/time.Millisecond)

	var online []models.User
	for _, u := range e.users() {
		if u.LastActive > cutoff {
			online = append(online, u.Public())
		}
	}
	sort.SliceStable(online, func(i, j int) bool { return online[i].LastActive > online[j].LastActive })
	return online, nil
}

// ChangePassword replaces the session user's password. The admin password
// comes from configuration and cannot be changed here.
func (e *Engine) ChangePassword(s *Session, newPassword, confirm string) error {
	newPassword = strings.TrimSpace(newPassword)
	confirm = strings.TrimSpace(confirm)
	if newPassword == "" || confirm == "" {
		return &utils.ValidationError{Field: "password", Message: "Both password fields are required"}
	}
	if newPassword != confirm {
		return &utils.ValidationError{Field: "confirm", Message: "Passwords do not match"}
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if me.Username == e.cfg.AdminUsername {
		return ErrForbidden
	}
	users := e.users()
	i := models.FindUser(users, me.Username)
	users[i].PasswordHash = hash
	users[i].Password = ""
	_, err = e.saveUsers(users)
	return err
}

// SetAllowDMs stores whether the session user accepts direct messages.
func (e *Engine) SetAllowDMs(s *Session, allow bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	users := e.users()
	i := models.FindUser(users, me.Username)
	users[i].AllowDMs = &allow
	_, err = e.saveUsers(users)
	return err
}

// ProfileUpdate carries the optional profile fields to change.
type ProfileUpdate struct {
	Avatar    *Upload
	AvatarURL *string
	Bio       *string
}

// UpdateProfile changes the session user's avatar and bio.
func (e *Engine) UpdateProfile(ctx context.Context, s *Session, upd ProfileUpdate) (models.User, error) {
	var avatar string
	switch {
	case upd.Avatar != nil:
		att, err := e.attach(ctx, upd.Avatar)
		if err != nil {
			return models.User{}, err
		}
		avatar = att.Payload
	case upd.AvatarURL != nil:
		avatar = strings.TrimSpace(*upd.AvatarURL)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.User{}, err
	}
	users := e.users()
	i := models.FindUser(users, me.Username)
	if avatar != "" {
		users[i].Avatar = avatar
	}
	if upd.Bio != nil {
		users[i].Bio = strings.TrimSpace(*upd.Bio)
	}
	if users, err = e.saveUsers(users); err != nil {
		return models.User{}, err
	}
	updated := users[models.FindUser(users, me.Username)].Public()
	if err := cache.SetJSON(e.cache, KeyCurrentUser, updated); err != nil {
		log.Printf("⚠️  failed to store current user: %v", err)
	}
	return updated, nil
}

// DeleteUser removes target's account and group memberships.
// The admin and the acting user cannot be deleted.
func (e *Engine) DeleteUser(s *Session, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if !CanModerate(me.Role) || target == me.Username {
		return ErrForbidden
	}
	users := e.users()
	i := models.FindUser(users, target)
	if i < 0 {
		return ErrNotFound
	}
	if users[i].Role == models.RoleAdmin || target == e.cfg.AdminUsername {
		return ErrForbidden
	}

	users = append(users[:i], users[i+1:]...)
	if _, err := e.saveUsers(users); err != nil {
		return err
	}

	groups := e.groups()
	for g := range groups {
		members := groups[g].Members[:0]
		for _, m := range groups[g].Members {
			if m != target {
				members = append(members, m)
			}
		}
		groups[g].Members = members
	}
	if _, err := e.commit(models.CollectionGroups, groups); err != nil {
		return err
	}

	e.appendModLog(models.ActionDeleteUser, me.Username, target, "")
	return nil
}

// SetModerator promotes target to moderator or demotes them to user. Admin only.
func (e *Engine) SetModerator(s *Session, target string, moderator bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if !CanManageRoles(me.Role) {
		return ErrForbidden
	}
	users := e.users()
	i := models.FindUser(users, target)
	if i < 0 {
		return ErrNotFound
	}
	if users[i].Role == models.RoleAdmin {
		return ErrForbidden
	}

	action := models.ActionDemoteModerator
	users[i].Role = models.RoleUser
	if moderator {
		action = models.ActionPromoteModerator
		users[i].Role = models.RoleModerator
	}
	if _, err := e.saveUsers(users); err != nil {
		return err
	}
	e.appendModLog(action, me.Username, target, "")
	return nil
}
