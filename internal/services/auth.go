package services

import (
	"context"
	"crypto/subtle"
	"log"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/pkg/utils"
)

// Login signs username in, registering the account on first use.
// The reserved admin account can only be created with the configured password,
// and every failed attempt against it counts towards the lockout.
func (e *Engine) Login(ctx context.Context, username, password, userAgent string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, &utils.ValidationError{Field: "username", Message: "Username and password are required"}
	}

	// Listeners are not running before the first login, so read users fresh.
	e.remote.PullOnce(ctx, models.CollectionUsers)

	e.mu.Lock()
	s, err := e.login(username, password, userAgent)
	watchCtx := e.baseCtx
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.reconciler.Start(watchCtx)
	if err := e.ShowView(ctx, s, ViewForum); err != nil {
		log.Printf("⚠️  failed to open forum for %s: %v", username, err)
	}
	return s, nil
}

func (e *Engine) login(username, password, userAgent string) (*Session, error) {
	isAdmin := username == e.cfg.AdminUsername
	if isAdmin {
		if locked, until := EvaluateLockout(e.failedAttempts(), e.now()); locked {
			log.Printf("🔒 admin login refused, locked until %d", until)
			return nil, &LockedError{Until: until}
		}
	}

	users := e.users()
	i := models.FindUser(users, username)

	if i < 0 {
		if isAdmin {
			if e.cfg.AdminPassword == "" || subtle.ConstantTimeCompare([]byte(password), []byte(e.cfg.AdminPassword)) != 1 {
				e.recordFailedAdminLogin(username, userAgent)
				return nil, ErrWrongPassword
			}
			// saveUsers creates the admin account
		} else {
			if err := utils.ValidateUsername(username); err != nil {
				return nil, err
			}
			if err := utils.ValidatePassword(password); err != nil {
				return nil, err
			}
			hash, err := utils.HashPassword(password)
			if err != nil {
				return nil, err
			}
			users = append(users, models.User{
				Username:     username,
				PasswordHash: hash,
				Avatar:       models.DefaultAvatars[len(users)%len(models.DefaultAvatars)],
				Role:         models.RoleUser,
				CreatedAt:    e.now(),
			})
		}
		saved, err := e.saveUsers(users)
		if err != nil {
			return nil, err
		}
		users = saved
		i = models.FindUser(users, username)
		log.Printf("✅ Registered %s", username)
	} else {
		ok, upgrade := utils.CheckPassword(password, users[i].PasswordHash, users[i].Password)
		if !ok {
			if isAdmin {
				e.recordFailedAdminLogin(username, userAgent)
			}
			return nil, ErrWrongPassword
		}
		if upgrade {
			hash, err := utils.HashPassword(password)
			if err != nil {
				return nil, err
			}
			users[i].PasswordHash = hash
			users[i].Password = ""
			if users, err = e.saveUsers(users); err != nil {
				return nil, err
			}
			i = models.FindUser(users, username)
			log.Printf("🔐 Upgraded stored credential for %s", username)
		}
	}

	s := e.newSession(users[i])
	log.Printf("✅ %s logged in as %s", username, users[i].Role)
	return s, nil
}
