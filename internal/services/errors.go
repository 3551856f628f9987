package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

var (
	ErrWrongPassword  = errors.New("wrong password")
	ErrNoSession      = errors.New("no active session")
	ErrMuted          = errors.New("user is muted")
	ErrForbidden      = errors.New("not allowed")
	ErrNotFound       = errors.New("not found")
	ErrInvalid        = errors.New("invalid request")
	ErrDMsDisabled    = errors.New("user does not accept direct messages")
	ErrNotPrivate     = errors.New("members can only be added to private groups")
	ErrDuplicateGroup = errors.New("a group with that name already exists")
	ErrNotEditable    = errors.New("only text content can be edited")
	ErrLocalWrite     = errors.New("local write failed")
)

// LockedError is returned while the admin account is locked out.
type LockedError struct {
	Until models.Millis
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("admin account locked until %s", e.Until.Time().UTC().Format(time.RFC3339))
}
