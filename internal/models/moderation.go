package models

// ModAction names a moderation log action.
type ModAction string

const (
	ActionDeletePost        ModAction = "delete_post"
	ActionDeleteReply       ModAction = "delete_reply"
	ActionEditPost          ModAction = "edit_post"
	ActionEditReply         ModAction = "edit_reply"
	ActionDeletePrivateMsg  ModAction = "delete_private_msg"
	ActionEditPrivateMsg    ModAction = "edit_private_msg"
	ActionDeleteGroupMsg    ModAction = "delete_group_msg"
	ActionEditGroupMsg      ModAction = "edit_group_msg"
	ActionDeleteGroup       ModAction = "delete_group"
	ActionMute              ModAction = "mute"
	ActionUnmute            ModAction = "unmute"
	ActionDeleteUser        ModAction = "delete_user"
	ActionPromoteModerator  ModAction = "promote_moderator"
	ActionDemoteModerator   ModAction = "demote_moderator"
	ActionTogglePin         ModAction = "toggle_pin"
	ActionFailedAdminLogin  ModAction = "failed_admin_login"
	ActionClearFailedLogins ModAction = "clear_failed_admin_attempts"
	ActionClearAllData      ModAction = "clear_all_data"
	ActionClearAllMessages  ModAction = "clear_all_messages"
	ActionAnswerSupport     ModAction = "answer_support"
)

// ModLogEntry is append-only.
type ModLogEntry struct {
	Time    Millis    `json:"time"`
	Action  ModAction `json:"action"`
	Actor   string    `json:"actor"`
	Target  string    `json:"target,omitempty"`
	Details string    `json:"details,omitempty"`
}

// MuteEntry silences a user until Until; nil means permanent.
type MuteEntry struct {
	Username string  `json:"username"`
	Until    *Millis `json:"until"`
}

// Active reports whether the mute is still in force at now. A missing or
// zero until is permanent.
func (m MuteEntry) Active(now Millis) bool {
	return m.Until == nil || *m.Until == 0 || *m.Until > now
}

// FailedAttempt records a failed login against the reserved admin account.
// The attempted password is never stored.
type FailedAttempt struct {
	Time              Millis `json:"time"`
	AttemptedUsername string `json:"attemptedUsername"`
	UserAgent         string `json:"ua,omitempty"`
}
