package models

type SupportStatus string

const (
	SupportPending  SupportStatus = "pending"
	SupportAnswered SupportStatus = "answered"
)

// SupportMessage is a note to the administrator, kept in the local profile.
type SupportMessage struct {
	From   string        `json:"from"`
	Avatar string        `json:"avatar"`
	Text   string        `json:"text"`
	Date   Millis        `json:"date"`
	Read   bool          `json:"read"`
	Status SupportStatus `json:"status"`
}
