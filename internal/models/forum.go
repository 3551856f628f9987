package models

import "encoding/json"

// AttachmentType distinguishes inline images from other files.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "img"
	AttachmentFile  AttachmentType = "file"
)

// Attachment carries either a data URI or an uploaded URL in Payload.
type Attachment struct {
	Type    AttachmentType `json:"type"`
	Payload string         `json:"payload"`
}

// Edit is one entry of an append-only edit history.
type Edit struct {
	Time    Millis `json:"time"`
	OldText string `json:"oldText"`
	Editor  string `json:"editor"`
}

// DeletedData preserves tombstoned content for privileged viewers.
type DeletedData struct {
	User string          `json:"user,omitempty"`
	From string          `json:"from,omitempty"`
	Type string          `json:"type,omitempty"`
	Text string          `json:"text"`
	Date json.RawMessage `json:"date,omitempty"`
}

// Tombstone marks soft-deleted content.
type Tombstone struct {
	Deleted     bool         `json:"_deleted,omitempty"`
	DeletedBy   string       `json:"_deletedBy,omitempty"`
	DeletedAt   Millis       `json:"_deletedAt,omitempty"`
	DeletedData *DeletedData `json:"_deletedData,omitempty"`
}

// Reply is a post comment. Replies are addressed by Date within their post.
type Reply struct {
	User       string      `json:"user"`
	Avatar     string      `json:"avatar"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Upvoters   []string    `json:"upvoters,omitempty"`
	Downvoters []string    `json:"downvoters,omitempty"`
	Date       Millis      `json:"date"`
	Edits      []Edit      `json:"edits,omitempty"`
	Tombstone
}

type Post struct {
	ID         Millis      `json:"id"`
	User       string      `json:"user"`
	Avatar     string      `json:"avatar"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Replies    []Reply     `json:"replies"`
	Upvoters   []string    `json:"upvoters,omitempty"`
	Downvoters []string    `json:"downvoters,omitempty"`
	IsPinned   bool        `json:"isPinned,omitempty"`
	Date       string      `json:"date"` // ISO-8601
	Edits      []Edit      `json:"edits,omitempty"`
	Tombstone
}

// Score is upvotes minus downvotes.
func (p Post) Score() int {
	return len(p.Upvoters) - len(p.Downvoters)
}

// FindPost returns the index of the post with id, or -1.
func FindPost(posts []Post, id Millis) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

// FindReply returns the index of the reply with date, or -1.
func FindReply(replies []Reply, date Millis) int {
	for i := range replies {
		if replies[i].Date == date {
			return i
		}
	}
	return -1
}
