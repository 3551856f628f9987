package models

import (
	"sort"
	"strings"
)

// MessageType is the content kind of a chat message.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "img"
	MessageFile  MessageType = "file"
)

// Message is shared by private chats and groups. Date is unique per conversation
// and addresses the message for edits and deletes.
type Message struct {
	From  string      `json:"from"`
	Type  MessageType `json:"type"`
	Text  string      `json:"text"`
	Date  Millis      `json:"date"`
	Edits []Edit      `json:"edits,omitempty"`
	Tombstone
}

// PrivateChat is one two-party conversation.
type PrivateChat struct {
	Messages []Message      `json:"messages"`
	Unread   map[string]int `json:"unread"`
}

// PrivateChats is keyed by ConversationKey.
type PrivateChats map[string]PrivateChat

// GroupPrivacy controls who may join a group.
type GroupPrivacy string

const (
	GroupPublic  GroupPrivacy = "public"
	GroupPrivate GroupPrivacy = "private"
)

type Group struct {
	Name     string         `json:"name"`
	Privacy  GroupPrivacy   `json:"privacy"`
	Members  []string       `json:"members"`
	Messages []Message      `json:"messages"`
	Unread   map[string]int `json:"unread"`
}

// HasMember reports whether username belongs to the group.
func (g Group) HasMember(username string) bool {
	for _, m := range g.Members {
		if m == username {
			return true
		}
	}
	return false
}

// ConversationKey is the order-independent identifier of a private chat.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// FindGroup returns the index of the group with exactly name, or -1.
func FindGroup(groups []Group, name string) int {
	for i := range groups {
		if groups[i].Name == name {
			return i
		}
	}
	return -1
}

// FindMessage returns the index of the message with date, or -1.
func FindMessage(messages []Message, date Millis) int {
	for i := range messages {
		if messages[i].Date == date {
			return i
		}
	}
	return -1
}
