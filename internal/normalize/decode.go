package normalize

import (
	"encoding/json"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

func decode[T any](c models.Collection, raw []byte) T {
	var v T
	_ = json.Unmarshal(Normalize(c, raw), &v)
	return v
}

func Users(raw []byte) []models.User {
	return decode[[]models.User](models.CollectionUsers, raw)
}

func Posts(raw []byte) []models.Post {
	return decode[[]models.Post](models.CollectionPosts, raw)
}

func PrivateChats(raw []byte) models.PrivateChats {
	chats := decode[models.PrivateChats](models.CollectionPrivateChats, raw)
	if chats == nil {
		chats = models.PrivateChats{}
	}
	return chats
}

func Groups(raw []byte) []models.Group {
	return decode[[]models.Group](models.CollectionGroups, raw)
}

func ModLog(raw []byte) []models.ModLogEntry {
	return decode[[]models.ModLogEntry](models.CollectionModLog, raw)
}

func Muted(raw []byte) []models.MuteEntry {
	return decode[[]models.MuteEntry](models.CollectionMuted, raw)
}

// Encode marshals a typed collection value and returns its canonical form.
func Encode(c models.Collection, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Normalize(c, data), nil
}
