package services

import (
	"testing"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

func TestIncrementUnreadSkipsSender(t *testing.T) {
	unread := IncrementUnread(nil, []string{"ana", "bob", "carl", "bob"}, "ana")

	if unread["ana"] != 0 {
		t.Errorf("sender GOT[%d], EXPECTED[0]", unread["ana"])
	}
	if unread["bob"] != 1 || unread["carl"] != 1 {
		t.Errorf("GOT[%v], EXPECTED[bob:1 carl:1]", unread)
	}

	unread = IncrementUnread(unread, []string{"ana", "bob"}, "bob")
	if unread["ana"] != 1 || unread["bob"] != 1 {
		t.Errorf("GOT[%v], EXPECTED[ana:1 bob:1]", unread)
	}
}

func TestIncrementUnreadNeverNegative(t *testing.T) {
	unread := IncrementUnread(map[string]int{"bob": -4}, []string{"ana", "bob"}, "ana")
	if unread["bob"] != 1 {
		t.Errorf("GOT[%d], EXPECTED[1]", unread["bob"])
	}
}

func TestResetUnread(t *testing.T) {
	unread, changed := ResetUnread(map[string]int{"ana": 3, "bob": 2}, "ana")
	if !changed || unread["ana"] != 0 || unread["bob"] != 2 {
		t.Errorf("GOT[%v changed=%v], EXPECTED[ana:0 bob:2 changed=true]", unread, changed)
	}
	if _, changed := ResetUnread(unread, "ana"); changed {
		t.Error("resetting a zero count should report no change")
	}
	if unread, _ := ResetUnread(nil, "ana"); unread == nil {
		t.Error("expected a map to be allocated")
	}
}

func TestComputeBadges(t *testing.T) {
	chats := models.PrivateChats{
		"ana_bob":  {Unread: map[string]int{"ana": 2, "bob": 0}},
		"ana_carl": {Unread: map[string]int{"ana": 1}},
		"bob_carl": {Unread: map[string]int{"bob": 5}},
	}
	groups := []models.Group{
		{Name: "g1", Unread: map[string]int{"ana": 4}},
		{Name: "g2", Unread: map[string]int{"ana": 0}},
	}
	posts := []models.Post{
		{ID: 1, Date: "2024-01-01T00:00:00.000Z"},
		{ID: 2, Date: "2024-01-03T00:00:00.000Z"},
		{ID: 3, Date: "2024-01-04T00:00:00.000Z"},
	}
	lastSeen := models.ParseISO("2024-01-02T00:00:00.000Z")

	got := ComputeBadges(chats, groups, posts, "ana", lastSeen)
	want := Badges{Private: 3, Groups: 4, Forum: 2, Total: 7}
	if got != want {
		t.Errorf("GOT[%+v], EXPECTED[%+v]", got, want)
	}
}
