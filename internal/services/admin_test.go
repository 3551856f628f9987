package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/normalize"
	"github.com/AnshRaj112/salvioris-chatsync/internal/remote"
)

func TestSupportMessages(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	bob := p.login("bob", "secret2")
	admin := p.login("Jade", testAdminPassword)

	if _, err := p.engine.SendSupportMessage(ana, "  "); !errors.Is(err, ErrInvalid) {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrInvalid)
	}
	if _, err := p.engine.SendSupportMessage(ana, strings.Repeat("x", maxSupportLength+1)); !errors.Is(err, ErrInvalid) {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrInvalid)
	}
	if _, err := p.engine.SendSupportMessage(ana, "I forgot my password"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.engine.SendSupportMessage(bob, "hello?"); err != nil {
		t.Fatal(err)
	}

	own, _ := p.engine.SupportMessages(ana)
	if len(own) != 1 || own[0].From != "ana" || own[0].Status != models.SupportPending {
		t.Errorf("GOT[%+v], EXPECTED[only ana's pending message]", own)
	}
	all, _ := p.engine.SupportMessages(admin)
	if len(all) != 2 {
		t.Errorf("GOT[%d], EXPECTED[2]", len(all))
	}

	if err := p.engine.MarkSupportAnswered(ana, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrForbidden)
	}
	if err := p.engine.MarkSupportAnswered(admin, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrNotFound)
	}
	if err := p.engine.MarkSupportAnswered(admin, 0); err != nil {
		t.Fatal(err)
	}
	own, _ = p.engine.SupportMessages(ana)
	if !own[0].Read || own[0].Status != models.SupportAnswered {
		t.Errorf("GOT[%+v], EXPECTED[read and answered]", own[0])
	}

	entries, _ := p.engine.ModLog(admin)
	last := entries[len(entries)-1]
	if last.Action != models.ActionAnswerSupport || last.Target != "ana" {
		t.Errorf("GOT[%+v], EXPECTED[answer_support for ana]", last)
	}
}

func TestClearAllData(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	admin := p.login("Jade", testAdminPassword)

	if _, err := p.engine.AddPost(p.ctx, ana, "soon gone", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := p.engine.CreateGroup(ana, "club", models.GroupPublic); err != nil {
		t.Fatal(err)
	}

	if err := p.engine.ClearAllData(ana); !errors.Is(err, ErrForbidden) {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrForbidden)
	}
	if err := p.engine.ClearAllData(admin); err != nil {
		t.Fatal(err)
	}

	users := p.users()
	if len(users) != 1 || users[0].Username != "Jade" || users[0].Role != models.RoleAdmin || users[0].PasswordHash == "" {
		t.Errorf("GOT[%+v], EXPECTED[only the admin account]", users)
	}
	if _, err := p.engine.State(ana); !errors.Is(err, ErrNoSession) {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrNoSession)
	}
	if len(p.groups()) != 0 {
		t.Errorf("GOT[%d] groups, EXPECTED[0]", len(p.groups()))
	}
	raw, _ := p.engine.Snapshot(admin, models.CollectionPosts)
	if len(normalize.Posts(raw)) != 0 {
		t.Errorf("GOT[%s], EXPECTED[no posts]", raw)
	}

	// the admin can still sign in with the configured password
	if _, err := p.engine.Login(p.ctx, "Jade", testAdminPassword, "test-agent"); err != nil {
		t.Errorf("admin login after clear: %v", err)
	}
}

func TestClearAllMessagesKeepsGroups(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	bob := p.login("bob", "secret2")
	admin := p.login("Jade", testAdminPassword)

	if _, err := p.engine.CreateGroup(ana, "club", models.GroupPublic); err != nil {
		t.Fatal(err)
	}
	if _, err := p.engine.OpenGroup(bob, "club"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.engine.SendGroupMessage(p.ctx, ana, "club", "hi", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := p.engine.SendPrivateMessage(p.ctx, ana, "bob", "psst", nil); err != nil {
		t.Fatal(err)
	}

	if err := p.engine.ClearAllMessages(admin); err != nil {
		t.Fatal(err)
	}
	groups := p.groups()
	if len(groups) != 1 || len(groups[0].Members) != 2 || len(groups[0].Messages) != 0 || len(groups[0].Unread) != 0 {
		t.Errorf("GOT[%+v], EXPECTED[club with members and no history]", groups)
	}
	if len(p.chats()) != 0 {
		t.Errorf("GOT[%+v], EXPECTED[no private chats]", p.chats())
	}
	if b, _ := p.engine.Badges(bob); b.Total != 0 {
		t.Errorf("GOT[%+v], EXPECTED[no unread]", b)
	}
	if _, err := p.engine.State(bob); err != nil {
		t.Errorf("users should survive: %v", err)
	}
}

func TestClearModLog(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	admin := p.login("Jade", testAdminPassword)
	if err := p.engine.Mute(admin, "ana", 5); err != nil {
		t.Fatal(err)
	}

	if err := p.engine.ClearModLog(ana); !errors.Is(err, ErrForbidden) {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrForbidden)
	}
	if err := p.engine.ClearModLog(admin); err != nil {
		t.Fatal(err)
	}
	if entries, _ := p.engine.ModLog(admin); len(entries) != 0 {
		t.Errorf("GOT[%+v], EXPECTED[empty log]", entries)
	}
}
