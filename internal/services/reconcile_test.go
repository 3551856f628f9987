package services

import (
	"testing"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/normalize"
	"github.com/AnshRaj112/salvioris-chatsync/internal/remote"
)

func nextEvent(t *testing.T, ch <-chan Event, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("event stream closed")
			}
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestRemoteChangesNotifyAbsentViewer(t *testing.T) {
	shared := remote.NewMemoryStore()
	a := newProfile(t, shared)
	b := newProfile(t, shared)

	ana := a.login("ana", "secret1")
	a.flush()
	bob := b.login("bob", "secret2")
	b.flush()
	a.engine.Refresh(a.ctx, ana, models.CollectionUsers)

	events, unsubscribe := b.engine.Hub().Subscribe(bob.Token)
	defer unsubscribe()

	if _, err := a.engine.SendPrivateMessage(a.ctx, ana, "bob", "psst", nil); err != nil {
		t.Fatal(err)
	}
	note := nextEvent(t, events, func(ev Event) bool { return ev.Type == EventNotify })
	if note.Collection != models.CollectionPrivateChats || note.Pulse != "private" || note.Pending != 1 {
		t.Errorf("GOT[%+v], EXPECTED[private notification, pending 1]", note)
	}
	badges := nextEvent(t, events, func(ev Event) bool { return ev.Type == EventBadges && ev.Badges.Private > 0 })
	if badges.Badges.Private != 1 {
		t.Errorf("GOT[%+v], EXPECTED[private 1]", badges.Badges)
	}

	if err := b.engine.ShowView(b.ctx, bob, ViewPrivate); err != nil {
		t.Fatal(err)
	}
	render := nextEvent(t, events, func(ev Event) bool {
		return ev.Type == EventRender && ev.Collection == models.CollectionPrivateChats
	})
	chat := normalize.PrivateChats(render.Value)[models.ConversationKey("ana", "bob")]
	if len(chat.Messages) != 1 || chat.Messages[0].Text != "psst" {
		t.Errorf("GOT[%s], EXPECTED[the message from ana]", render.Value)
	}
	if state, _ := b.engine.State(bob); state.Pending != 0 {
		t.Errorf("GOT[%d], EXPECTED[pending reset by opening a message view]", state.Pending)
	}

	if _, err := a.engine.AddPost(a.ctx, ana, "news", nil); err != nil {
		t.Fatal(err)
	}
	note = nextEvent(t, events, func(ev Event) bool { return ev.Type == EventNotify })
	if note.Pulse != "forum" {
		t.Errorf("GOT[%s], EXPECTED[forum]", note.Pulse)
	}
	if err := b.engine.Focus(bob, true); err != nil {
		t.Fatal(err)
	}
	if state, _ := b.engine.State(bob); state.Pending != 0 {
		t.Errorf("GOT[%d], EXPECTED[pending reset on focus]", state.Pending)
	}
}

func TestVisibleChangesRender(t *testing.T) {
	shared := remote.NewMemoryStore()
	a := newProfile(t, shared)
	b := newProfile(t, shared)

	ana := a.login("ana", "secret1")
	a.flush()
	bob := b.login("bob", "secret2")
	b.flush()

	events, unsubscribe := b.engine.Hub().Subscribe(bob.Token)
	defer unsubscribe()

	if _, err := a.engine.AddPost(a.ctx, ana, "visible", nil); err != nil {
		t.Fatal(err)
	}
	render := nextEvent(t, events, func(ev Event) bool {
		return ev.Type == EventRender && ev.Collection == models.CollectionPosts && len(normalize.Posts(ev.Value)) == 1
	})
	if render.View != ViewForum {
		t.Errorf("GOT[%s], EXPECTED[forum]", render.View)
	}
	if state, _ := b.engine.State(bob); state.Pending != 0 {
		t.Errorf("GOT[%d], EXPECTED[no notification for a visible change]", state.Pending)
	}
}

func TestAdminViewRequiresAdmin(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	if err := p.engine.ShowView(p.ctx, ana, ViewAdmin); err != ErrForbidden {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrForbidden)
	}
	if _, err := p.engine.Snapshot(ana, models.CollectionModLog); err != ErrForbidden {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrForbidden)
	}
}

func TestTypingIsDebounced(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	bob := p.login("bob", "secret2")
	p.engine.mu.Lock()
	p.engine.cfg.TypingTTL = 200 * time.Millisecond
	p.engine.mu.Unlock()

	events, unsubscribe := p.engine.Hub().Subscribe(bob.Token)
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		if err := p.engine.Typing(ana, TypingForum, ""); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if user, ok := p.engine.TypingUser(TypingKey(TypingForum, "")); !ok || user != "ana" {
		t.Errorf("GOT[%q %v], EXPECTED[ana typing]", user, ok)
	}

	started := 0
	for {
		ev := nextEvent(t, events, func(ev Event) bool { return ev.Type == EventTyping })
		if ev.Typing.Active {
			started++
			continue
		}
		if ev.Typing.User != "ana" || ev.Typing.Key != "typing_forum" {
			t.Errorf("GOT[%+v], EXPECTED[ana stopped in the forum]", ev.Typing)
		}
		break
	}
	if started != 1 {
		t.Errorf("GOT[%d] start events, EXPECTED[1]", started)
	}
	if _, ok := p.engine.TypingUser("typing_forum"); ok {
		t.Error("typing key should be cleared after expiry")
	}

	if err := p.engine.Typing(ana, TypingPrivate, "bob"); err != nil {
		t.Fatal(err)
	}
	if user, ok := p.engine.TypingUser("typing_private_ana_bob"); !ok || user != "ana" {
		t.Errorf("GOT[%q %v], EXPECTED[ana typing to bob]", user, ok)
	}
	if err := p.engine.Typing(ana, TypingGroup, ""); err != ErrInvalid {
		t.Errorf("GOT[%v], EXPECTED[%v]", err, ErrInvalid)
	}
}

func TestTypingHandsOverBetweenUsers(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	bob := p.login("bob", "secret2")
	carl := p.login("carl", "secret3")
	p.engine.mu.Lock()
	p.engine.cfg.TypingTTL = 200 * time.Millisecond
	p.engine.mu.Unlock()

	events, unsubscribe := p.engine.Hub().Subscribe(carl.Token)
	defer unsubscribe()

	if err := p.engine.Typing(ana, TypingForum, ""); err != nil {
		t.Fatal(err)
	}
	if err := p.engine.Typing(bob, TypingForum, ""); err != nil {
		t.Fatal(err)
	}

	want := []TypingEvent{
		{Key: "typing_forum", User: "ana", Active: true},
		{Key: "typing_forum", User: "ana", Active: false},
		{Key: "typing_forum", User: "bob", Active: true},
		{Key: "typing_forum", User: "bob", Active: false},
	}
	for i, w := range want {
		ev := nextEvent(t, events, func(ev Event) bool { return ev.Type == EventTyping })
		if *ev.Typing != w {
			t.Errorf("event %d GOT[%+v], EXPECTED[%+v]", i, *ev.Typing, w)
		}
	}
}

func TestOnlineUsers(t *testing.T) {
	p := newProfile(t, remote.NewMemoryStore())
	ana := p.login("ana", "secret1")
	bob := p.login("bob", "secret2")

	if err := p.engine.UpdateActivity(ana); err != nil {
		t.Fatal(err)
	}
	p.advance(time.Minute)
	if err := p.engine.UpdateActivity(bob); err != nil {
		t.Fatal(err)
	}

	online, err := p.engine.OnlineUsers(ana)
	if err != nil {
		t.Fatal(err)
	}
	if len(online) != 2 || online[0].Username != "bob" || online[0].PasswordHash != "" {
		t.Errorf("GOT[%+v], EXPECTED[bob then ana, without hashes]", online)
	}

	p.advance(90 * time.Second)
	if online, _ = p.engine.OnlineUsers(ana); len(online) != 1 || online[0].Username != "bob" {
		t.Errorf("GOT[%+v], EXPECTED[only bob within the window]", online)
	}
}
