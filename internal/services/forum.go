package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

// Vote is an up or down vote on a post or reply.
type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

const isoMillis = "2006-01-02T15:04:05.000Z"

// AddPost publishes a forum post. Either text or a file is required.
func (e *Engine) AddPost(ctx context.Context, s *Session, text string, file *Upload) (models.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" && file == nil {
		return models.Post{}, ErrInvalid
	}
	if err := e.checkCanPost(s); err != nil {
		return models.Post{}, err
	}
	att, err := e.attach(ctx, file)
	if err != nil {
		return models.Post{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Post{}, err
	}
	if err := CanPost(e.activeMutes(), me.Username, e.now()); err != nil {
		return models.Post{}, err
	}

	posts := e.posts()
	now := e.now()
	post := models.Post{
		ID:         uniqueMillis(now, func(id models.Millis) bool { return models.FindPost(posts, id) >= 0 }),
		User:       me.Username,
		Avatar:     me.Avatar,
		Text:       text,
		Attachment: att,
		Replies:    []models.Reply{},
		Date:       isoDate(now.Time()),
	}
	if _, err := e.commit(models.CollectionPosts, append(posts, post)); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// checkCanPost fails fast before an upload is attempted for a muted user.
func (e *Engine) checkCanPost(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	return CanPost(e.activeMutes(), me.Username, e.now())
}

// AddReply appends a reply to post postID.
func (e *Engine) AddReply(ctx context.Context, s *Session, postID models.Millis, text string, file *Upload) (models.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" && file == nil {
		return models.Reply{}, ErrInvalid
	}
	if err := e.checkCanPost(s); err != nil {
		return models.Reply{}, err
	}
	att, err := e.attach(ctx, file)
	if err != nil {
		return models.Reply{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Reply{}, err
	}
	if err := CanPost(e.activeMutes(), me.Username, e.now()); err != nil {
		return models.Reply{}, err
	}
	posts := e.posts()
	i := models.FindPost(posts, postID)
	if i < 0 {
		return models.Reply{}, ErrNotFound
	}
	if posts[i].Deleted {
		return models.Reply{}, ErrForbidden
	}

	replies := posts[i].Replies
	reply := models.Reply{
		User:       me.Username,
		Avatar:     me.Avatar,
		Text:       text,
		Attachment: att,
		Date:       uniqueMillis(e.now(), func(d models.Millis) bool { return models.FindReply(replies, d) >= 0 }),
	}
	posts[i].Replies = append(replies, reply)
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return models.Reply{}, err
	}
	return reply, nil
}

// toggleVote applies the forum's voting rule: repeating a vote withdraws it,
// and voting one way removes any vote the other way.
func toggleVote(up, down []string, user string, v Vote) ([]string, []string) {
	if v == VoteDown {
		down, up = toggleVote(down, up, user, VoteUp)
		return up, down
	}
	if contains(up, user) {
		return without(up, user), down
	}
	return append(up, user), without(down, user)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// VotePost toggles the session user's vote on a post.
func (e *Engine) VotePost(s *Session, postID models.Millis, v Vote) (models.Post, error) {
	if v != VoteUp && v != VoteDown {
		return models.Post{}, ErrInvalid
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Post{}, err
	}
	posts := e.posts()
	i := models.FindPost(posts, postID)
	if i < 0 {
		return models.Post{}, ErrNotFound
	}
	posts[i].Upvoters, posts[i].Downvoters = toggleVote(posts[i].Upvoters, posts[i].Downvoters, me.Username, v)
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return models.Post{}, err
	}
	return posts[i], nil
}

// VoteReply toggles the session user's vote on a reply.
func (e *Engine) VoteReply(s *Session, postID, replyDate models.Millis, v Vote) (models.Reply, error) {
	if v != VoteUp && v != VoteDown {
		return models.Reply{}, ErrInvalid
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Reply{}, err
	}
	posts, i, j, err := e.findReply(postID, replyDate)
	if err != nil {
		return models.Reply{}, err
	}
	r := &posts[i].Replies[j]
	r.Upvoters, r.Downvoters = toggleVote(r.Upvoters, r.Downvoters, me.Username, v)
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return models.Reply{}, err
	}
	return *r, nil
}

func (e *Engine) findReply(postID, replyDate models.Millis) ([]models.Post, int, int, error) {
	posts := e.posts()
	i := models.FindPost(posts, postID)
	if i < 0 {
		return nil, 0, 0, ErrNotFound
	}
	j := models.FindReply(posts[i].Replies, replyDate)
	if j < 0 {
		return nil, 0, 0, ErrNotFound
	}
	return posts, i, j, nil
}

// TogglePin pins or unpins a post. Moderators and the admin only.
func (e *Engine) TogglePin(s *Session, postID models.Millis) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return false, err
	}
	if !CanModerate(me.Role) {
		return false, ErrForbidden
	}
	posts := e.posts()
	i := models.FindPost(posts, postID)
	if i < 0 {
		return false, ErrNotFound
	}
	posts[i].IsPinned = !posts[i].IsPinned
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return false, err
	}
	e.appendModLog(models.ActionTogglePin, me.Username, postTarget(postID), posts[i].User)
	return posts[i].IsPinned, nil
}

func postTarget(id models.Millis) string {
	return fmt.Sprintf("post_%d", id)
}

// editText validates an edit and returns the trimmed new text. changed is
// false when the text is identical and nothing should be written.
func editText(actor models.User, owner, oldText, newText string, hasAttachment, deleted bool) (string, bool, error) {
	if err := CanEdit(actor.Username, owner, actor.Role); err != nil {
		return "", false, err
	}
	if deleted {
		return "", false, ErrNotEditable
	}
	if err := CanEditContent(hasAttachment); err != nil {
		return "", false, err
	}
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return "", false, ErrInvalid
	}
	return newText, newText != oldText, nil
}

// EditPost replaces a post's text, keeping the old text in its edit history.
func (e *Engine) EditPost(s *Session, postID models.Millis, text string) (models.Post, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Post{}, err
	}
	posts := e.posts()
	i := models.FindPost(posts, postID)
	if i < 0 {
		return models.Post{}, ErrNotFound
	}
	p := &posts[i]
	text, changed, err := editText(me, p.User, p.Text, text, p.Attachment != nil, p.Deleted)
	if err != nil || !changed {
		return *p, err
	}
	p.Edits = append(p.Edits, models.Edit{Time: e.now(), OldText: p.Text, Editor: me.Username})
	p.Text = text
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return models.Post{}, err
	}
	e.appendModLog(models.ActionEditPost, me.Username, postTarget(postID), p.User)
	return *p, nil
}

// EditReply replaces a reply's text, keeping the old text in its edit history.
func (e *Engine) EditReply(s *Session, postID, replyDate models.Millis, text string) (models.Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return models.Reply{}, err
	}
	posts, i, j, err := e.findReply(postID, replyDate)
	if err != nil {
		return models.Reply{}, err
	}
	r := &posts[i].Replies[j]
	text, changed, err := editText(me, r.User, r.Text, text, r.Attachment != nil, r.Deleted)
	if err != nil || !changed {
		return *r, err
	}
	r.Edits = append(r.Edits, models.Edit{Time: e.now(), OldText: r.Text, Editor: me.Username})
	r.Text = text
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return models.Reply{}, err
	}
	e.appendModLog(models.ActionEditReply, me.Username, postTarget(postID), r.User)
	return *r, nil
}

func (e *Engine) tombstone(by string, data *models.DeletedData) models.Tombstone {
	return models.Tombstone{Deleted: true, DeletedBy: by, DeletedAt: e.now(), DeletedData: data}
}

func rawJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// DeletePost tombstones a post. Its content stays available to privileged viewers.
func (e *Engine) DeletePost(s *Session, postID models.Millis) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if err := CanDelete(me.Role); err != nil {
		return err
	}
	posts := e.posts()
	i := models.FindPost(posts, postID)
	if i < 0 {
		return ErrNotFound
	}
	p := &posts[i]
	if p.Deleted {
		return nil
	}
	p.Tombstone = e.tombstone(me.Username, &models.DeletedData{User: p.User, Text: p.Text, Date: rawJSON(p.Date)})
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return err
	}
	e.appendModLog(models.ActionDeletePost, me.Username, postTarget(postID), p.User)
	return nil
}

// DeleteReply tombstones a reply.
func (e *Engine) DeleteReply(s *Session, postID, replyDate models.Millis) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	me, err := e.actor(s)
	if err != nil {
		return err
	}
	if err := CanDelete(me.Role); err != nil {
		return err
	}
	posts, i, j, err := e.findReply(postID, replyDate)
	if err != nil {
		return err
	}
	r := &posts[i].Replies[j]
	if r.Deleted {
		return nil
	}
	r.Tombstone = e.tombstone(me.Username, &models.DeletedData{User: r.User, Text: r.Text, Date: rawJSON(r.Date)})
	if _, err := e.commit(models.CollectionPosts, posts); err != nil {
		return err
	}
	e.appendModLog(models.ActionDeleteReply, me.Username, postTarget(postID), r.User)
	return nil
}

// isoDate formats t the way post dates are stored.
func isoDate(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
