// Package normalize converts remote collection payloads into their canonical shape.
//
// Remote stores serialize sparse arrays as objects keyed by stringified indices and
// older clients wrote several legacy shapes. Normalize accepts all of them and always
// produces the same canonical JSON for the same logical content.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
)

// Normalize returns the canonical JSON encoding of raw for collection c.
// It never fails: malformed input yields the collection's empty value.
func Normalize(c models.Collection, raw []byte) []byte {
	root, ok := parse(raw)
	if !ok {
		return c.Empty()
	}

	var out any
	switch c {
	case models.CollectionUsers:
		out = decodeEach[models.User](toSequence(root), fixUser)
	case models.CollectionPosts:
		out = decodeEach[models.Post](toSequence(root), fixPost)
	case models.CollectionGroups:
		out = decodeEach[models.Group](toSequence(root), fixGroup)
	case models.CollectionModLog:
		out = decodeEach[models.ModLogEntry](toSequence(root), nil)
	case models.CollectionMuted:
		out = decodeEach[models.MuteEntry](toSequence(root), fixMute)
	case models.CollectionPrivateChats:
		out = privateChats(root)
	default:
		return c.Empty()
	}

	data, err := json.Marshal(out)
	if err != nil {
		return c.Empty()
	}
	return data
}

// Equal reports whether two raw payloads normalize to the same canonical value.
func Equal(c models.Collection, a, b []byte) bool {
	return bytes.Equal(Normalize(c, a), Normalize(c, b))
}

func parse(raw []byte) (any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// toSequence converts arrays-as-maps into ordered sequences. Index-keyed objects
// keep index order; any other object is ordered by key. Scalars become empty.
func toSequence(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		return mapValues(t)
	default:
		return []any{}
	}
}

func mapValues(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	indexed := true
	for k := range m {
		keys = append(keys, k)
		if _, ok := indexKey(k); !ok {
			indexed = false
		}
	}
	if indexed {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := indexKey(keys[i])
			b, _ := indexKey(keys[j])
			return a < b
		})
	} else {
		sort.Strings(keys)
	}
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func indexKey(k string) (uint64, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(k, 10, 64)
	return n, err == nil
}

func isIndexKeyed(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if _, ok := indexKey(k); !ok {
			return false
		}
	}
	return true
}

// decodeEach applies fix to every object element and decodes it into T.
// Elements rejected by fix or that still do not fit T are dropped.
func decodeEach[T any](items []any, fix func(map[string]any) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if fix != nil && !fix(obj) {
			continue
		}
		var v T
		if err := remarshal(obj, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func requireString(field string) func(map[string]any) bool {
	return func(obj map[string]any) bool {
		s, ok := obj[field].(string)
		return ok && s != ""
	}
}

func fixUser(u map[string]any) bool {
	if name, ok := u["username"].(string); !ok || name == "" {
		return false
	}
	switch models.Role(stringOr(u["role"])) {
	case models.RoleAdmin, models.RoleModerator, models.RoleUser:
	default:
		u["role"] = string(models.RoleUser)
	}
	return true
}

// fixMute clears a falsy until so the entry reads as permanent.
func fixMute(m map[string]any) bool {
	if !requireString("username")(m) {
		return false
	}
	switch until := m["until"].(type) {
	case json.Number:
		if f, err := until.Float64(); err == nil && f == 0 {
			m["until"] = nil
		}
	case bool, string:
		if until == false || until == "" {
			m["until"] = nil
		}
	}
	return true
}

func stringOr(v any) string {
	s, _ := v.(string)
	return s
}

func fixPost(p map[string]any) bool {
	fixContent(p)
	if d, ok := p["date"].(json.Number); ok {
		if f, err := d.Float64(); err == nil {
			p["date"] = time.UnixMilli(int64(f)).UTC().Format("2006-01-02T15:04:05.000Z")
		}
	}
	replies := toSequence(p["replies"])
	kept := make([]any, 0, len(replies))
	for _, r := range replies {
		reply, ok := r.(map[string]any)
		if !ok {
			continue
		}
		fixContent(reply)
		delete(reply, "replies")
		kept = append(kept, reply)
	}
	p["replies"] = kept
	return true
}

// fixContent upgrades the fields shared by posts and replies.
func fixContent(p map[string]any) {
	if att, ok := p["attachment"].(map[string]any); ok {
		if _, has := att["payload"]; !has {
			if text, ok := att["text"]; ok {
				att["payload"] = text
			}
		}
		delete(att, "text")
	} else if _, present := p["attachment"]; present {
		delete(p, "attachment")
	}
	for _, field := range []string{"upvoters", "downvoters"} {
		if v, present := p[field]; present {
			p[field] = stringSequence(v)
		}
	}
	fixEdits(p)
}

func fixEdits(p map[string]any) {
	if v, present := p["edits"]; present {
		edits := toSequence(v)
		kept := make([]any, 0, len(edits))
		for _, e := range edits {
			if _, ok := e.(map[string]any); ok {
				kept = append(kept, e)
			}
		}
		p["edits"] = kept
	}
}

func stringSequence(v any) []any {
	items := toSequence(v)
	out := make([]any, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func messages(v any) []any {
	items := toSequence(v)
	out := make([]any, 0, len(items))
	for _, item := range items {
		msg, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fixEdits(msg)
		out = append(out, msg)
	}
	return out
}

func fixGroup(g map[string]any) bool {
	if name, ok := g["name"].(string); !ok || name == "" {
		return false
	}
	g["members"] = stringSequence(g["members"])
	g["messages"] = messages(g["messages"])
	g["unread"] = unread(g["unread"])
	if _, ok := g["privacy"].(string); !ok {
		g["privacy"] = string(models.GroupPublic)
	}
	return true
}

// unread coerces counters to non-negative integers and drops non-numeric values.
func unread(v any) map[string]any {
	out := map[string]any{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for user, raw := range m {
		var f float64
		switch n := raw.(type) {
		case json.Number:
			parsed, err := n.Float64()
			if err != nil {
				continue
			}
			f = parsed
		case string:
			parsed, err := strconv.ParseFloat(n, 64)
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if math.IsNaN(f) || f < 0 {
			f = 0
		}
		if f > math.MaxInt32 {
			f = math.MaxInt32
		}
		out[user] = int64(f)
	}
	return out
}

// privateChats upgrades every entry to {messages, unread}. Accepted legacy shapes:
// a bare message array, an index-keyed message object, an object whose messages
// field is not an array, and an absent entry.
func privateChats(root any) models.PrivateChats {
	out := models.PrivateChats{}
	m, ok := root.(map[string]any)
	if !ok {
		return out
	}
	for key, entry := range m {
		var shaped map[string]any
		switch t := entry.(type) {
		case nil:
			shaped = map[string]any{"messages": []any{}, "unread": map[string]any{}}
		case []any:
			shaped = map[string]any{"messages": messages(t), "unread": map[string]any{}}
		case map[string]any:
			if _, has := t["messages"]; !has && isIndexKeyed(t) {
				shaped = map[string]any{"messages": messages(t), "unread": map[string]any{}}
			} else {
				shaped = map[string]any{"messages": messages(t["messages"]), "unread": unread(t["unread"])}
			}
		default:
			continue
		}

		chat := models.PrivateChat{}
		msgs := decodeEach[models.Message](shaped["messages"].([]any), nil)
		chat.Messages = msgs
		chat.Unread = map[string]int{}
		for user, n := range shaped["unread"].(map[string]any) {
			chat.Unread[user] = int(n.(int64))
		}
		out[key] = chat
	}
	return out
}
