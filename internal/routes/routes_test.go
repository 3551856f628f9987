package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/handlers"
	"github.com/AnshRaj112/salvioris-chatsync/internal/models"
	"github.com/AnshRaj112/salvioris-chatsync/internal/remote"
	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
)

const adminPassword = "correct-horse"

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	local := cache.NewMemory()
	adapter := remote.NewAdapter(remote.NewMemoryStore(), local, remote.Options{PullTimeout: 500 * time.Millisecond})
	adapter.Start(ctx)
	engine := services.NewEngine(services.Config{
		AdminUsername: "Jade",
		AdminPassword: adminPassword,
		Heartbeat:     time.Hour,
	}, local, adapter, nil)
	engine.Start(ctx)
	handlers.Init(engine)

	r := chi.NewRouter()
	SetupRoutes(r)
	return r
}

func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(t, h, req)
}

func serve(t *testing.T, h http.Handler, req *http.Request) (int, apiResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec.Code, resp
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	code, resp := call(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	if code != http.StatusOK || resp.Token == "" {
		t.Fatalf("login %s GOT[%d %s], EXPECTED[200 with token]", username, code, resp.Message)
	}
	return resp.Token
}

func TestLoginAndSession(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "ana", "secret1")

	code, resp := call(t, h, http.MethodGet, "/api/auth/me", token, nil)
	if code != http.StatusOK {
		t.Fatalf("GOT[%d], EXPECTED[200]", code)
	}
	var state services.SessionState
	if err := json.Unmarshal(resp.Data, &state); err != nil {
		t.Fatal(err)
	}
	if state.User.Username != "ana" || state.User.PasswordHash != "" {
		t.Errorf("GOT[%+v], EXPECTED[ana without hash]", state.User)
	}

	if code, _ := call(t, h, http.MethodGet, "/api/auth/me", "", nil); code != http.StatusUnauthorized {
		t.Errorf("no token GOT[%d], EXPECTED[401]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ana", "password": "nope12"}); code != http.StatusUnauthorized {
		t.Errorf("wrong password GOT[%d], EXPECTED[401]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "x", "password": "secret1"}); code != http.StatusBadRequest {
		t.Errorf("short username GOT[%d], EXPECTED[400]", code)
	}

	call(t, h, http.MethodPost, "/api/auth/logout", token, nil)
	if code, _ := call(t, h, http.MethodGet, "/api/auth/me", token, nil); code != http.StatusUnauthorized {
		t.Errorf("after logout GOT[%d], EXPECTED[401]", code)
	}
}

func TestAdminLockoutReturnsLocked(t *testing.T) {
	h := newRouter(t)
	for i := 0; i < 3; i++ {
		code, _ := call(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "Jade", "password": "guess"})
		if code != http.StatusUnauthorized {
			t.Fatalf("attempt %d GOT[%d], EXPECTED[401]", i+1, code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"Jade","password":"correct-horse"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusLocked || rec.Header().Get("Retry-After") == "" {
		t.Errorf("GOT[%d retry=%q], EXPECTED[423 with Retry-After]", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestForumRoutes(t *testing.T) {
	h := newRouter(t)
	ana := login(t, h, "ana", "secret1")
	bob := login(t, h, "bob", "secret2")

	code, resp := call(t, h, http.MethodPost, "/api/posts", ana, map[string]string{"text": "hello forum"})
	if code != http.StatusCreated {
		t.Fatalf("GOT[%d %s], EXPECTED[201]", code, resp.Message)
	}
	var post models.Post
	if err := json.Unmarshal(resp.Data, &post); err != nil {
		t.Fatal(err)
	}
	postPath := "/api/posts/" + itoa(post.ID)

	if code, _ := call(t, h, http.MethodPost, "/api/posts", ana, map[string]string{"text": "  "}); code != http.StatusBadRequest {
		t.Errorf("empty post GOT[%d], EXPECTED[400]", code)
	}
	if code, _ := call(t, h, http.MethodPost, postPath+"/vote", bob, map[string]string{"vote": "up"}); code != http.StatusOK {
		t.Errorf("vote GOT[%d], EXPECTED[200]", code)
	}
	if code, _ := call(t, h, http.MethodPost, postPath+"/replies", bob, map[string]string{"text": "hi"}); code != http.StatusCreated {
		t.Errorf("reply GOT[%d], EXPECTED[201]", code)
	}
	if code, _ := call(t, h, http.MethodPut, postPath, bob, map[string]string{"text": "mine"}); code != http.StatusForbidden {
		t.Errorf("foreign edit GOT[%d], EXPECTED[403]", code)
	}
	if code, _ := call(t, h, http.MethodDelete, postPath, ana, nil); code != http.StatusForbidden {
		t.Errorf("user delete GOT[%d], EXPECTED[403]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/posts/not-a-number/vote", bob, map[string]string{"vote": "up"}); code != http.StatusBadRequest {
		t.Errorf("bad id GOT[%d], EXPECTED[400]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/posts/42/replies", bob, map[string]string{"text": "lost"}); code != http.StatusNotFound {
		t.Errorf("missing post GOT[%d], EXPECTED[404]", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/collections/posts", nil)
	req.Header.Set("Authorization", "Bearer "+bob)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	posts := []models.Post{}
	if err := json.Unmarshal(rec.Body.Bytes(), &posts); err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || len(posts[0].Upvoters) != 1 || len(posts[0].Replies) != 1 {
		t.Errorf("GOT[%s], EXPECTED[one post with a vote and a reply]", rec.Body.String())
	}

	if code, _ := call(t, h, http.MethodGet, "/api/collections/modLog", bob, nil); code != http.StatusForbidden {
		t.Errorf("modLog as user GOT[%d], EXPECTED[403]", code)
	}
	if code, _ := call(t, h, http.MethodGet, "/api/collections/secrets", bob, nil); code != http.StatusNotFound {
		t.Errorf("unknown collection GOT[%d], EXPECTED[404]", code)
	}
}

func TestMultipartAttachment(t *testing.T) {
	h := newRouter(t)
	ana := login(t, h, "ana", "secret1")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("text", "look"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("plain text attachment"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ana)
	code, resp := serve(t, h, req)
	if code != http.StatusCreated {
		t.Fatalf("GOT[%d %s], EXPECTED[201]", code, resp.Message)
	}
	var post models.Post
	if err := json.Unmarshal(resp.Data, &post); err != nil {
		t.Fatal(err)
	}
	if post.Text != "look" || post.Attachment == nil || post.Attachment.Type != models.AttachmentFile ||
		!strings.HasPrefix(post.Attachment.Payload, "data:") {
		t.Errorf("GOT[%+v], EXPECTED[inlined file attachment]", post)
	}
}

func TestGroupAndPrivateRoutes(t *testing.T) {
	h := newRouter(t)
	ana := login(t, h, "ana", "secret1")
	bob := login(t, h, "bob", "secret2")

	if code, _ := call(t, h, http.MethodPost, "/api/groups", ana, map[string]string{"name": "book club"}); code != http.StatusCreated {
		t.Fatalf("create GOT[%d], EXPECTED[201]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/groups", bob, map[string]string{"name": "Book Club"}); code != http.StatusConflict {
		t.Errorf("duplicate GOT[%d], EXPECTED[409]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/groups/book%20club/messages", bob, map[string]string{"text": "joining"}); code != http.StatusCreated {
		t.Errorf("send to public group GOT[%d], EXPECTED[201]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/groups/book%20club/members", ana, map[string]string{"username": "bob"}); code != http.StatusBadRequest {
		t.Errorf("add member to public group GOT[%d], EXPECTED[400]", code)
	}
	if code, _ := call(t, h, http.MethodDelete, "/api/groups/book%20club", ana, nil); code != http.StatusForbidden {
		t.Errorf("user deletes group GOT[%d], EXPECTED[403]", code)
	}

	code, resp := call(t, h, http.MethodPost, "/api/private/users/bob/messages", ana, map[string]string{"text": "psst"})
	if code != http.StatusCreated {
		t.Fatalf("private send GOT[%d %s], EXPECTED[201]", code, resp.Message)
	}
	var msg models.Message
	if err := json.Unmarshal(resp.Data, &msg); err != nil {
		t.Fatal(err)
	}

	code, resp = call(t, h, http.MethodGet, "/api/badges", bob, nil)
	var badges services.Badges
	if err := json.Unmarshal(resp.Data, &badges); err != nil || code != http.StatusOK || badges.Private != 1 {
		t.Errorf("GOT[%d %s], EXPECTED[one unread private message]", code, resp.Data)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/private/users/ana/open", bob, nil); code != http.StatusOK {
		t.Errorf("open GOT[%d], EXPECTED[200]", code)
	}

	editPath := "/api/private/chats/" + models.ConversationKey("ana", "bob") + "/messages/" + itoa(msg.Date)
	if code, _ := call(t, h, http.MethodPut, editPath, bob, map[string]string{"text": "not mine"}); code != http.StatusForbidden {
		t.Errorf("foreign edit GOT[%d], EXPECTED[403]", code)
	}
	if code, _ := call(t, h, http.MethodPut, editPath, ana, map[string]string{"text": "psst!"}); code != http.StatusOK {
		t.Errorf("own edit GOT[%d], EXPECTED[200]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/private/users/ghost/messages", ana, map[string]string{"text": "hello?"}); code != http.StatusNotFound {
		t.Errorf("unknown recipient GOT[%d], EXPECTED[404]", code)
	}
}

func TestModerationRoutes(t *testing.T) {
	h := newRouter(t)
	ana := login(t, h, "ana", "secret1")
	admin := login(t, h, "Jade", adminPassword)

	if code, _ := call(t, h, http.MethodPost, "/api/moderation/mutes", ana, map[string]interface{}{"username": "Jade", "minutes": 5}); code != http.StatusForbidden {
		t.Errorf("user mutes GOT[%d], EXPECTED[403]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/moderation/mutes", admin, map[string]interface{}{"username": "ana", "minutes": 5}); code != http.StatusOK {
		t.Fatalf("admin mutes GOT[%d], EXPECTED[200]", code)
	}
	if code, resp := call(t, h, http.MethodPost, "/api/posts", ana, map[string]string{"text": "hello?"}); code != http.StatusForbidden || resp.Success {
		t.Errorf("muted post GOT[%d], EXPECTED[403]", code)
	}
	if code, _ := call(t, h, http.MethodDelete, "/api/moderation/mutes/ana", admin, nil); code != http.StatusOK {
		t.Errorf("unmute GOT[%d], EXPECTED[200]", code)
	}

	code, resp := call(t, h, http.MethodGet, "/api/moderation/log", admin, nil)
	var entries []models.ModLogEntry
	if err := json.Unmarshal(resp.Data, &entries); err != nil || code != http.StatusOK || len(entries) != 2 {
		t.Errorf("GOT[%d %s], EXPECTED[mute and unmute entries]", code, resp.Data)
	}

	if code, _ := call(t, h, http.MethodPut, "/api/admin/users/ana/role", admin, map[string]bool{"moderator": true}); code != http.StatusOK {
		t.Errorf("promote GOT[%d], EXPECTED[200]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/admin/clear-messages", ana, nil); code != http.StatusForbidden {
		t.Errorf("moderator clears GOT[%d], EXPECTED[403]", code)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/admin/clear-messages", admin, nil); code != http.StatusOK {
		t.Errorf("admin clears GOT[%d], EXPECTED[200]", code)
	}

	if code, _ := call(t, h, http.MethodPost, "/api/support", ana, map[string]string{"message": "help"}); code != http.StatusCreated {
		t.Errorf("support GOT[%d], EXPECTED[201]", code)
	}
	if code, _ := call(t, h, http.MethodPut, "/api/support/0/answered", admin, nil); code != http.StatusOK {
		t.Errorf("answer GOT[%d], EXPECTED[200]", code)
	}
	if code, _ := call(t, h, http.MethodPut, "/api/support/x/answered", admin, nil); code != http.StatusBadRequest {
		t.Errorf("bad index GOT[%d], EXPECTED[400]", code)
	}
}

func TestEventsWebSocket(t *testing.T) {
	h := newRouter(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ana := login(t, h, "ana", "secret1")
	bob := login(t, h, "bob", "secret2")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?token=" + bob
	if _, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/events?token=nope", nil); err == nil {
		t.Fatal("expected the handshake to fail for an unknown token")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GOT[%v], EXPECTED[401]", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	next := func(want services.EventType) services.Event {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		for {
			var ev services.Event
			if err := conn.ReadJSON(&ev); err != nil {
				t.Fatalf("waiting for %s: %v", want, err)
			}
			if ev.Type == want {
				return ev
			}
		}
	}

	// a session event proves the subscription is live
	if err := conn.WriteJSON(map[string]interface{}{"type": "focus", "focused": true}); err != nil {
		t.Fatal(err)
	}
	next(services.EventSession)

	if code, _ := call(t, h, http.MethodPost, "/api/typing", ana, map[string]string{"scope": "forum"}); code != http.StatusOK {
		t.Fatalf("typing GOT[%d], EXPECTED[200]", code)
	}
	ev := next(services.EventTyping)
	if ev.Typing == nil || ev.Typing.User != "ana" || !ev.Typing.Active {
		t.Errorf("GOT[%+v], EXPECTED[ana typing]", ev.Typing)
	}

	if err := conn.WriteJSON(map[string]string{"type": "view", "view": "nowhere"}); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var reply map[string]interface{}
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatal(err)
		}
		if reply["type"] == "error" {
			if reply["command"] != "view" {
				t.Errorf("GOT[%v], EXPECTED[error for the view command]", reply)
			}
			break
		}
	}
}

func itoa(m models.Millis) string {
	b, _ := json.Marshal(m)
	return string(b)
}
