package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
	"github.com/gorilla/websocket"
)

const (
	wsReadLimit    = 64 * 1024
	wsReadTimeout  = 90 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the agent only listens locally; CORS is enforced on the HTTP routes
		return true
	},
}

// ClientCommand is a message from the rendering layer over /ws/events.
type ClientCommand struct {
	Type    string               `json:"type"` // "ping", "typing", "focus", "view"
	Scope   services.TypingScope `json:"scope,omitempty"`
	Target  string               `json:"target,omitempty"`
	Focused *bool                `json:"focused,omitempty"`
	View    string               `json:"view,omitempty"`
}

// commandError is written back when a client command fails.
type commandError struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Message string `json:"message"`
}

// EventsWebSocket streams the session's change events. The session token is
// taken from the Authorization header, or the token query parameter for browsers.
func EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}
	s, ok := engine.Session(token)
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, unsubscribe := engine.Hub().Subscribe(s.Token)
	defer unsubscribe()

	replies := make(chan commandError, 8)
	done := make(chan struct{})
	defer close(done)

	go writeEvents(conn, events, replies, done)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var cmd ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		if err := runCommand(r, s, cmd); err != nil {
			select {
			case replies <- commandError{Type: "error", Command: cmd.Type, Message: err.Error()}:
			default:
			}
		}
	}
}

func runCommand(r *http.Request, s *services.Session, cmd ClientCommand) error {
	switch cmd.Type {
	case "ping":
		return engine.UpdateActivity(s)
	case "typing":
		return engine.Typing(s, cmd.Scope, cmd.Target)
	case "focus":
		focused := true
		if cmd.Focused != nil {
			focused = *cmd.Focused
		}
		return engine.Focus(s, focused)
	case "view":
		view, ok := services.ParseView(cmd.View)
		if !ok {
			return services.ErrInvalid
		}
		return engine.ShowView(r.Context(), s, view)
	}
	return nil
}

// writeEvents is the connection's only writer. It returns when the session's
// event stream closes, a write fails or the reader is done.
func writeEvents(conn *websocket.Conn, events <-chan services.Event, replies <-chan commandError, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	write := func(v interface{}) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v) == nil
	}

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				// logged out
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if !write(ev) {
				return
			}
		case reply := <-replies:
			if !write(reply) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				log.Printf("⚠️  events socket ping failed: %v", err)
				return
			}
		}
	}
}
