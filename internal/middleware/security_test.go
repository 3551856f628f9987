package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	for header, want := range map[string]string{
		headerXContentTypeOptions: "nosniff",
		headerXFrameOptions:       "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s GOT[%s], EXPECTED[%s]", header, got, want)
		}
	}
}

func TestLoginRateLimit(t *testing.T) {
	h := LoginRateLimit(okHandler)
	login := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":4242"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := login("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("attempt %d GOT[%d], EXPECTED[200]", i+1, code)
		}
	}
	if code := login("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("GOT[%d], EXPECTED[429]", code)
	}
	if code := login("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other IP GOT[%d], EXPECTED[200]", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("non-login route GOT[%d], EXPECTED[200]", rec.Code)
	}
}

func TestMessageRateLimitIsPerSession(t *testing.T) {
	h := MessageRateLimit(okHandler)
	send := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/groups/club/messages", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < messageAuthBurst; i++ {
		if rec := send("token-a"); rec.Code != http.StatusOK {
			t.Fatalf("message %d GOT[%d], EXPECTED[200]", i+1, rec.Code)
		}
	}
	rec := send("token-a")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("GOT[%d remaining=%s], EXPECTED[429 remaining=0]", rec.Code, rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec := send("token-b"); rec.Code != http.StatusOK {
		t.Errorf("other session GOT[%d], EXPECTED[200]", rec.Code)
	}
}

func TestIsMessageWrite(t *testing.T) {
	tests := []struct {
		method, path string
		want         bool
	}{
		{http.MethodPost, "/api/posts", true},
		{http.MethodPost, "/api/posts/17/replies", true},
		{http.MethodPost, "/api/private/users/bob/messages", true},
		{http.MethodPost, "/api/groups/club/messages", true},
		{http.MethodPut, "/api/groups/club/messages/12", false},
		{http.MethodPost, "/api/posts/17/vote", false},
		{http.MethodGet, "/api/posts", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if got := isMessageWrite(req); got != tt.want {
			t.Errorf("%s %s GOT[%v], EXPECTED[%v]", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestLimiterSetKeepsOneBucketPerKey(t *testing.T) {
	s := newLimiterSet(rate.Limit(1), 1)
	if s.get("a") != s.get("a") {
		t.Error("expected the same limiter for the same key")
	}
	if s.get("a") == s.get("b") {
		t.Error("expected distinct limiters for distinct keys")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{" http://localhost:3000 "})(okHandler)
	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("GOT[%s], EXPECTED[http://localhost:3000]", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("GOT[%s], EXPECTED[no CORS header for unknown origin]", got)
	}
}
