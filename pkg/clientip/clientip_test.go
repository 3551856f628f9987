package clientip

import (
	"net/http/httptest"
	"testing"
)

func TestRealClientIP(t *testing.T) {
	tests := []struct {
		remote, forwarded, want string
	}{
		{"10.1.2.3:5000", "", "10.1.2.3"},
		{"10.1.2.3:5000", "8.8.8.8", "10.1.2.3"},
		{"127.0.0.1:5000", "", "127.0.0.1"},
		{"127.0.0.1:5000", "8.8.8.8, 10.0.0.1", "8.8.8.8"},
		{"[::1]:5000", "2001:db8::1", "2001:db8::1"},
		{"127.0.0.1:5000", "not-an-ip", "127.0.0.1"},
		{"garbage", "", "garbage"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remote
		if tt.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tt.forwarded)
		}
		if got := RealClientIP(req); got != tt.want {
			t.Errorf("%s via %q GOT[%s], EXPECTED[%s]", tt.remote, tt.forwarded, got, tt.want)
		}
	}
}
