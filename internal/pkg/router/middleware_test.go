package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clckenya/chatd/internal/pkg/instrument"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "true client ip wins",
			headers:    map[string]string{"True-Client-IP": "203.0.113.7", "X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for takes the first hop",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.7",
		},
		{
			name:       "invalid header falls through to the next",
			headers:    map[string]string{"True-Client-IP": "not-an-ip", "X-Real-IP": "198.51.100.1"},
			remoteAddr: "10.0.0.1:1234",
			want:       "198.51.100.1",
		},
		{
			name:       "no headers falls back to remote addr",
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "garbage everywhere yields empty",
			headers:    map[string]string{"X-Real-IP": "nope"},
			remoteAddr: "nonsense",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := clientIP(r); got != tt.want {
				t.Fatalf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeCorrelationID(t *testing.T) {
	if got := sanitizeCorrelationID("abc-123"); got != "abc-123" {
		t.Fatalf("expected value kept, got %q", got)
	}
	if got := sanitizeCorrelationID("evil\r\nSet-Cookie: x"); got != "" {
		t.Fatalf("expected injection attempt rejected, got %q", got)
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := sanitizeCorrelationID(string(long)); len(got) != maxCorrelationIDLen {
		t.Fatalf("expected value capped at %d, got %d", maxCorrelationIDLen, len(got))
	}
}

type staticID struct{ v string }

func (s staticID) Generate() string { return s.v }

func TestMiddlewareCorrelationID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = instrument.GetCorrelationID(r.Context())
	})
	h := middlewareCorrelationID(staticID{v: "minted"})(inner)

	// A caller-supplied ID is adopted and echoed.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderCorrelationID, "caller-id")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if seen != "caller-id" {
		t.Fatalf("expected caller id on context, got %q", seen)
	}
	if got := w.Header().Get(HeaderCorrelationID); got != "caller-id" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}

	// Without one, an ID is minted.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if seen != "minted" {
		t.Fatalf("expected minted id, got %q", seen)
	}
}

func TestMiddlewareRecoverer(t *testing.T) {
	h := middlewareRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}
