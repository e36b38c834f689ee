package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func TestLimitsPostsPerKey(t *testing.T) {
	l, err := New("2-M")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h := l.Middleware(func(r *http.Request) string { return r.Header.Get("X-Key") })(okHandler())

	post := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/records/action", nil)
		req.Header.Set("X-Key", key)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if c := post("a"); c != http.StatusNoContent {
		t.Fatalf("first post: %d", c)
	}
	if c := post("a"); c != http.StatusNoContent {
		t.Fatalf("second post: %d", c)
	}
	if c := post("a"); c != http.StatusTooManyRequests {
		t.Fatalf("third post should be limited, got %d", c)
	}
	if c := post("b"); c != http.StatusNoContent {
		t.Fatalf("other client should pass, got %d", c)
	}
}

func TestGetIsNeverLimited(t *testing.T) {
	l, err := New("1-M")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h := l.Middleware(func(*http.Request) string { return "same" })(okHandler())
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("get %d: status %d", i, rr.Code)
		}
	}
}

func TestInvalidRate(t *testing.T) {
	if _, err := New("lots"); err == nil {
		t.Fatalf("expected error for malformed rate")
	}
}
