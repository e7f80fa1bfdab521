package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stevemurr/bookstore/handler"
	"github.com/stevemurr/bookstore/store"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	h := handler.CORS(okHandler(), []string{"http://a.example", "http://b.example"})

	req := httptest.NewRequest("OPTIONS", "/api/books", nil)
	req.Header.Set("Origin", "http://b.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://b.example" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest("GET", "/api/books", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin, got %q", got)
	}

	h = handler.CORS(okHandler(), []string{"*"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected *, got %q", got)
	}
}

func TestLogRequestsSetsRequestID(t *testing.T) {
	h := handler.LogRequests(handler.New(store.NewMemoryStore()))

	ids := map[string]bool{}
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/books", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		id := rec.Header().Get("X-Request-Id")
		if id == "" {
			t.Fatal("expected X-Request-Id header")
		}
		ids[id] = true
	}
	if len(ids) != 3 {
		t.Fatalf("expected unique request ids, got %v", ids)
	}
}

func TestRateLimit(t *testing.T) {
	l := handler.NewLimiter(0.001, 2)
	defer l.Close()
	h := handler.RateLimit(okHandler(), l)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/books", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := range 2 {
		if rec := send("10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := send("10.0.0.1:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// Another client has its own bucket.
	if rec := send("10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for second client, got %d", rec.Code)
	}
}

func TestLimiterAllow(t *testing.T) {
	l := handler.NewLimiter(1, 1)
	defer l.Close()
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("expected first token")
	}
	ok, retry := l.Allow("k")
	if ok {
		t.Fatal("expected bucket to be empty")
	}
	if retry <= 0 || retry > time.Second {
		t.Fatalf("unexpected retry delay %v", retry)
	}
	l.Close()
	l.Close()
}
