package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"echo":"hello"}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 0, time.Millisecond)
	var out struct {
		Echo string `json:"echo"`
	}
	if err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{"q": "hello"}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Echo != "hello" {
		t.Fatalf("expected echo hello, got %q", out.Echo)
	}
}

func TestDoJSONRetriesOnServerError(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 2, time.Millisecond)
	var out map[string]any
	if err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if atomic.LoadInt64(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoJSONReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 1, time.Millisecond)
	err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}
