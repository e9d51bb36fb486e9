package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/askagent/askagent/internal/httpx"
)

func newTestSearcher(t *testing.T, engine Engine, srvURL string) Searcher {
	t.Helper()
	s, err := New(engine, Options{
		APIKey:     "tok",
		BaseURL:    srvURL,
		MaxResults: 2,
		HTTP:       httpx.NewClient(5*time.Second, 0, time.Millisecond),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSearchExtractsOrganicResults(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/request" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("unexpected auth header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{
			"knowledge": {"title": "Laptops"},
			"organic": [
				{"title": "A", "link": "https://a.example", "snippet": "first"},
				{"title": "B", "link": "https://b.example", "snippet": "second"},
				{"title": "C", "link": "https://c.example", "snippet": "beyond cap"}
			]
		}`))
	}))
	defer srv.Close()

	page, err := newTestSearcher(t, EngineGoogle, srv.URL).Search(context.Background(), "best laptop")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Organic) != 2 {
		t.Fatalf("expected organic capped at 2, got %d", len(page.Organic))
	}
	if page.Organic[0].Title != "A" || page.Organic[0].URL != "https://a.example" {
		t.Fatalf("unexpected first result: %+v", page.Organic[0])
	}
	if page.Knowledge["title"] != "Laptops" {
		t.Fatalf("expected knowledge panel, got %v", page.Knowledge)
	}
	target, _ := gotPayload["url"].(string)
	if !strings.Contains(target, "google.com/search") || !strings.Contains(target, "best+laptop") {
		t.Fatalf("unexpected target url %q", target)
	}
}

func TestSearchBingTargetsBing(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"organic": []}`))
	}))
	defer srv.Close()

	page, err := newTestSearcher(t, EngineBing, srv.URL).Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Organic) != 0 {
		t.Fatalf("expected no results, got %d", len(page.Organic))
	}
	target, _ := gotPayload["url"].(string)
	if !strings.Contains(target, "bing.com/search") {
		t.Fatalf("expected bing target, got %q", target)
	}
}

func TestSearchTransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestSearcher(t, EngineGoogle, srv.URL).Search(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error from upstream failure")
	}
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	if _, err := New(Engine("duckduckgo"), Options{}); err != ErrUnsupportedEngine {
		t.Fatalf("expected ErrUnsupportedEngine, got %v", err)
	}
}
