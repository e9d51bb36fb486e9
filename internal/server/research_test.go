package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/askagent/askagent/config"
	"github.com/askagent/askagent/internal/pipeline"
	"github.com/askagent/askagent/internal/session"
)

type fakeResearcher struct {
	lastReq pipeline.Request
	result  pipeline.Result
	err     error
}

func (f *fakeResearcher) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return f.result, nil
}

func baseConfig() *config.Config {
	return &config.Config{
		LLM:      config.LLMConfig{APIKey: "sk-config"},
		Scraping: config.ScrapingConfig{APIKey: "bd-config"},
		Datasets: config.DatasetsConfig{PostsDatasetID: "gd_posts1", CommentsDatasetID: "gd_comments1"},
	}
}

func newTestServer(t *testing.T, fr *fakeResearcher) (*httptest.Server, session.Store) {
	t.Helper()
	e := newEcho()
	sessions := session.NewInMemory(time.Hour)
	api := e.Group("/api")
	api.Use(withSession([]byte("test-secret"), time.Hour))
	rh := &ResearchHandler{Cfg: baseConfig(), Pipeline: fr, Sessions: sessions}
	rh.Register(api)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, sessions
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func sessionClient(t *testing.T) *http.Client {
	t.Helper()
	jar := newCookieJar(t)
	return &http.Client{Jar: jar}
}

func TestResearchUsesConfigFallback(t *testing.T) {
	fr := &fakeResearcher{result: pipeline.Result{FinalAnswer: "an answer"}}
	srv, _ := newTestServer(t, fr)

	resp := postJSON(t, srv.Client(), srv.URL+"/api/research", `{"question":"Best laptop for ML under $1500"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out ResearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if fr.lastReq.Credentials.LLMKey != "sk-config" {
		t.Fatalf("expected config fallback for llm key, got %q", fr.lastReq.Credentials.LLMKey)
	}
	if fr.lastReq.Datasets.Posts != "gd_posts1" {
		t.Fatalf("expected config dataset ids, got %q", fr.lastReq.Datasets.Posts)
	}
}

func TestResearchPayloadOverridesEverything(t *testing.T) {
	fr := &fakeResearcher{result: pipeline.Result{FinalAnswer: "a"}}
	srv, _ := newTestServer(t, fr)

	resp := postJSON(t, srv.Client(), srv.URL+"/api/research",
		`{"question":"q","llm_key":"sk-payload","posts_dataset_id":"gd_override"}`)
	resp.Body.Close()

	if fr.lastReq.Credentials.LLMKey != "sk-payload" {
		t.Fatalf("payload key should win, got %q", fr.lastReq.Credentials.LLMKey)
	}
	if fr.lastReq.Datasets.Posts != "gd_override" {
		t.Fatalf("payload dataset should win, got %q", fr.lastReq.Datasets.Posts)
	}
	if fr.lastReq.Credentials.ScrapingKey != "bd-config" {
		t.Fatalf("unset fields still fall back to config, got %q", fr.lastReq.Credentials.ScrapingKey)
	}
}

func TestResearchSessionSettingsBeatConfig(t *testing.T) {
	fr := &fakeResearcher{result: pipeline.Result{FinalAnswer: "a"}}
	srv, _ := newTestServer(t, fr)
	client := sessionClient(t)

	resp := postJSON(t, client, srv.URL+"/api/settings", `{"llm_key":"sk-session"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("settings status %d", resp.StatusCode)
	}

	resp = postJSON(t, client, srv.URL+"/api/research", `{"question":"q"}`)
	resp.Body.Close()
	if fr.lastReq.Credentials.LLMKey != "sk-session" {
		t.Fatalf("session key should beat config, got %q", fr.lastReq.Credentials.LLMKey)
	}
}

func TestResearchPreflightErrorIsBadRequest(t *testing.T) {
	fr := &fakeResearcher{err: &pipeline.PreflightError{Reason: "missing LLM API key"}}
	srv, _ := newTestServer(t, fr)

	resp := postJSON(t, srv.Client(), srv.URL+"/api/research", `{"question":"q"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	var he HTTPError
	if err := json.NewDecoder(resp.Body).Decode(&he); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if he.Error != "missing LLM API key" {
		t.Fatalf("unexpected error body %q", he.Error)
	}
}

func TestSettingsRoundTripMasksSecrets(t *testing.T) {
	fr := &fakeResearcher{result: pipeline.Result{}}
	srv, _ := newTestServer(t, fr)
	client := sessionClient(t)

	resp := postJSON(t, client, srv.URL+"/api/settings",
		`{"llm_key":"sk-verysecret1234","posts_dataset_id":"gd_abc123"}`)
	resp.Body.Close()

	getResp, err := client.Get(srv.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET settings: %v", err)
	}
	defer getResp.Body.Close()
	var out SettingsResponse
	if err := json.NewDecoder(getResp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.LLMKey != "****1234" {
		t.Fatalf("secret should be masked, got %q", out.LLMKey)
	}
	if out.PostsDatasetID != "gd_abc123" {
		t.Fatalf("dataset id should be readable, got %q", out.PostsDatasetID)
	}
}

func TestTestSettingsValidatesWithoutRunning(t *testing.T) {
	fr := &fakeResearcher{result: pipeline.Result{}}
	srv, _ := newTestServer(t, fr)

	resp := postJSON(t, srv.Client(), srv.URL+"/api/test-settings", `{"llm_key":"sk-1","scraping_key":"bd-1"}`)
	defer resp.Body.Close()
	var out TestSettingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected ok with config dataset ids, got reason %q", out.Reason)
	}
	if fr.lastReq.Question != "" {
		t.Fatal("test-settings must not run the pipeline")
	}
}

func TestTestSettingsReportsReason(t *testing.T) {
	fr := &fakeResearcher{result: pipeline.Result{}}
	srv, _ := newTestServer(t, fr)

	// Override the posts dataset id with a malformed one.
	resp := postJSON(t, srv.Client(), srv.URL+"/api/test-settings", `{"posts_dataset_id":"bogus"}`)
	defer resp.Body.Close()
	var out TestSettingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.OK {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(out.Reason, "posts dataset id") {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
}

func TestMask(t *testing.T) {
	for in, want := range map[string]string{
		"":            "",
		"abc":         "****",
		"sk-12345678": "****5678",
	} {
		if got := mask(in); got != want {
			t.Fatalf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
