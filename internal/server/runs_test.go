package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/askagent/askagent/internal/store"
)

type fakeRunStore struct {
	runs   map[string]store.Run
	shares map[string]string // run id -> share id
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: map[string]store.Run{}, shares: map[string]string{}}
}

func (f *fakeRunStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	run, ok := f.runs[id]
	return run, ok, nil
}

func (f *fakeRunStore) ListRuns(ctx context.Context, sessionID string, limit int) ([]store.RunSummary, error) {
	var out []store.RunSummary
	for _, r := range f.runs {
		if r.SessionID == sessionID {
			out = append(out, store.RunSummary{ID: r.ID, Question: r.Question, CreatedAt: r.CreatedAt})
		}
	}
	return out, nil
}

func (f *fakeRunStore) ClearRuns(ctx context.Context, sessionID string) (int64, error) {
	var deleted int64
	for id, r := range f.runs {
		if r.SessionID == sessionID {
			delete(f.runs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeRunStore) CreateShare(ctx context.Context, runID string) (string, error) {
	if id, ok := f.shares[runID]; ok {
		return id, nil
	}
	id := "share-" + runID
	f.shares[runID] = id
	return id, nil
}

func (f *fakeRunStore) GetSharedRun(ctx context.Context, shareID string) (store.Run, bool, error) {
	for runID, id := range f.shares {
		if id == shareID {
			run, ok := f.runs[runID]
			return run, ok, nil
		}
	}
	return store.Run{}, false, nil
}

// runsContext builds a request context pinned to a given session id, the
// way withSession would set it after validating the cookie.
func runsContext(e *echo.Echo, method, target, sessID, runID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	req.Host = "askagent.test"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("session_id", sessID)
	if runID != "" {
		c.SetParamNames("id")
		c.SetParamValues(runID)
	}
	return c, rec
}

func seededRunStore() *fakeRunStore {
	fs := newFakeRunStore()
	fs.runs["run-1"] = store.Run{
		ID:        "run-1",
		SessionID: "sess-owner",
		Question:  "what changed",
		Result:    []byte(`{"final_answer":"it did"}`),
		CreatedAt: time.Now(),
	}
	return fs
}

func TestGetRunScopedToSession(t *testing.T) {
	e := newEcho()
	h := &RunsHandler{Store: seededRunStore()}

	c, rec := runsContext(e, http.MethodGet, "/api/runs/run-1", "sess-owner", "run-1")
	if err := h.get(c); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("owner should read its run, got %d", rec.Code)
	}
	var body RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "run-1" {
		t.Fatalf("unexpected run id %q", body.ID)
	}

	c, _ = runsContext(e, http.MethodGet, "/api/runs/run-1", "sess-other", "run-1")
	err := h.get(c)
	var he *echo.HTTPError
	if !asHTTPError(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("another session must get 404, got %v", err)
	}
}

func TestShareRunScopedToSession(t *testing.T) {
	e := newEcho()
	fs := seededRunStore()
	h := &RunsHandler{Store: fs}

	c, _ := runsContext(e, http.MethodPost, "/api/runs/run-1/share", "sess-other", "run-1")
	err := h.share(c)
	var he *echo.HTTPError
	if !asHTTPError(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("another session must not mint a share, got %v", err)
	}
	if len(fs.shares) != 0 {
		t.Fatalf("no share should exist after rejected attempt, got %v", fs.shares)
	}

	c, rec := runsContext(e, http.MethodPost, "/api/runs/run-1/share", "sess-owner", "run-1")
	if err := h.share(c); err != nil {
		t.Fatalf("owner share: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("owner should mint a share, got %d", rec.Code)
	}
	var body ShareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ShareID == "" {
		t.Fatal("share id should be set")
	}
	want := "http://askagent.test/api/share/" + body.ShareID
	if body.URL != want {
		t.Fatalf("share url = %q, want %q", body.URL, want)
	}
}

func TestSharedRunIsPubliclyReadable(t *testing.T) {
	e := newEcho()
	fs := seededRunStore()
	shareID, err := fs.CreateShare(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("seed share: %v", err)
	}
	h := &RunsHandler{Store: fs}

	// No session at all: the share endpoint sits outside withSession.
	req := httptest.NewRequest(http.MethodGet, "/api/share/"+shareID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(shareID)
	if err := h.getShared(c); err != nil {
		t.Fatalf("getShared: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("shared run should be readable without a session, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "what changed") {
		t.Fatalf("shared payload missing question: %s", rec.Body.String())
	}
}

func asHTTPError(err error, target **echo.HTTPError) bool {
	he, ok := err.(*echo.HTTPError)
	if ok {
		*target = he
	}
	return ok
}
