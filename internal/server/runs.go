package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/askagent/askagent/internal/runindex"
	"github.com/askagent/askagent/internal/store"
)

// RunStore is the persistence surface the runs handlers need. Satisfied
// by *store.Store.
type RunStore interface {
	GetRun(ctx context.Context, id string) (store.Run, bool, error)
	ListRuns(ctx context.Context, sessionID string, limit int) ([]store.RunSummary, error)
	ClearRuns(ctx context.Context, sessionID string) (int64, error)
	CreateShare(ctx context.Context, runID string) (string, error)
	GetSharedRun(ctx context.Context, shareID string) (store.Run, bool, error)
}

type RunsHandler struct {
	Store RunStore
	Index *runindex.Index
}

func (h *RunsHandler) Register(api *echo.Group) {
	runs := api.Group("/runs")
	runs.GET("", h.list)
	runs.GET("/search", h.search)
	runs.GET("/:id", h.get)
	runs.DELETE("", h.clear)
	runs.POST("/:id/share", h.share)

	api.GET("/share/:id", h.getShared)
}

func (h *RunsHandler) list(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	runs, err := h.Store.ListRuns(c.Request().Context(), sessionID(c), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]RunSummaryResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunSummaryResponse{ID: r.ID, Question: r.Question, HasAnswer: r.HasAnswer, CreatedAt: r.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RunsHandler) get(c echo.Context) error {
	run, ok, err := h.Store.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Another session's run is indistinguishable from a missing one.
	if !ok || run.SessionID != sessionID(c) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, runResponse(run))
}

func (h *RunsHandler) clear(c echo.Context) error {
	deleted, err := h.Store.ClearRuns(c.Request().Context(), sessionID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *RunsHandler) share(c echo.Context) error {
	id := c.Param("id")
	run, ok, err := h.Store.GetRun(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Only the owning session can mint a share link.
	if !ok || run.SessionID != sessionID(c) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	shareID, err := h.Store.CreateShare(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ShareResponse{
		ShareID: shareID,
		URL:     fmt.Sprintf("%s://%s/api/share/%s", c.Scheme(), c.Request().Host, shareID),
	})
}

func (h *RunsHandler) getShared(c echo.Context) error {
	run, ok, err := h.Store.GetSharedRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "share not found")
	}
	return c.JSON(http.StatusOK, runResponse(run))
}

func (h *RunsHandler) search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing q")
	}
	k := 10
	if raw := c.QueryParam("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid k")
		}
		k = n
	}
	if h.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search index not configured")
	}
	hits, err := h.Index.Search(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]SearchHitResponse, 0, len(hits))
	for _, hit := range hits {
		out = append(out, SearchHitResponse{RunID: hit.RunID, Question: hit.Question, Score: hit.Score, Rank: hit.Rank})
	}
	return c.JSON(http.StatusOK, out)
}

func runResponse(run store.Run) RunResponse {
	var result any
	if len(run.Result) > 0 {
		_ = json.Unmarshal(run.Result, &result)
	}
	return RunResponse{ID: run.ID, Question: run.Question, Result: result, CreatedAt: run.CreatedAt}
}
