package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/askagent/askagent/config"
	"github.com/askagent/askagent/internal/pipeline"
	"github.com/askagent/askagent/internal/runindex"
	"github.com/askagent/askagent/internal/session"
	"github.com/askagent/askagent/internal/store"
)

// Researcher runs the research pipeline. Satisfied by
// *pipeline.Orchestrator.
type Researcher interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type ResearchHandler struct {
	Cfg      *config.Config
	Pipeline Researcher
	Store    *store.Store
	Sessions session.Store
	Index    *runindex.Index
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/research", h.research)
	g.GET("/settings", h.getSettings)
	g.POST("/settings", h.putSettings)
	g.POST("/test-settings", h.testSettings)
}

// resolve merges credentials in priority order: request payload, then
// session settings, then server config.
func (h *ResearchHandler) resolve(ctx context.Context, c echo.Context, req ResearchRequest) (pipeline.Credentials, pipeline.DatasetIDs) {
	var saved session.Settings
	if h.Sessions != nil {
		if s, ok, err := h.Sessions.Get(ctx, sessionID(c)); err == nil && ok {
			saved = s
		}
	}
	pick := func(vals ...string) string {
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				return v
			}
		}
		return ""
	}
	creds := pipeline.Credentials{
		LLMKey:      pick(req.LLMKey, saved.LLMKey, h.Cfg.LLM.APIKey),
		ScrapingKey: pick(req.ScrapingKey, saved.ScrapingKey, h.Cfg.Scraping.APIKey),
	}
	ids := pipeline.DatasetIDs{
		Posts:    pick(req.PostsDatasetID, saved.PostsDatasetID, h.Cfg.Datasets.PostsDatasetID),
		Comments: pick(req.CommentsDatasetID, saved.CommentsDatasetID, h.Cfg.Datasets.CommentsDatasetID),
	}
	return creds, ids
}

func (h *ResearchHandler) research(c echo.Context) error {
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	creds, ids := h.resolve(ctx, c, req)

	started := time.Now()
	result, err := h.Pipeline.Run(ctx, pipeline.Request{
		Question:    req.Question,
		Credentials: creds,
		Datasets:    ids,
	})
	if err != nil {
		var pf *pipeline.PreflightError
		if errors.As(err, &pf) {
			researchRuns.WithLabelValues("rejected").Inc()
			return echo.NewHTTPError(http.StatusBadRequest, pf.Reason)
		}
		researchRuns.WithLabelValues("error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	researchDuration.Observe(time.Since(started).Seconds())
	researchRuns.WithLabelValues("completed").Inc()
	for source, status := range result.Statuses {
		if status == pipeline.StatusFailed {
			sourceFailures.WithLabelValues(string(source)).Inc()
		}
	}

	runID := ""
	if h.Store != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		runID, err = h.Store.SaveRun(ctx, sessionID(c), req.Question, payload)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if h.Index != nil {
			_ = h.Index.IndexRun(runID, runindex.Doc{
				Question:  req.Question,
				Answer:    result.FinalAnswer,
				CreatedAt: time.Now(),
			})
		}
	}
	return c.JSON(http.StatusOK, ResearchResponse{RunID: runID, Result: result})
}

func (h *ResearchHandler) getSettings(c echo.Context) error {
	var saved session.Settings
	if h.Sessions != nil {
		if s, ok, err := h.Sessions.Get(c.Request().Context(), sessionID(c)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		} else if ok {
			saved = s
		}
	}
	return c.JSON(http.StatusOK, SettingsResponse{
		LLMKey:            mask(saved.LLMKey),
		ScrapingKey:       mask(saved.ScrapingKey),
		PostsDatasetID:    saved.PostsDatasetID,
		CommentsDatasetID: saved.CommentsDatasetID,
		Model:             saved.Model,
	})
}

func (h *ResearchHandler) putSettings(c echo.Context) error {
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.Sessions == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store not configured")
	}
	err := h.Sessions.Put(c.Request().Context(), sessionID(c), session.Settings{
		LLMKey:            req.LLMKey,
		ScrapingKey:       req.ScrapingKey,
		PostsDatasetID:    req.PostsDatasetID,
		CommentsDatasetID: req.CommentsDatasetID,
		Model:             req.Model,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// testSettings validates a settings payload without any network calls.
func (h *ResearchHandler) testSettings(c echo.Context) error {
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	creds, ids := h.resolve(c.Request().Context(), c, ResearchRequest{
		LLMKey:            req.LLMKey,
		ScrapingKey:       req.ScrapingKey,
		PostsDatasetID:    req.PostsDatasetID,
		CommentsDatasetID: req.CommentsDatasetID,
	})
	res := pipeline.Preflight(creds, ids)
	return c.JSON(http.StatusOK, TestSettingsResponse{OK: res.OK, Reason: res.Reason})
}

// mask hides all but the tail of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
