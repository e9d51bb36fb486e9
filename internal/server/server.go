package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/askagent/askagent/config"
	"github.com/askagent/askagent/internal/pipeline"
	"github.com/askagent/askagent/internal/runindex"
	"github.com/askagent/askagent/internal/session"
	"github.com/askagent/askagent/internal/store"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	return e
}

// Run wires the full server: config, migrations, store, session store,
// run index, research pipeline, retention cleaner, and routes.
func Run(addr string, cfg *config.Config) error {
	e := newEcho()

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := cfg.Server.Validate(); err != nil {
		return err
	}
	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	dsn := cfg.Storage.Postgres.DSN()
	if err := store.Migrate("file://migrations", dsn, "up", 0); err != nil {
		log.Printf("migrate: %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	// Redis is optional. With it, sessions survive restarts and the
	// retention cleaner coordinates across replicas.
	var rdb *redis.Client
	if cfg.Storage.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr, err)
		}
	}
	storeType := session.InMemoryStore
	if rdb != nil {
		storeType = session.RedisStore
	}
	sessions, err := session.NewStore(storeType, rdb, cfg.Server.SessionTTL)
	if err != nil {
		return err
	}

	index, err := runindex.New()
	if err != nil {
		return err
	}
	// Rebuild the search index from persisted runs on startup.
	if runs, err := st.ListRuns(ctx, "", 0); err == nil {
		for _, r := range runs {
			run, ok, err := st.GetRun(ctx, r.ID)
			if err != nil || !ok {
				continue
			}
			var stored struct {
				FinalAnswer string `json:"final_answer"`
			}
			_ = json.Unmarshal(run.Result, &stored)
			_ = index.IndexRun(run.ID, runindex.Doc{
				Question:  run.Question,
				Answer:    stored.FinalAnswer,
				CreatedAt: run.CreatedAt,
			})
		}
	}

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := pipeline.New(cfg, orchLogger)

	secret := []byte(cfg.Server.SessionSecret)
	api := e.Group("/api")
	api.Use(withSession(secret, cfg.Server.SessionTTL))

	rh := &ResearchHandler{Cfg: cfg, Pipeline: orch, Store: st, Sessions: sessions, Index: index}
	rh.Register(api)

	runsHandler := &RunsHandler{Store: st, Index: index}
	runsHandler.Register(api)

	if cfg.Retention.Enabled {
		cleaner := &Cleaner{
			Store:    st,
			Index:    index,
			Rdb:      rdb,
			CronSpec: cfg.Retention.CronSpec,
			MaxAge:   cfg.Retention.MaxAge,
			Logger:   log.New(log.Writer(), "[CLEANER] ", log.LstdFlags),
			Stop:     make(chan struct{}),
		}
		cleaner.Start()
	}

	if addr == "" {
		addr = cfg.Server.Address
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":8000"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
