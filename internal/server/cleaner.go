package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/askagent/askagent/internal/runindex"
	"github.com/askagent/askagent/internal/store"
)

// Cleaner deletes runs older than MaxAge on the configured cron
// schedule. The redis lock keeps replicas from sweeping concurrently.
type Cleaner struct {
	Store    *store.Store
	Index    *runindex.Index
	Rdb      *redis.Client
	CronSpec string
	MaxAge   time.Duration
	Logger   *log.Logger
	Stop     chan struct{}

	lastSweep *time.Time
}

func (cl *Cleaner) Start() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-cl.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				cl.tick(time.Now())
			}
		}
	}()
}

func (cl *Cleaner) tick(now time.Time) {
	if !isDue(cl.CronSpec, cl.lastSweep, now) {
		return
	}
	ctx := context.Background()
	if cl.Rdb != nil {
		ok, _ := cl.Rdb.SetNX(ctx, "retention:lock", "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer cl.Rdb.Del(ctx, "retention:lock")
	}
	t := now
	cl.lastSweep = &t

	cutoff := now.Add(-cl.MaxAge)
	deleted, err := cl.Store.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		cl.Logger.Printf("retention sweep failed: %v", err)
		return
	}
	if len(deleted) > 0 {
		if cl.Index != nil {
			for _, id := range deleted {
				_ = cl.Index.Remove(id)
			}
		}
		retentionDeleted.Add(float64(len(deleted)))
		cl.Logger.Printf("retention sweep removed %d runs older than %s", len(deleted), cl.MaxAge)
	}
}

// isDue reports whether the schedule fired between the last sweep and
// now. Supports "@daily", "@hourly", and 5-field cron expressions.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.IsZero() && !next.After(now)
	}
}
