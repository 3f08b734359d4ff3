// Package retention purges expired conversations and evicts idle sessions on
// a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"fleet-assistant/internal/chat/store"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/metrics"

	rcron "github.com/robfig/cron/v3"
)

// DefaultSchedule runs the purge daily at 03:15.
const DefaultSchedule = "15 3 * * *"

// DefaultEvictSchedule releases idle sessions from memory.
const DefaultEvictSchedule = "@every 10m"

const runTimeout = 5 * time.Minute

// Evictor drops in-memory sessions idle since before cutoff.
type Evictor interface {
	EvictIdle(cutoff time.Time) int
}

type Result struct {
	Purged  int
	Evicted int
}

type Job struct {
	purger    store.Purger
	sessions  Evictor
	retention time.Duration
	idleTTL   time.Duration
	logger    logger.Logger
	now       func() time.Time
}

// NewJob accepts a nil sessions for the one-shot purge command.
func NewJob(purger store.Purger, sessions Evictor, retention, idleTTL time.Duration, log logger.Logger) *Job {
	if retention <= 0 {
		retention = store.DefaultRetention
	}
	return &Job{
		purger:    purger,
		sessions:  sessions,
		retention: retention,
		idleTTL:   idleTTL,
		logger:    log.WithFields(map[string]interface{}{"component": "retention"}),
		now:       time.Now,
	}
}

// Run evicts idle sessions and purges expired conversations once.
func (j *Job) Run(ctx context.Context) (Result, error) {
	res := Result{Evicted: j.Evict()}
	purged, err := j.Purge(ctx)
	res.Purged = purged
	return res, err
}

// Evict releases sessions idle for longer than the idle TTL.
func (j *Job) Evict() int {
	if j.sessions == nil || j.idleTTL <= 0 {
		return 0
	}
	n := j.sessions.EvictIdle(j.now().Add(-j.idleTTL))
	if n > 0 {
		j.logger.Debug("idle sessions evicted", map[string]interface{}{"evicted": n})
	}
	return n
}

// Purge deletes conversations inactive for longer than the retention window.
func (j *Job) Purge(ctx context.Context) (int, error) {
	purged, err := j.purger.Purge(ctx, j.now().Add(-j.retention))
	if err != nil {
		metrics.StoreErrors.WithLabelValues("retention", "purge").Inc()
		j.logger.Error("conversation purge failed", map[string]interface{}{"error": err})
		return purged, err
	}

	j.logger.Info("conversation purge finished", map[string]interface{}{
		"purged":        purged,
		"retentionDays": int(j.retention.Hours() / 24),
	})
	return purged, nil
}

// Schedule starts a cron with two entries: the purge on purgeSchedule and
// idle eviction on evictSchedule. Stop the returned cron on shutdown.
func Schedule(purgeSchedule, evictSchedule string, job *Job) (*rcron.Cron, error) {
	if purgeSchedule == "" {
		purgeSchedule = DefaultSchedule
	}
	if evictSchedule == "" {
		evictSchedule = DefaultEvictSchedule
	}

	c := rcron.New()
	if _, err := c.AddFunc(purgeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		_, _ = job.Purge(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", purgeSchedule, err)
	}
	if _, err := c.AddFunc(evictSchedule, func() { job.Evict() }); err != nil {
		return nil, fmt.Errorf("invalid eviction schedule %q: %w", evictSchedule, err)
	}
	c.Start()
	return c, nil
}
