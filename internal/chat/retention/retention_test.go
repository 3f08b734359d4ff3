package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleet-assistant/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	cutoff time.Time
	n      int
	err    error
}

func (f *fakePurger) Purge(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

type fakeEvictor struct {
	cutoff time.Time
}

func (f *fakeEvictor) EvictIdle(cutoff time.Time) int {
	f.cutoff = cutoff
	return 2
}

func TestJob_Run(t *testing.T) {
	now := time.Date(2024, 3, 1, 3, 15, 0, 0, time.UTC)
	purger := &fakePurger{n: 7}
	evictor := &fakeEvictor{}

	job := NewJob(purger, evictor, 30*24*time.Hour, time.Hour, logger.NewTestLogger(t))
	job.now = func() time.Time { return now }

	res, err := job.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Purged: 7, Evicted: 2}, res)
	assert.Equal(t, now.Add(-30*24*time.Hour), purger.cutoff)
	assert.Equal(t, now.Add(-time.Hour), evictor.cutoff)
}

func TestJob_RunWithoutSessions(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down")}
	job := NewJob(purger, nil, 0, time.Hour, logger.NewNoOpLogger())

	res, err := job.Run(context.Background())

	require.Error(t, err)
	assert.Zero(t, res.Evicted)
	assert.False(t, purger.cutoff.IsZero())
}

func TestJob_EvictAndPurgeAreIndependent(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	purger := &fakePurger{n: 3}
	evictor := &fakeEvictor{}

	job := NewJob(purger, evictor, 0, 30*time.Minute, logger.NewNoOpLogger())
	job.now = func() time.Time { return now }

	assert.Equal(t, 2, job.Evict())
	assert.Equal(t, now.Add(-30*time.Minute), evictor.cutoff)
	assert.True(t, purger.cutoff.IsZero())

	n, err := job.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, now.Add(-30*24*time.Hour), purger.cutoff)
}

func TestSchedule(t *testing.T) {
	job := NewJob(&fakePurger{}, nil, 0, 0, logger.NewNoOpLogger())

	_, err := Schedule("not a schedule", "", job)
	assert.Error(t, err)
	_, err = Schedule("", "every so often", job)
	assert.Error(t, err)

	c, err := Schedule("", "", job)
	require.NoError(t, err)
	require.Len(t, c.Entries(), 2)
	<-c.Stop().Done()
}

func TestSchedule_EvictionRunsWithoutPurge(t *testing.T) {
	purger := &fakePurger{}
	evicted := make(chan time.Time, 1)
	job := NewJob(purger, evictFunc(func(cutoff time.Time) int {
		select {
		case evicted <- cutoff:
		default:
		}
		return 1
	}), 0, time.Minute, logger.NewNoOpLogger())

	c, err := Schedule("0 0 1 1 *", "@every 1s", job)
	require.NoError(t, err)
	defer func() { <-c.Stop().Done() }()

	select {
	case <-evicted:
	case <-time.After(3 * time.Second):
		t.Fatal("idle eviction did not run")
	}
	assert.True(t, purger.cutoff.IsZero())
}

type evictFunc func(cutoff time.Time) int

func (f evictFunc) EvictIdle(cutoff time.Time) int { return f(cutoff) }
