package flow

import (
	"sort"
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealScheduler is backed by time.AfterFunc.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ManualScheduler runs tasks only when Advance moves its clock past them.
type ManualScheduler struct {
	mu    sync.Mutex
	clock time.Duration
	tasks []*manualTask
}

type manualTask struct {
	s       *ManualScheduler
	at      time.Duration
	fn      func()
	fired   bool
	stopped bool
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, at: s.clock + d, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Pending returns the delays, relative to now, of tasks that have not run.
func (s *ManualScheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			out = append(out, t.at-s.clock)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Advance moves the clock by d and runs every task that became due, in
// order, outside the lock.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.clock += d
	var due []*manualTask
	for _, t := range s.tasks {
		if !t.fired && !t.stopped && t.at <= s.clock {
			t.fired = true
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}
