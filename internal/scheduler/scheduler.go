package scheduler

import (
	"context"
	"sync"
	"time"

	"signaldesk/internal/logger"
)

// Discipline decides when the next run is scheduled.
type Discipline int

const (
	// FixedInterval fires on a constant cadence; a slow run does not delay the next one.
	FixedInterval Discipline = iota
	// SelfRescheduling waits for a run to settle, then sleeps Interval.
	SelfRescheduling
)

func (d Discipline) String() string {
	if d == SelfRescheduling {
		return "self-rescheduling"
	}
	return "fixed-interval"
}

// Loop runs a task immediately and then repeatedly until ctx is done.
type Loop struct {
	Name       string
	Interval   time.Duration
	Discipline Discipline

	ctx  context.Context
	wg   sync.WaitGroup
	wake chan struct{}
}

func NewLoop(ctx context.Context, name string, interval time.Duration, discipline Discipline) *Loop {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Loop{
		Name:       name,
		Interval:   interval,
		Discipline: discipline,
		ctx:        ctx,
		wake:       make(chan struct{}, 1),
	}
}

// Wake asks for a run now. SelfRescheduling loops cut the current sleep short
// but never start a run while one is in flight; a wake during a run triggers
// one more run right after it settles. Wakes coalesce.
func (l *Loop) Wake() {
	if l == nil || l.wake == nil {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Start blocks until the loop context is cancelled. In FixedInterval mode each
// run gets its own goroutine, so runs may overlap.
func (l *Loop) Start(task func(ctx context.Context)) {
	if l == nil {
		return
	}
	prefix := logger.Prefixed("scheduler:" + l.Name)
	if task == nil {
		prefix.Warnf("task is nil, exit")
		return
	}
	if l.Interval <= 0 {
		prefix.Warnf("invalid interval=%s, exit", l.Interval)
		return
	}
	if l.ctx == nil {
		l.ctx = context.Background()
	}
	prefix.Debugf("started interval=%s discipline=%s", l.Interval, l.Discipline)

	switch l.Discipline {
	case SelfRescheduling:
		l.runSelfRescheduling(task)
	default:
		l.runFixed(task)
	}
	prefix.Debugf("ctx done, exit")
}

// Wait blocks until every run spawned by a FixedInterval loop has returned.
func (l *Loop) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}

func (l *Loop) runFixed(task func(ctx context.Context)) {
	spawn := func() {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			task(l.ctx)
		}()
	}
	if l.ctx.Err() != nil {
		return
	}
	spawn()
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			if l.ctx.Err() != nil {
				return
			}
			spawn()
		case <-l.wake:
			if l.ctx.Err() != nil {
				return
			}
			spawn()
		}
	}
}

func (l *Loop) runSelfRescheduling(task func(ctx context.Context)) {
	for {
		if l.ctx.Err() != nil {
			return
		}
		task(l.ctx)
		if !l.sleep(l.Interval) {
			return
		}
	}
}

func (l *Loop) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	select {
	case <-l.ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	case <-l.wake:
		timer.Stop()
		return l.ctx.Err() == nil
	}
}
