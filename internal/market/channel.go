package market

import (
	"context"
	"sync"
	"time"

	"signaldesk/internal/logger"
	"signaldesk/internal/scheduler"
)

// FetchFunc loads one snapshot for key.
type FetchFunc[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Spec describes one polling channel.
type Spec[K comparable, T any] struct {
	Name       string
	Interval   time.Duration
	Discipline scheduler.Discipline
	Fetch      FetchFunc[K, T]
	// Zero is the state the channel holds right after (re)keying.
	Zero func(key K) T
	// Fallback computes the degraded value after a failed fetch. Nil keeps prev.
	Fallback func(key K, prev T) T
}

// Status describes the channel without exposing its write path.
type Status struct {
	Name       string    `json:"name"`
	Running    bool      `json:"running"`
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updatedAt"`
	LastError  string    `json:"lastError,omitempty"`
}

// Channel 是按参数分代的轮询单元：每次换参数都会递增 generation，
// 旧 generation 的响应一律丢弃；同一 generation 内只应用比已应用更新的请求序号。
type Channel[K comparable, T any] struct {
	spec Spec[K, T]
	log  logger.Prefixed

	mu        sync.RWMutex
	parent    context.Context
	cancel    context.CancelFunc
	loop      *scheduler.Loop
	running   bool
	key       K
	gen       uint64
	issued    uint64
	applied   uint64
	snapshot  T
	updatedAt time.Time
	lastErr   error
	subs      []func(K, T)
	nowFn     func() time.Time
}

func NewChannel[K comparable, T any](spec Spec[K, T]) *Channel[K, T] {
	if spec.Zero == nil {
		spec.Zero = func(K) T {
			var zero T
			return zero
		}
	}
	return &Channel[K, T]{
		spec:  spec,
		log:   logger.Prefixed("poll:" + spec.Name),
		nowFn: time.Now,
	}
}

// Start mounts the channel for key: an immediate fetch, then the spec's cadence.
func (c *Channel[K, T]) Start(ctx context.Context, key K) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.parent = ctx
	notify := c.restartLocked(key)
	c.mu.Unlock()
	notify()
}

// SetKey re-keys a running channel. Equal keys are a no-op. Stopped channels
// only record the key for the next Start.
func (c *Channel[K, T]) SetKey(key K) {
	c.mu.Lock()
	if !c.running {
		c.key = key
		c.mu.Unlock()
		return
	}
	if key == c.key {
		c.mu.Unlock()
		return
	}
	notify := c.restartLocked(key)
	c.mu.Unlock()
	notify()
}

// Stop halts scheduling; in-flight responses are dropped when they arrive.
func (c *Channel[K, T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.gen++
	c.running = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Refresh wakes the loop for an early fetch. It keeps the channel's
// discipline, so a self-rescheduling channel never has two requests in flight.
func (c *Channel[K, T]) Refresh() {
	c.mu.RLock()
	running, loop := c.running, c.loop
	c.mu.RUnlock()
	if !running || loop == nil {
		return
	}
	loop.Wake()
}

// Snapshot returns the latest applied value. Values are replaced wholesale
// and must not be mutated by callers.
func (c *Channel[K, T]) Snapshot() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Key returns the current parameter set.
func (c *Channel[K, T]) Key() K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

func (c *Channel[K, T]) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{
		Name:       c.spec.Name,
		Running:    c.running,
		Generation: c.gen,
		UpdatedAt:  c.updatedAt,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

// Subscribe registers fn to run after every applied update and every reset.
// fn runs outside the channel lock.
func (c *Channel[K, T]) Subscribe(fn func(key K, value T)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Channel[K, T]) restartLocked(key K) func() {
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.issued = 0
	c.applied = 0
	c.key = key
	c.snapshot = c.spec.Zero(key)
	c.updatedAt = time.Time{}
	c.lastErr = nil
	c.running = true

	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	gen := c.gen
	loop := scheduler.NewLoop(ctx, c.spec.Name, c.spec.Interval, c.spec.Discipline)
	c.loop = loop
	go loop.Start(func(runCtx context.Context) {
		c.poll(runCtx, gen, key)
	})
	return c.notifier(key, c.snapshot)
}

func (c *Channel[K, T]) poll(ctx context.Context, gen uint64, key K) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	value, err := c.spec.Fetch(ctx, key)

	c.mu.Lock()
	if gen != c.gen || !c.running {
		c.mu.Unlock()
		c.log.Debugf("discard stale response gen=%d", gen)
		return
	}
	if seq <= c.applied {
		c.mu.Unlock()
		c.log.Debugf("discard out-of-order response seq=%d applied=%d", seq, c.applied)
		return
	}
	c.applied = seq
	if err != nil {
		c.lastErr = err
		if c.spec.Fallback != nil {
			c.snapshot = c.spec.Fallback(key, c.snapshot)
		}
		c.log.Debugf("fetch failed, degrade: %v", err)
	} else {
		c.lastErr = nil
		c.snapshot = value
		c.updatedAt = c.nowFn()
	}
	notify := c.notifier(key, c.snapshot)
	c.mu.Unlock()
	notify()
}

func (c *Channel[K, T]) notifier(key K, value T) func() {
	if len(c.subs) == 0 {
		return func() {}
	}
	subs := append([]func(K, T){}, c.subs...)
	return func() {
		for _, fn := range subs {
			fn(key, value)
		}
	}
}
