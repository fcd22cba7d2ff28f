package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"signaldesk/internal/logger"
	"signaldesk/internal/scheduler"
	"signaldesk/internal/types"
)

var stateLog = logger.Prefixed("strategy")

// ErrInvalidPatch 补丁在本地校验阶段即被拒绝，不会发往服务端。
var ErrInvalidPatch = errors.New("invalid strategy patch")

// PreferenceStore 保存会话内的用户偏好，仅在内存中，不做持久化。
type PreferenceStore struct {
	mu    sync.RWMutex
	prefs types.Preferences
	subs  []func(prev, next types.Preferences)
}

func NewPreferenceStore(initial types.Preferences) *PreferenceStore {
	return &PreferenceStore{prefs: initial.Normalize()}
}

// Get returns the current preferences.
func (s *PreferenceStore) Get() types.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Update merges patch with numeric coercion. It never rejects input.
func (s *PreferenceStore) Update(patch types.PreferencePatch) types.Preferences {
	s.mu.Lock()
	prev := s.prefs
	next := prev.Apply(patch)
	s.prefs = next
	subs := append([]func(prev, next types.Preferences){}, s.subs...)
	s.mu.Unlock()

	if prev != next {
		for _, fn := range subs {
			fn(prev, next)
		}
	}
	return next
}

// Subscribe registers fn for every effective change.
func (s *PreferenceStore) Subscribe(fn func(prev, next types.Preferences)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// ConfigWriter pushes a partial strategy patch to the server.
type ConfigWriter interface {
	PatchStrategyConfig(ctx context.Context, patch types.StrategyPatch) (types.StrategyConfig, error)
}

// ConfigState mirrors the server-held strategy configuration. Local patches
// apply optimistically, the write response replaces them, and every poll
// overwrites whatever is held locally.
type ConfigState struct {
	writer ConfigWriter

	mu       sync.RWMutex
	cfg      types.StrategyConfig
	loaded   bool
	pending  bool
	writeSeq uint64
}

func NewConfigState(writer ConfigWriter) *ConfigState {
	return &ConfigState{writer: writer, cfg: types.DefaultStrategyConfig()}
}

// Get returns the local copy and whether it has been seen from the server.
func (s *ConfigState) Get() (types.StrategyConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.loaded
}

// Pending reports whether a local patch is still unconfirmed.
func (s *ConfigState) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// ApplyServer installs a polled server copy.
func (s *ConfigState) ApplyServer(cfg types.StrategyConfig) {
	if cfg.Timeframe == "" {
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.loaded = true
	s.pending = false
	s.mu.Unlock()
}

// Patch applies patch locally, then pushes it. On failure the optimistic copy
// stays until the next poll and the error is returned.
func (s *ConfigState) Patch(ctx context.Context, patch types.StrategyPatch) (types.StrategyConfig, error) {
	if patch.IsEmpty() {
		return types.StrategyConfig{}, fmt.Errorf("%w: empty", ErrInvalidPatch)
	}
	if patch.Timeframe != nil && !validTimeframe(*patch.Timeframe) {
		return types.StrategyConfig{}, fmt.Errorf("%w: timeframe must be one of %v", ErrInvalidPatch, types.Timeframes)
	}

	s.mu.Lock()
	s.cfg = s.cfg.Apply(patch)
	s.pending = true
	s.writeSeq++
	seq := s.writeSeq
	optimistic := s.cfg
	s.mu.Unlock()

	if s.writer == nil {
		return optimistic, fmt.Errorf("config writer not configured")
	}
	server, err := s.writer.PatchStrategyConfig(ctx, patch)
	if err != nil {
		stateLog.Warnf("config push failed, keep optimistic copy: %v", err)
		return optimistic, fmt.Errorf("push strategy config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.writeSeq {
		// 更新的本地修改仍在途中，以它的响应为准。
		return s.cfg, nil
	}
	s.cfg = server
	s.loaded = true
	s.pending = false
	return server, nil
}

// validTimeframe 先确认是合法周期，再限制在服务端支持的集合内。
func validTimeframe(tf string) bool {
	if _, ok := scheduler.ParseIntervalDuration(tf); !ok {
		return false
	}
	return types.IsTimeframe(tf)
}
