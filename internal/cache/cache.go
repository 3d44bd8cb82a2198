// Package cache provides the compute-once stores shared by the resolver and
// the compiler. A strategy is picked once at startup; callers never branch on
// the environment themselves.
package cache

import (
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"pagerouter/internal/domain/config"
	"pagerouter/internal/logfields"
	"pagerouter/internal/metrics"
)

// Cache returns the value stored for key, computing it with fn on a miss.
// Values are stored only when fn succeeds.
type Cache[V any] interface {
	Do(key string, fn func() (V, error)) (V, error)
}

// Backend persists encoded values across processes.
type Backend interface {
	Load(key string) ([]byte, bool, error)
	Store(key string, val []byte) error
}

// New builds the cache for strategy. backend is only used by the persistent
// strategy and may be nil otherwise.
func New[V any](strategy config.CacheStrategy, name string, backend Backend, rec metrics.Recorder) Cache[V] {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	switch strategy {
	case config.CachePassthrough:
		return Passthrough[V]{}
	case config.CachePersistent:
		if backend != nil {
			return NewPersistent[V](name, backend, rec)
		}
		slog.Warn("persistent cache requested without backend, using memory", logfields.Cache(name))
		return NewMemo[V](name, rec)
	default:
		return NewMemo[V](name, rec)
	}
}

// Passthrough computes every time.
type Passthrough[V any] struct{}

func (Passthrough[V]) Do(_ string, fn func() (V, error)) (V, error) {
	return fn()
}

// Memo keeps every successful value for the lifetime of the process.
// Concurrent misses on the same key run fn once.
type Memo[V any] struct {
	name  string
	rec   metrics.Recorder
	mu    sync.RWMutex
	items map[string]V
	group singleflight.Group
}

func NewMemo[V any](name string, rec metrics.Recorder) *Memo[V] {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Memo[V]{name: name, rec: rec, items: make(map[string]V)}
}

func (m *Memo[V]) get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *Memo[V]) Do(key string, fn func() (V, error)) (V, error) {
	if v, ok := m.get(key); ok {
		m.rec.IncCacheResult(m.name, true)
		return v, nil
	}
	m.rec.IncCacheResult(m.name, false)

	v, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.items[key] = v
		m.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (m *Memo[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Persistent is a Memo whose misses first consult a Backend, so compiled
// output survives restarts. Values are JSON encoded.
type Persistent[V any] struct {
	memo    *Memo[V]
	backend Backend
}

func NewPersistent[V any](name string, backend Backend, rec metrics.Recorder) *Persistent[V] {
	return &Persistent[V]{memo: NewMemo[V](name, rec), backend: backend}
}

func (p *Persistent[V]) Do(key string, fn func() (V, error)) (V, error) {
	return p.memo.Do(key, func() (V, error) {
		if raw, ok, err := p.backend.Load(key); err == nil && ok {
			var v V
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
		} else if err != nil {
			slog.Warn("cache backend load failed", logfields.Cache(p.memo.name), logfields.Error(err))
		}

		v, err := fn()
		if err != nil {
			return v, err
		}
		if raw, err := json.Marshal(v); err == nil {
			if err := p.backend.Store(key, raw); err != nil {
				slog.Warn("cache backend store failed", logfields.Cache(p.memo.name), logfields.Error(err))
			}
		}
		return v, nil
	})
}
