package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry hands out one Manager per client ID. Managers are created on first
// use and restored before they are returned.
type Registry struct {
	deps Dependencies

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Dependencies) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{deps: deps, entries: make(map[string]*entry)}
}

// Acquire returns the restored manager for clientID.
func (r *Registry) Acquire(ctx context.Context, clientID string) *Manager {
	r.mu.Lock()
	e, ok := r.entries[clientID]
	if !ok {
		e = &entry{manager: NewManager(clientID, r.deps)}
		r.entries[clientID] = e
	}
	e.lastSeen = r.deps.Now()
	r.mu.Unlock()

	e.manager.Restore(ctx)
	if err := e.manager.RetryClear(ctx); err != nil {
		r.logger().Warn("clear persisted session failed", zap.String("client_id", clientID), zap.Error(err))
	}
	return e.manager
}

func (r *Registry) logger() *zap.Logger {
	if r.deps.Logger == nil {
		return zap.NewNop()
	}
	return r.deps.Logger
}

// Sweep evicts managers unused for longer than idle. Persisted records are
// untouched; the next Acquire restores from them. A manager whose logout has
// not reached storage yet retries the clear and stays until it succeeds, so
// the logged out record is never restored.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := r.deps.Now().Add(-idle)
	r.mu.Lock()
	var idleEntries []string
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			idleEntries = append(idleEntries, id)
		}
	}
	r.mu.Unlock()

	evicted := 0
	for _, id := range idleEntries {
		r.mu.Lock()
		e, ok := r.entries[id]
		r.mu.Unlock()
		if !ok {
			continue
		}
		if err := e.manager.RetryClear(ctx); err != nil {
			r.logger().Warn("clear persisted session failed", zap.String("client_id", id), zap.Error(err))
			continue
		}

		r.mu.Lock()
		if cur, ok := r.entries[id]; ok && cur == e && e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
		r.mu.Unlock()
	}
	return evicted
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
