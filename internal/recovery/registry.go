package recovery

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type flowEntry struct {
	flow     *Flow
	lastSeen time.Time
}

// Registry keeps at most one live flow per client ID.
type Registry struct {
	api     PasswordResetter
	clock   Clock
	timings Timings
	logger  *zap.Logger

	mu    sync.Mutex
	flows map[string]*flowEntry
	// finished holds clients whose flow ended with the redirect to login.
	finished map[string]time.Time
}

// NewRegistry creates an empty registry. Every flow gets its own Scheduler
// on clock.
func NewRegistry(api PasswordResetter, clock Clock, timings Timings, logger *zap.Logger) *Registry {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		api:      api,
		clock:    clock,
		timings:  timings,
		logger:   logger,
		flows:    make(map[string]*flowEntry),
		finished: make(map[string]time.Time),
	}
}

// Acquire returns the client's flow, starting a new one when there is none.
func (r *Registry) Acquire(clientID string) *Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[clientID]
	if !ok {
		flow := NewFlow(r.api, NewScheduler(r.clock), r.timings, r.logger.With(zap.String("client_id", clientID)))
		flow.OnNavigate(func() { r.finish(clientID, flow) })
		e = &flowEntry{flow: flow}
		r.flows[clientID] = e
		delete(r.finished, clientID)
	}
	e.lastSeen = r.clock.Now()
	return e.flow
}

// finish drops flow once its redirect fired, unless a newer flow replaced it.
func (r *Registry) finish(clientID string, flow *Flow) {
	r.mu.Lock()
	e, ok := r.flows[clientID]
	current := ok && e.flow == flow
	if current {
		delete(r.flows, clientID)
		r.finished[clientID] = r.clock.Now()
	}
	r.mu.Unlock()

	if current {
		flow.Close()
		r.logger.Debug("recovery finished", zap.String("client_id", clientID))
	}
}

// TakeFinished reports whether the client's flow ended with the redirect to
// login since it last asked. The mark is consumed.
func (r *Registry) TakeFinished(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.finished[clientID]
	delete(r.finished, clientID)
	return ok
}

// Peek returns the client's flow without creating one.
func (r *Registry) Peek(clientID string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[clientID]
	if !ok {
		return nil, false
	}
	return e.flow, true
}

// Discard closes and forgets the client's flow.
func (r *Registry) Discard(clientID string) {
	r.mu.Lock()
	e, ok := r.flows[clientID]
	delete(r.flows, clientID)
	r.mu.Unlock()
	if ok {
		e.flow.Close()
	}
}

// Sweep closes flows idle for longer than idle. Flows with a backend call in
// flight are kept.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.clock.Now().Add(-idle)
	var stale []*Flow

	r.mu.Lock()
	for id, e := range r.flows {
		if e.lastSeen.Before(cutoff) && !e.flow.Busy() {
			stale = append(stale, e.flow)
			delete(r.flows, id)
		}
	}
	for id, at := range r.finished {
		if at.Before(cutoff) {
			delete(r.finished, id)
		}
	}
	r.mu.Unlock()

	for _, f := range stale {
		f.Close()
	}
	return len(stale)
}

// Len returns the number of live flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Close closes every flow.
func (r *Registry) Close() {
	r.mu.Lock()
	flows := r.flows
	r.flows = make(map[string]*flowEntry)
	r.mu.Unlock()
	for _, e := range flows {
		e.flow.Close()
	}
}
