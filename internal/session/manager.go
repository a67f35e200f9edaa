// Package session owns the authenticated session of every client instance:
// who is logged in, with which bearer credential, and its persisted mirror.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/auth"
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/events"
)

// ErrNoCredential is returned when the backend accepted a login without a token.
var ErrNoCredential = errors.New("login response carried no credential")

// Logout reasons recorded on session_ended events.
const (
	ReasonUser         = "user"
	ReasonUnauthorized = "unauthorized"
)

// Authenticator performs the backend login call.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.Credential, domain.Identity, error)
}

// Dependencies are shared by every manager of a Registry.
type Dependencies struct {
	Store      Store
	Auth       Authenticator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// Snapshot is a consistent copy of a session.
type Snapshot struct {
	Identity   *domain.Identity
	Credential domain.Credential
	Loading    bool
}

// Authenticated reports whether an identity is present.
func (s Snapshot) Authenticated() bool {
	return s.Identity != nil
}

// Manager is the session of one client instance.
type Manager struct {
	clientID string
	deps     Dependencies

	restoreOnce sync.Once
	// writeMu serializes storage writes with the memory update that follows,
	// so storage and memory always hold the same pair.
	writeMu sync.Mutex

	mu         sync.RWMutex
	identity   *domain.Identity
	credential domain.Credential
	loading    bool
	// pendingClear is set while a logout has not reached storage yet.
	pendingClear bool
}

// NewManager creates a manager in the loading state.
func NewManager(clientID string, deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{clientID: clientID, deps: deps, loading: true}
}

// ClientID returns the client instance the session belongs to.
func (m *Manager) ClientID() string {
	return m.clientID
}

// Restore loads the persisted pair once. Later calls return immediately.
func (m *Manager) Restore(ctx context.Context) {
	m.restoreOnce.Do(func() {
		m.restore(ctx)
	})
}

func (m *Manager) restore(ctx context.Context) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	logger := m.deps.Logger.With(zap.String("client_id", m.clientID))

	rec, err := m.deps.Store.Load(ctx, m.clientID)
	if err != nil {
		logger.Warn("session restore failed", zap.Error(err))
		return
	}
	if rec.Empty() {
		return
	}

	identity, err := m.decode(rec)
	if err != nil {
		logger.Info("discarding persisted session", zap.Error(err))
		if err := m.deps.Store.Clear(ctx, m.clientID); err != nil {
			logger.Warn("clear persisted session failed", zap.Error(err))
		}
		return
	}

	m.mu.Lock()
	m.identity = &identity
	m.credential = domain.Credential(rec.Token)
	m.mu.Unlock()

	m.publish(ctx, events.EventSessionRestored, identity, "")
}

func (m *Manager) decode(rec Record) (domain.Identity, error) {
	if !rec.Complete() {
		return domain.Identity{}, errors.New("incomplete record")
	}
	var identity domain.Identity
	if err := json.Unmarshal([]byte(rec.User), &identity); err != nil {
		return domain.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	identity = identity.Normalize()
	if err := identity.Validate(); err != nil {
		return domain.Identity{}, err
	}
	if auth.CredentialExpired(domain.Credential(rec.Token), m.deps.Now()) {
		return domain.Identity{}, errors.New("credential expired")
	}
	return identity, nil
}

// Login authenticates against the backend and persists the resulting pair.
// Backend errors are returned unchanged. On any error the previous session
// is left as it was.
func (m *Manager) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	cred, identity, err := m.deps.Auth.Login(ctx, email, password)
	if err != nil {
		return domain.Identity{}, err
	}
	if cred == "" {
		return domain.Identity{}, ErrNoCredential
	}
	identity = identity.Normalize()
	if err := identity.Validate(); err != nil {
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("encode identity: %w", err)
	}

	m.writeMu.Lock()
	if err := m.deps.Store.Save(ctx, m.clientID, Record{Token: string(cred), User: string(payload)}); err != nil {
		m.writeMu.Unlock()
		return domain.Identity{}, fmt.Errorf("persist session: %w", err)
	}
	m.mu.Lock()
	m.identity = &identity
	m.credential = cred
	m.loading = false
	m.pendingClear = false
	m.mu.Unlock()
	m.writeMu.Unlock()

	m.publish(ctx, events.EventSessionStarted, identity, "")
	return identity, nil
}

// Logout clears the session in memory and storage. It is idempotent and
// never fails. A failed storage clear is logged and retried by RetryClear
// until it succeeds or a new login overwrites the record.
func (m *Manager) Logout(ctx context.Context, reason string) {
	m.writeMu.Lock()
	m.mu.Lock()
	prev := m.identity
	m.identity = nil
	m.credential = ""
	m.mu.Unlock()

	err := m.deps.Store.Clear(ctx, m.clientID)
	m.mu.Lock()
	m.pendingClear = err != nil
	m.mu.Unlock()
	if err != nil {
		m.deps.Logger.Warn("clear persisted session failed",
			zap.String("client_id", m.clientID), zap.Error(err))
	}
	m.writeMu.Unlock()

	if prev != nil {
		m.publish(ctx, events.EventSessionEnded, *prev, reason)
	}
}

// PendingClear reports whether storage still holds a logged out session.
func (m *Manager) PendingClear() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingClear
}

// RetryClear repeats a storage clear that failed during Logout. It is a
// no-op when nothing is pending.
func (m *Manager) RetryClear(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if !m.PendingClear() {
		return nil
	}
	if err := m.deps.Store.Clear(ctx, m.clientID); err != nil {
		return fmt.Errorf("retry clear: %w", err)
	}
	m.mu.Lock()
	m.pendingClear = false
	m.mu.Unlock()
	return nil
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{Credential: m.credential, Loading: m.loading}
	if m.identity != nil {
		identity := *m.identity
		snap.Identity = &identity
	}
	return snap
}

func (m *Manager) publish(ctx context.Context, typ events.EventType, identity domain.Identity, reason string) {
	if m.deps.Dispatcher == nil {
		return
	}
	err := m.deps.Dispatcher.Publish(ctx, events.Event{
		Type:     typ,
		ClientID: m.clientID,
		Payload: events.SessionPayload{
			UserID: identity.ID,
			Role:   identity.Role,
			Status: identity.Status,
			Reason: reason,
		},
	})
	if err != nil {
		m.deps.Logger.Warn("session event handler failed",
			zap.String("event", string(typ)), zap.Error(err))
	}
}
