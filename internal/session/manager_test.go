package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/events"
)

type fakeAuth struct {
	cred     domain.Credential
	identity domain.Identity
	err      error
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (domain.Credential, domain.Identity, error) {
	return f.cred, f.identity, f.err
}

type failingStore struct {
	*MemoryStore
	saveErr  error
	clearErr error
}

func (s *failingStore) Save(ctx context.Context, clientID string, rec Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, clientID, rec)
}

func (s *failingStore) Clear(ctx context.Context, clientID string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.MemoryStore.Clear(ctx, clientID)
}

func adminIdentity() domain.Identity {
	return domain.Identity{ID: "u-1", Email: "admin@example.com", Name: "Ada", Role: domain.RoleAdmin}
}

func encode(t *testing.T, identity domain.Identity) string {
	t.Helper()
	raw, err := json.Marshal(identity)
	require.NoError(t, err)
	return string(raw)
}

func signedCredential(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("backend"))
	require.NoError(t, err)
	return tok
}

func assertConsistent(t *testing.T, m *Manager, store Store) {
	t.Helper()
	snap := m.Snapshot()
	assert.Equal(t, snap.Identity == nil, snap.Credential == "", "identity and credential must be both present or both absent")

	rec, err := store.Load(context.Background(), m.ClientID())
	require.NoError(t, err)
	assert.True(t, rec.Empty() || rec.Complete(), "persisted record must not be partial")
}

func TestLoginDefaultsStatusAndPersists(t *testing.T) {
	store := NewMemoryStore()
	authn := &fakeAuth{cred: "tok-1", identity: adminIdentity()}
	m := NewManager("c1", Dependencies{Store: store, Auth: authn})
	m.Restore(context.Background())

	identity, err := m.Login(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusApproved, identity.Status)

	snap := m.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, domain.RoleAdmin, snap.Identity.Role)
	assert.Equal(t, domain.Credential("tok-1"), snap.Credential)
	assert.False(t, snap.Loading)

	rec, _ := store.Load(context.Background(), "c1")
	assert.Equal(t, "tok-1", rec.Token)
	var persisted domain.Identity
	require.NoError(t, json.Unmarshal([]byte(rec.User), &persisted))
	assert.Equal(t, domain.UserStatusApproved, persisted.Status)
	assertConsistent(t, m, store)
}

func TestLoginPropagatesBackendErrorUnchanged(t *testing.T) {
	backendErr := errors.New("Invalid credentials")
	store := NewMemoryStore()
	m := NewManager("c1", Dependencies{Store: store, Auth: &fakeAuth{err: backendErr}})
	m.Restore(context.Background())

	_, err := m.Login(context.Background(), "a@b.co", "bad")
	assert.Same(t, backendErr, err)
	assert.False(t, m.Snapshot().Authenticated())
	assertConsistent(t, m, store)
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	identity := adminIdentity()
	identity.Role = "OWNER"
	store := NewMemoryStore()
	m := NewManager("c1", Dependencies{Store: store, Auth: &fakeAuth{cred: "tok", identity: identity}})

	_, err := m.Login(context.Background(), "a@b.co", "pw")
	require.Error(t, err)
	assert.False(t, m.Snapshot().Authenticated())
	assertConsistent(t, m, store)
}

func TestLoginPersistFailureKeepsPreviousSession(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	authn := &fakeAuth{cred: "tok-1", identity: adminIdentity()}
	m := NewManager("c1", Dependencies{Store: store, Auth: authn})
	_, err := m.Login(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	authn.cred = "tok-2"
	_, err = m.Login(context.Background(), "a@b.co", "pw")
	require.Error(t, err)

	assert.Equal(t, domain.Credential("tok-1"), m.Snapshot().Credential)
	assertConsistent(t, m, store)
}

func TestLogoutIsIdempotentAndNeverFails(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	m := NewManager("c1", Dependencies{Store: store, Auth: &fakeAuth{cred: "tok", identity: adminIdentity()}})
	_, err := m.Login(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)

	m.Logout(context.Background(), ReasonUser)
	m.Logout(context.Background(), ReasonUser)
	assert.False(t, m.Snapshot().Authenticated())
	assert.Empty(t, m.Snapshot().Credential)
	assertConsistent(t, m, store)

	store.clearErr = errors.New("unreachable")
	m.Logout(context.Background(), ReasonUser)
	assert.False(t, m.Snapshot().Authenticated())
}

func TestRestoreAcceptsCompleteRecord(t *testing.T) {
	store := NewMemoryStore()
	legacy := adminIdentity()
	require.NoError(t, store.Save(context.Background(), "c1", Record{Token: "tok", User: encode(t, legacy)}))

	m := NewManager("c1", Dependencies{Store: store})
	assert.True(t, m.Snapshot().Loading)

	m.Restore(context.Background())
	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, domain.UserStatusApproved, snap.Identity.Status)
	assert.Equal(t, domain.Credential("tok"), snap.Credential)
}

func TestRestoreDiscardsBadRecords(t *testing.T) {
	unknownRole := adminIdentity()
	unknownRole.Role = "ROOT"
	expired := func(t *testing.T) Record {
		return Record{Token: signedCredential(t, time.Now().Add(-time.Hour)), User: encode(t, adminIdentity())}
	}

	cases := map[string]func(t *testing.T) Record{
		"token only":    func(*testing.T) Record { return Record{Token: "tok"} },
		"user only":     func(t *testing.T) Record { return Record{User: encode(t, adminIdentity())} },
		"malformed":     func(*testing.T) Record { return Record{Token: "tok", User: "{not json"} },
		"unknown role":  func(t *testing.T) Record { return Record{Token: "tok", User: encode(t, unknownRole)} },
		"expired token": expired,
	}

	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			store := NewMemoryStore()
			require.NoError(t, store.Save(context.Background(), "c1", build(t)))

			m := NewManager("c1", Dependencies{Store: store})
			m.Restore(context.Background())

			snap := m.Snapshot()
			assert.False(t, snap.Loading)
			assert.Nil(t, snap.Identity)
			assert.Empty(t, snap.Credential)

			rec, _ := store.Load(context.Background(), "c1")
			assert.True(t, rec.Empty())
		})
	}
}

func TestRestoreKeepsUnexpiredJWT(t *testing.T) {
	store := NewMemoryStore()
	tok := signedCredential(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Save(context.Background(), "c1", Record{Token: tok, User: encode(t, adminIdentity())}))

	m := NewManager("c1", Dependencies{Store: store})
	m.Restore(context.Background())
	assert.True(t, m.Snapshot().Authenticated())
}

func TestRestoreRunsOnce(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("c1", Dependencies{Store: store})
	m.Restore(context.Background())

	require.NoError(t, store.Save(context.Background(), "c1", Record{Token: "tok", User: encode(t, adminIdentity())}))
	m.Restore(context.Background())
	assert.False(t, m.Snapshot().Authenticated())
}

func TestSessionEventsArePublished(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	var seen []events.Event
	record := func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
		return nil
	}
	dispatcher.Subscribe(events.EventSessionStarted, record)
	dispatcher.Subscribe(events.EventSessionEnded, record)

	m := NewManager("c1", Dependencies{
		Store:      NewMemoryStore(),
		Auth:       &fakeAuth{cred: "tok", identity: adminIdentity()},
		Dispatcher: dispatcher,
	})
	_, err := m.Login(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	m.Logout(context.Background(), ReasonUnauthorized)
	m.Logout(context.Background(), ReasonUser)

	require.Len(t, seen, 2)
	assert.Equal(t, events.EventSessionStarted, seen[0].Type)
	assert.Equal(t, events.EventSessionEnded, seen[1].Type)
	payload, ok := seen[1].Payload.(events.SessionPayload)
	require.True(t, ok)
	assert.Equal(t, ReasonUnauthorized, payload.Reason)
	assert.Equal(t, "u-1", payload.UserID)
}

func TestConcurrentLoginsStayConsistent(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager("c1", Dependencies{Store: store, Auth: &fakeAuth{cred: "tok", identity: adminIdentity()}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Login(context.Background(), "a@b.co", "pw")
		}()
	}
	wg.Wait()
	assert.True(t, m.Snapshot().Authenticated())
	assertConsistent(t, m, store)
}
