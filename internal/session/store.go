package session

import (
	"context"

	"github.com/spec-kit/task-portal/internal/cryptox"
)

// Well-known client-local storage keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Record is the persisted mirror of a session: the bearer credential and
// the JSON encoded identity. Empty fields are absent keys.
type Record struct {
	Token string
	User  string
}

// Empty reports whether neither key is present.
func (r Record) Empty() bool {
	return r.Token == "" && r.User == ""
}

// Complete reports whether both keys are present.
func (r Record) Complete() bool {
	return r.Token != "" && r.User != ""
}

// Store persists session records per client instance. Save writes both keys
// in one step; no reader observes only one of them.
type Store interface {
	Load(ctx context.Context, clientID string) (Record, error)
	Save(ctx context.Context, clientID string, rec Record) error
	Clear(ctx context.Context, clientID string) error
}

// SealedStore encrypts record values before handing them to the inner store.
type SealedStore struct {
	inner  Store
	sealer cryptox.Sealer
}

// NewSealedStore wraps inner with sealer.
func NewSealedStore(inner Store, sealer cryptox.Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

func (s *SealedStore) Load(ctx context.Context, clientID string) (Record, error) {
	rec, err := s.inner.Load(ctx, clientID)
	if err != nil {
		return Record{}, err
	}
	// A value that no longer opens (rotated key, tampering) is reported as
	// absent so restore discards the pair.
	rec.Token = s.open(rec.Token)
	rec.User = s.open(rec.User)
	return rec, nil
}

func (s *SealedStore) Save(ctx context.Context, clientID string, rec Record) error {
	token, err := s.sealer.Seal(rec.Token)
	if err != nil {
		return err
	}
	user, err := s.sealer.Seal(rec.User)
	if err != nil {
		return err
	}
	return s.inner.Save(ctx, clientID, Record{Token: token, User: user})
}

func (s *SealedStore) Clear(ctx context.Context, clientID string) error {
	return s.inner.Clear(ctx, clientID)
}

func (s *SealedStore) open(value string) string {
	if value == "" {
		return ""
	}
	plain, err := s.sealer.Open(value)
	if err != nil {
		return ""
	}
	return plain
}
