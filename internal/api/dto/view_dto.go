package dto

import (
	"github.com/spec-kit/task-portal/internal/domain"
	"github.com/spec-kit/task-portal/internal/session"
)

// SessionView is the client-visible part of a session. The credential is
// never exposed.
type SessionView struct {
	Authenticated bool             `json:"authenticated"`
	Loading       bool             `json:"loading"`
	User          *domain.Identity `json:"user,omitempty"`
}

// NewSessionView converts a snapshot.
func NewSessionView(snap session.Snapshot) SessionView {
	return SessionView{
		Authenticated: snap.Authenticated(),
		Loading:       snap.Loading,
		User:          snap.Identity,
	}
}

// ViewDocument is the body of every rendered view.
type ViewDocument struct {
	View    domain.View       `json:"view"`
	Session SessionView       `json:"session"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
