package events

import (
	"time"

	"github.com/spec-kit/task-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionRestored EventType = "session_restored"
	EventSessionStarted  EventType = "session_started"
	EventSessionEnded    EventType = "session_ended"
)

// Event represents a change of a client's session state.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ClientID  string      `json:"client_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionPayload describes the identity an event refers to.
type SessionPayload struct {
	UserID string            `json:"user_id,omitempty"`
	Role   domain.Role       `json:"role,omitempty"`
	Status domain.UserStatus `json:"status,omitempty"`
	Reason string            `json:"reason,omitempty"`
}
