package backend

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/task-portal/internal/domain"
)

// The backend may label ids either "id" or "_id".
type userWire struct {
	ID        string `json:"id"`
	MongoID   string `json:"_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func (u userWire) id() string {
	if u.ID != "" {
		return u.ID
	}
	return u.MongoID
}

func (u userWire) identity() domain.Identity {
	return domain.Identity{
		ID:     u.id(),
		Email:  u.Email,
		Name:   u.Name,
		Role:   domain.Role(strings.ToUpper(u.Role)),
		Status: domain.UserStatus(strings.ToUpper(u.Status)),
	}
}

func (u userWire) member() domain.Member {
	m := domain.Member{
		ID:     u.id(),
		Name:   u.Name,
		Email:  u.Email,
		Role:   domain.Role(strings.ToUpper(u.Role)),
		Status: domain.UserStatus(strings.ToUpper(u.Status)),
	}
	if t := parseTime(u.CreatedAt); t != nil {
		m.CreatedAt = *t
	}
	return m
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userWire `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type resetResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

type taskWire struct {
	ID          string          `json:"id"`
	MongoID     string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	AssignedTo  json.RawMessage `json:"assignedTo"`
	DueDate     string          `json:"dueDate"`
	CreatedAt   string          `json:"createdAt"`
}

func (w taskWire) task() domain.Task {
	t := domain.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Status:      domain.TaskStatus(strings.ToUpper(w.Status)),
		DueDate:     parseTime(w.DueDate),
	}
	if t.ID == "" {
		t.ID = w.MongoID
	}
	if created := parseTime(w.CreatedAt); created != nil {
		t.CreatedAt = *created
	}
	t.AssignedTo, t.AssigneeName = assignee(w.AssignedTo)
	return t
}

// assignee reads assignedTo, which is an id string or an embedded user.
func assignee(raw json.RawMessage) (id, name string) {
	if len(raw) == 0 {
		return "", ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, ""
	}
	var u userWire
	if err := json.Unmarshal(raw, &u); err == nil {
		name = u.Name
		if name == "" {
			name = u.Email
		}
		return u.id(), name
	}
	return "", ""
}

type taskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assignedTo"`
	DueDate     string `json:"dueDate,omitempty"`
	Status      string `json:"status,omitempty"`
}

func newTaskPayload(d domain.TaskDraft) taskPayload {
	p := taskPayload{
		Title:       d.Title,
		Description: d.Description,
		AssignedTo:  d.AssignedTo,
		Status:      string(d.Status),
	}
	if d.DueDate != nil {
		p.DueDate = d.DueDate.Format("2006-01-02")
	}
	return p
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
