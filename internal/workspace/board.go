// Package workspace holds the logic behind the two dashboards: a user's task
// board and the administrator console.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/task-portal/internal/domain"
)

// FilterAll disables status filtering.
const FilterAll = "ALL"

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskCompleted = errors.New("task already completed")
	ErrUnknownFilter = errors.New("unknown status filter")
)

// TaskAPI is the backend surface the board needs.
type TaskAPI interface {
	FetchUserTasks(ctx context.Context, cred domain.Credential) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, cred domain.Credential, taskID string, status domain.TaskStatus) error
}

// Filter narrows the task list. Search matches title or description,
// ignoring case.
type Filter struct {
	Status string
	Search string
}

// Stats counts tasks per status.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// BoardItem is a task with the action offered for it.
type BoardItem struct {
	domain.Task
	NextStatus domain.TaskStatus `json:"nextStatus,omitempty"`
	NextLabel  string            `json:"nextLabel"`
	CanAdvance bool              `json:"canAdvance"`
}

// BoardView is the rendered user dashboard.
type BoardView struct {
	Tasks  []BoardItem `json:"tasks"`
	Stats  Stats       `json:"stats"`
	Filter string      `json:"filter"`
	Search string      `json:"search,omitempty"`
}

// Board serves the user dashboard.
type Board struct {
	api TaskAPI
}

// NewBoard creates a board on api.
func NewBoard(api TaskAPI) *Board {
	return &Board{api: api}
}

// Load fetches the caller's tasks and applies f. Stats always cover the
// unfiltered list.
func (b *Board) Load(ctx context.Context, cred domain.Credential, f Filter) (BoardView, error) {
	status := strings.ToUpper(strings.TrimSpace(f.Status))
	if status == "" {
		status = FilterAll
	}
	if status != FilterAll && !domain.TaskStatus(status).Valid() {
		return BoardView{}, fmt.Errorf("%w: %s", ErrUnknownFilter, f.Status)
	}

	tasks, err := b.api.FetchUserTasks(ctx, cred)
	if err != nil {
		return BoardView{}, err
	}

	view := BoardView{
		Tasks:  []BoardItem{},
		Stats:  Summarize(tasks),
		Filter: status,
		Search: strings.TrimSpace(f.Search),
	}
	for _, t := range Apply(tasks, Filter{Status: status, Search: view.Search}) {
		view.Tasks = append(view.Tasks, boardItem(t))
	}
	return view, nil
}

// Advance moves a task to its next status and reloads the board.
func (b *Board) Advance(ctx context.Context, cred domain.Credential, taskID string, f Filter) (BoardView, error) {
	tasks, err := b.api.FetchUserTasks(ctx, cred)
	if err != nil {
		return BoardView{}, err
	}
	var current *domain.Task
	for i := range tasks {
		if tasks[i].ID == taskID {
			current = &tasks[i]
			break
		}
	}
	if current == nil {
		return BoardView{}, ErrTaskNotFound
	}
	if current.Status == domain.TaskStatusCompleted {
		return BoardView{}, ErrTaskCompleted
	}
	if err := b.api.UpdateTaskStatus(ctx, cred, taskID, current.Status.Next()); err != nil {
		return BoardView{}, err
	}
	return b.Load(ctx, cred, f)
}

func boardItem(t domain.Task) BoardItem {
	item := BoardItem{Task: t, NextLabel: t.Status.NextLabel()}
	if t.Status != domain.TaskStatusCompleted {
		item.NextStatus = t.Status.Next()
		item.CanAdvance = true
	}
	return item
}

// Apply filters tasks, keeping their order.
func Apply(tasks []domain.Task, f Filter) []domain.Task {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && f.Status != FilterAll && string(t.Status) != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Summarize counts tasks per status.
func Summarize(tasks []domain.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusPending:
			s.Pending++
		case domain.TaskStatusInProgress:
			s.InProgress++
		case domain.TaskStatusCompleted:
			s.Completed++
		}
	}
	return s
}

// sortByCreated orders tasks newest first.
func sortByCreated(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}
