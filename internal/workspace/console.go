package workspace

import (
	"context"
	"strings"

	"github.com/spec-kit/task-portal/internal/domain"
)

// AdminAPI is the backend surface the console needs.
type AdminAPI interface {
	FetchAllTasks(ctx context.Context, cred domain.Credential) ([]domain.Task, error)
	FetchPendingUsers(ctx context.Context, cred domain.Credential) ([]domain.Member, error)
	FetchApprovedUsers(ctx context.Context, cred domain.Credential) ([]domain.Member, error)
	ApproveUser(ctx context.Context, cred domain.Credential, userID string) (string, error)
	RejectUser(ctx context.Context, cred domain.Credential, userID string) (string, error)
	CreateTask(ctx context.Context, cred domain.Credential, draft domain.TaskDraft) (string, error)
	UpdateTask(ctx context.Context, cred domain.Credential, taskID string, draft domain.TaskDraft) (string, error)
}

// Overview is the rendered admin dashboard.
type Overview struct {
	Tasks         []domain.Task   `json:"tasks"`
	Stats         Stats           `json:"stats"`
	PendingUsers  []domain.Member `json:"pendingUsers"`
	ApprovedUsers []domain.Member `json:"approvedUsers"`
}

// Console serves the admin dashboard.
type Console struct {
	api AdminAPI
}

// NewConsole creates a console on api.
func NewConsole(api AdminAPI) *Console {
	return &Console{api: api}
}

// Overview loads tasks and both user lists. The first failing call aborts.
func (c *Console) Overview(ctx context.Context, cred domain.Credential, search string) (Overview, error) {
	tasks, err := c.api.FetchAllTasks(ctx, cred)
	if err != nil {
		return Overview{}, err
	}
	pending, err := c.api.FetchPendingUsers(ctx, cred)
	if err != nil {
		return Overview{}, err
	}
	approved, err := c.api.FetchApprovedUsers(ctx, cred)
	if err != nil {
		return Overview{}, err
	}

	sortByCreated(tasks)
	filtered := Apply(tasks, Filter{Search: search})
	return Overview{
		Tasks:         filtered,
		Stats:         Summarize(tasks),
		PendingUsers:  nonNil(pending),
		ApprovedUsers: nonNil(approved),
	}, nil
}

func (c *Console) Approve(ctx context.Context, cred domain.Credential, userID string) (string, error) {
	return c.api.ApproveUser(ctx, cred, strings.TrimSpace(userID))
}

func (c *Console) Reject(ctx context.Context, cred domain.Credential, userID string) (string, error) {
	return c.api.RejectUser(ctx, cred, strings.TrimSpace(userID))
}

// CreateTask creates a task. New tasks start PENDING unless told otherwise.
func (c *Console) CreateTask(ctx context.Context, cred domain.Credential, draft domain.TaskDraft) (string, error) {
	if draft.Status == "" {
		draft.Status = domain.TaskStatusPending
	}
	return c.api.CreateTask(ctx, cred, draft)
}

func (c *Console) UpdateTask(ctx context.Context, cred domain.Credential, taskID string, draft domain.TaskDraft) (string, error) {
	return c.api.UpdateTask(ctx, cred, strings.TrimSpace(taskID), draft)
}

func nonNil(members []domain.Member) []domain.Member {
	if members == nil {
		return []domain.Member{}
	}
	return members
}
