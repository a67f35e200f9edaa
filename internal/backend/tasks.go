package backend

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/domain"
)

func tasksFrom(body []byte) ([]domain.Task, error) {
	wires, err := decodeList[taskWire](body, "tasks", "data")
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(wires))
	for _, w := range wires {
		tasks = append(tasks, w.task())
	}
	return tasks, nil
}

// FetchUserTasks lists the tasks assigned to the credential's owner.
func (c *Client) FetchUserTasks(ctx context.Context, cred domain.Credential) ([]domain.Task, error) {
	body, err := c.call(ctx, fiber.MethodGet, join(c.userURL, "tasks"), string(cred), nil)
	if err != nil {
		return nil, err
	}
	return tasksFrom(body)
}

// UpdateTaskStatus moves one of the caller's tasks to status.
func (c *Client) UpdateTaskStatus(ctx context.Context, cred domain.Credential, taskID string, status domain.TaskStatus) error {
	_, err := c.call(ctx, fiber.MethodPut, join(c.userURL, "tasks-status", taskID), string(cred), fiber.Map{
		"status": status,
	})
	return err
}
