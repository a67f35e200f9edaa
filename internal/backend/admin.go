package backend

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/domain"
)

func membersFrom(body []byte) ([]domain.Member, error) {
	wires, err := decodeList[userWire](body, "users", "data")
	if err != nil {
		return nil, err
	}
	members := make([]domain.Member, 0, len(wires))
	for _, w := range wires {
		members = append(members, w.member())
	}
	return members, nil
}

// FetchAllTasks lists every task in the system.
func (c *Client) FetchAllTasks(ctx context.Context, cred domain.Credential) ([]domain.Task, error) {
	body, err := c.call(ctx, fiber.MethodGet, join(c.adminURL, "tasks"), string(cred), nil)
	if err != nil {
		return nil, err
	}
	return tasksFrom(body)
}

func (c *Client) FetchPendingUsers(ctx context.Context, cred domain.Credential) ([]domain.Member, error) {
	body, err := c.call(ctx, fiber.MethodGet, join(c.adminURL, "pending-users"), string(cred), nil)
	if err != nil {
		return nil, err
	}
	return membersFrom(body)
}

func (c *Client) FetchApprovedUsers(ctx context.Context, cred domain.Credential) ([]domain.Member, error) {
	body, err := c.call(ctx, fiber.MethodGet, join(c.adminURL, "approved-users"), string(cred), nil)
	if err != nil {
		return nil, err
	}
	return membersFrom(body)
}

func (c *Client) ApproveUser(ctx context.Context, cred domain.Credential, userID string) (string, error) {
	return c.message(ctx, fiber.MethodPut, join(c.adminURL, "approve-user", userID), cred, fiber.Map{})
}

func (c *Client) RejectUser(ctx context.Context, cred domain.Credential, userID string) (string, error) {
	return c.message(ctx, fiber.MethodPut, join(c.adminURL, "reject-user", userID), cred, fiber.Map{})
}

func (c *Client) CreateTask(ctx context.Context, cred domain.Credential, draft domain.TaskDraft) (string, error) {
	return c.message(ctx, fiber.MethodPost, join(c.adminURL, "create-task"), cred, newTaskPayload(draft))
}

func (c *Client) UpdateTask(ctx context.Context, cred domain.Credential, taskID string, draft domain.TaskDraft) (string, error) {
	return c.message(ctx, fiber.MethodPut, join(c.adminURL, "update-task", taskID), cred, newTaskPayload(draft))
}

// message performs a call whose answer, if any, is {"message": "..."}.
func (c *Client) message(ctx context.Context, method, target string, cred domain.Credential, body any) (string, error) {
	respBody, err := c.call(ctx, method, target, string(cred), body)
	if err != nil {
		return "", err
	}
	var resp messageResponse
	// Some endpoints answer with the created entity or plain text instead of
	// a message; the call itself still succeeded.
	if err := decode(respBody, &resp); err != nil {
		c.logger.Debug("backend answer without message",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err),
		)
	}
	return resp.Message, nil
}
