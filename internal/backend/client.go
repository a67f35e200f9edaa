// Package backend is the REST client for the task service behind the portal.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/config"
)

// Client talks to the auth, user and admin APIs. Every call is a single
// attempt; nothing is retried.
type Client struct {
	http     *fiber.Client
	authURL  string
	userURL  string
	adminURL string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient builds a client from cfg.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:     &fiber.Client{UserAgent: "task-portal"},
		authURL:  cfg.AuthURL,
		userURL:  cfg.UserURL,
		adminURL: cfg.AdminURL,
		timeout:  cfg.Timeout(),
		logger:   logger,
	}
}

func join(base string, parts ...string) string {
	out := base
	for _, p := range parts {
		out += "/" + url.PathEscape(p)
	}
	return out
}

// call performs one request and returns the raw response body of a 2xx
// answer. credential is sent as a bearer token when set.
func (c *Client) call(ctx context.Context, method, target string, credential string, body any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &APIError{Transport: true, Err: err}
	}

	var agent *fiber.Agent
	switch method {
	case fiber.MethodGet:
		agent = c.http.Get(target)
	case fiber.MethodPost:
		agent = c.http.Post(target)
	case fiber.MethodPut:
		agent = c.http.Put(target)
	default:
		return nil, fmt.Errorf("backend: unsupported method %s", method)
	}

	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if credential != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+credential)
	}
	if body != nil {
		agent.JSON(body)
	}
	if timeout := c.timeoutFor(ctx); timeout > 0 {
		agent.Timeout(timeout)
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, &APIError{Transport: true, Err: err}
	}

	start := time.Now()
	status, respBody, errs := agent.Bytes()
	logger := c.logger.With(
		zap.String("method", method),
		zap.String("url", target),
		zap.Duration("latency", time.Since(start)),
	)
	if len(errs) > 0 {
		err := errors.Join(errs...)
		logger.Warn("backend call failed", zap.Error(err))
		return nil, &APIError{Transport: true, Err: err}
	}
	if status >= fiber.StatusBadRequest {
		apiErr := &APIError{Status: status, Message: serverMessage(respBody)}
		logger.Info("backend rejected call", zap.Int("status", status), zap.String("reason", apiErr.Message))
		return nil, apiErr
	}
	logger.Debug("backend call", zap.Int("status", status))
	return respBody, nil
}

func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout
}

func decode(body []byte, out any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// decodeList accepts a bare JSON array or an object holding the array under
// one of keys.
func decodeList[T any](body []byte, keys ...string) ([]T, error) {
	var list []T
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode backend list: %w", err)
	}
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode backend list %q: %w", key, err)
		}
		return list, nil
	}
	return nil, fmt.Errorf("decode backend list: none of %v present", keys)
}
