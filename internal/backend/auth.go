package backend

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-portal/internal/domain"
)

// Login exchanges credentials for a bearer token and the raw identity. A
// missing status is left empty for the session to normalize.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Credential, domain.Identity, error) {
	body, err := c.call(ctx, fiber.MethodPost, join(c.authURL, "login"), "", fiber.Map{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", domain.Identity{}, err
	}
	var resp loginResponse
	if err := decode(body, &resp); err != nil {
		return "", domain.Identity{}, err
	}
	return domain.Credential(resp.Token), resp.User.identity(), nil
}

// Signup registers an account, which starts out pending approval.
func (c *Client) Signup(ctx context.Context, name, email, password string) (string, error) {
	body, err := c.call(ctx, fiber.MethodPost, join(c.authURL, "signup"), "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	var resp messageResponse
	err = decode(body, &resp)
	return resp.Message, err
}

// RequestPasswordReset mails a one-time code and returns the reset token
// scoping the attempt.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, string, error) {
	body, err := c.call(ctx, fiber.MethodPost, join(c.authURL, "forgot-password"), "", fiber.Map{
		"email": email,
	})
	if err != nil {
		return "", "", err
	}
	var resp resetResponse
	if err := decode(body, &resp); err != nil {
		return "", "", err
	}
	return resp.Message, resp.ResetToken, nil
}

func (c *Client) VerifyOTP(ctx context.Context, resetToken, otp string) (string, error) {
	body, err := c.call(ctx, fiber.MethodPost, join(c.authURL, "verify-otp"), "", fiber.Map{
		"resetToken": resetToken,
		"otp":        otp,
	})
	if err != nil {
		return "", err
	}
	var resp messageResponse
	err = decode(body, &resp)
	return resp.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, otp, newPassword string) (string, error) {
	body, err := c.call(ctx, fiber.MethodPost, join(c.authURL, "reset-password"), "", fiber.Map{
		"resetToken":  resetToken,
		"otp":         otp,
		"newPassword": newPassword,
	})
	if err != nil {
		return "", err
	}
	var resp messageResponse
	err = decode(body, &resp)
	return resp.Message, err
}
