package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"spendview/internal/core"
)

var errNoToken = errors.New("response carried no token")

func (c *Client) tokenCall(ctx context.Context, path string, body any) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errNoToken
	}
	return out.Token, nil
}

// Login exchanges credentials for an API token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	tok, err := c.tokenCall(ctx, "/auth/login/", map[string]string{"username": username, "password": password})
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return tok, nil
}

func (c *Client) Register(ctx context.Context, r core.Registration) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	tok, err := c.tokenCall(ctx, "/auth/register/", r)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return tok, nil
}

func (c *Client) Profile(ctx context.Context) (core.Profile, error) {
	var w wireProfile
	if err := c.do(ctx, http.MethodGet, "/auth/profile/", nil, nil, &w); err != nil {
		return core.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return core.Profile{Username: w.Username, Email: w.Email, DateJoined: w.DateJoined}, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) (string, error) {
	if err := core.ValidatePassword(next); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	body := map[string]string{"current_password": current, "new_password": next}
	tok, err := c.tokenCall(ctx, "/auth/change-password/", body)
	if err != nil {
		return "", fmt.Errorf("change password: %w", err)
	}
	return tok, nil
}

func (c *Client) UpdateUsername(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("validation failed: %w", core.ErrEmptyUsername)
	}
	tok, err := c.tokenCall(ctx, "/auth/update-username/", map[string]string{"new_username": username})
	if err != nil {
		return "", fmt.Errorf("update username: %w", err)
	}
	return tok, nil
}

func (c *Client) UpdateEmail(ctx context.Context, email string) (string, error) {
	if err := core.ValidateEmail(email); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	tok, err := c.tokenCall(ctx, "/auth/update-email/", map[string]string{"new_email": email})
	if err != nil {
		return "", fmt.Errorf("update email: %w", err)
	}
	return tok, nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	if err := c.do(ctx, http.MethodPost, "/password-reset/request/", nil, map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

// ValidateResetToken reports whether a reset link is still usable. A
// rejected token is reported as false, not as an error.
func (c *Client) ValidateResetToken(ctx context.Context, uid, token string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	err := c.do(ctx, http.MethodPost, "/password-reset/validate-token/", nil,
		map[string]string{"uid": uid, "token": token}, &out)
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validate reset token: %w", err)
	}
	return out.Valid, nil
}

// ResetPassword completes a reset. The server may log the user in, in which
// case the new token is returned; otherwise it is empty.
func (c *Client) ResetPassword(ctx context.Context, r core.PasswordReset) (string, error) {
	if err := core.ValidatePassword(r.NewPassword); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/password-reset/reset/", nil, r, &out); err != nil {
		return "", fmt.Errorf("reset password: %w", err)
	}
	return out.Token, nil
}
