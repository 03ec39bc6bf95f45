package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jonathan/cv-builder/internal/types"
)

// Register creates an account. The backend sends a verification email.
func (c *Client) Register(ctx context.Context, req *types.RegisterRequest) (*types.LoginResponse, error) {
	var resp types.LoginResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: req, out: &resp, noAuth: true})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error) {
	var resp types.LoginResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: req, out: &resp, noAuth: true})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*types.LoginResponse, error) {
	var resp types.LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   &types.RefreshRequest{RefreshToken: refreshToken},
		out:    &resp,
		noAuth: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEmail confirms an email address with the token from the verification link.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*types.MessageResponse, error) {
	var resp types.MessageResponse
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/verify-email",
		query:  url.Values{"token": {token}},
		out:    &resp,
		noAuth: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResendVerification asks the backend to send another verification email.
func (c *Client) ResendVerification(ctx context.Context, email string) (*types.MessageResponse, error) {
	var resp types.MessageResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/resend-verification",
		body:   &types.ResendVerificationRequest{Email: email},
		out:    &resp,
		noAuth: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current access token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", body: struct{}{}})
}
