package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
)

// Signup creates an account with email and password. On success the server
// sets the session cookie, which the jar keeps for later calls.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.Do(ctx, http.MethodPost, "/api/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.Do(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout clears the session cookie on the server side.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// GitHubLoginURL is the entry point a browser navigates to.
func (c *Client) GitHubLoginURL() string {
	return c.URL("/api/auth/login/github")
}

// StartGitHubLogin requests the login entry point without following the
// redirect. The server's state cookie lands in this client's jar and the
// GitHub authorization URL is returned for the user to open.
func (c *Client) StartGitHubLogin(ctx context.Context) (string, error) {
	noFollow := *c.http
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := c.send(ctx, &noFollow, http.MethodGet, "/api/auth/login/github", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return "", decodeError(resp)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", apperror.NewHTTPError(resp.StatusCode, "GitHub login did not redirect")
	}
	return location, nil
}

// CompleteGitHubLogin finishes the OAuth flow with the code and state GitHub
// appended to the callback URL.
func (c *Client) CompleteGitHubLogin(ctx context.Context, code, state string) (*model.AuthResponse, error) {
	if code == "" || state == "" {
		return nil, fmt.Errorf("api: GitHub callback needs both code and state")
	}
	q := url.Values{"code": {code}, "state": {state}}
	var out model.AuthResponse
	if err := c.Do(ctx, http.MethodGet, "/api/auth/github/callback?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
