// Package session implements the sign-up, sign-in and sign-out flows.
//
// Each flow validates its input client-side, calls the API, keeps the user
// cache in step with the new session, and reports where the client should
// navigate next:
//
//	Signup              → /welcome
//	Login               → the "next" path, or /feed
//	GitHub (new user)   → /welcome
//	GitHub (returning)  → /feed
//	Logout              → /
//
// The session credential itself is the HttpOnly cookie the server sets; it
// lives in the API client's cookie jar and never passes through this package.
package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/aic-hub/internal/hooks"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/validate"
)

// Redirect targets.
const (
	PathWelcome = "/welcome"
	PathFeed    = "/feed"
	PathHome    = "/"
)

// AuthAPI is the part of the API client the flows need.
type AuthAPI interface {
	Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error)
	Logout(ctx context.Context) error
	GitHubLoginURL() string
	StartGitHubLogin(ctx context.Context) (string, error)
	CompleteGitHubLogin(ctx context.Context, code, state string) (*model.AuthResponse, error)
}

// Result is the outcome of a successful flow.
type Result struct {
	User     *model.PrivateProfile
	Redirect string
}

// Service runs the session flows for one client.
type Service struct {
	api    AuthAPI
	hooks  *hooks.Hooks
	logger *slog.Logger
}

// NewService creates the session flows. h is the shared user cache.
func NewService(api AuthAPI, h *hooks.Hooks, logger *slog.Logger) *Service {
	return &Service{api: api, hooks: h, logger: logger}
}

// Signup creates an account and signs the user in.
func (s *Service) Signup(ctx context.Context, email, password, displayName string) (*Result, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if err := validate.Signup(validate.SignupFields{Email: email, Password: password, DisplayName: displayName}); err != nil {
		return nil, err
	}

	resp, err := s.api.Signup(ctx, model.SignupRequest{Email: email, Password: password, DisplayName: displayName})
	if err != nil {
		return nil, err
	}
	s.signedIn(resp)
	s.logger.Info("signed up", "email", email, "username", resp.User.Username)
	return &Result{User: &resp.User, Redirect: PathWelcome}, nil
}

// Login signs in with email and password. next is honoured only when it is
// a local path.
func (s *Service) Login(ctx context.Context, email, password, next string) (*Result, error) {
	email = strings.TrimSpace(email)
	if err := validate.Login(validate.LoginFields{Email: email, Password: password}); err != nil {
		return nil, err
	}

	resp, err := s.api.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	s.signedIn(resp)
	s.logger.Info("logged in", "email", email)
	return &Result{User: &resp.User, Redirect: SafeNext(next, PathFeed)}, nil
}

// Logout ends the session. The local cache is cleared even when the server
// call fails, so the client never keeps showing a stale user.
func (s *Service) Logout(ctx context.Context) (string, error) {
	err := s.api.Logout(ctx)
	s.hooks.Clear()
	if err != nil {
		s.logger.Warn("logout request failed", "error", err)
		return PathHome, err
	}
	return PathHome, nil
}

// GitHubLoginURL is the API entry point a browser opens to start OAuth.
func (s *Service) GitHubLoginURL() string {
	return s.api.GitHubLoginURL()
}

// StartGitHub begins the OAuth flow for a non-browser client and returns the
// GitHub authorization URL the user must open.
func (s *Service) StartGitHub(ctx context.Context) (string, error) {
	return s.api.StartGitHubLogin(ctx)
}

// CompleteGitHub finishes OAuth with the code and state from the callback.
func (s *Service) CompleteGitHub(ctx context.Context, code, state string) (*Result, error) {
	resp, err := s.api.CompleteGitHubLogin(ctx, strings.TrimSpace(code), strings.TrimSpace(state))
	if err != nil {
		return nil, err
	}
	s.signedIn(resp)

	redirect := PathFeed
	if resp.Created {
		redirect = PathWelcome
	}
	s.logger.Info("github login complete", "username", resp.User.Username, "created", resp.Created)
	return &Result{User: &resp.User, Redirect: redirect}, nil
}

func (s *Service) signedIn(resp *model.AuthResponse) {
	s.hooks.Clear()
	user := resp.User
	s.hooks.MutateCurrentUser(&user)
}

// SafeNext returns next when it is a same-origin path, otherwise fallback.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}
