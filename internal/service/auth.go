package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/auth"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
	"github.com/sakif/aic-hub/internal/validate"
)

const invalidCredentials = "Invalid email or password"

// AuthService creates accounts and checks credentials.
//
// It never touches cookies: the handler turns the returned user into a
// session with auth.TokenService.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, passwords: passwords, logger: logger}
}

// Signup creates a password account.
//
// The username is derived from the email's local part and made unique with
// a numeric suffix. It is remembered as the default so the user can replace
// it once from the profile editor.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := validate.Signup(validate.SignupFields{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}); err != nil {
		return nil, invalid(err)
	}

	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, apperror.ConflictMessage("Email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", req.Email, err)
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	}

	base, err := validate.UsernameFromEmail(req.Email)
	if err != nil {
		return nil, apperror.ValidationFailed("email", "Enter a valid email address")
	}
	username, err := s.freeUsername(ctx, base)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:           req.Email,
		Username:        username,
		DefaultUsername: username,
		DisplayName:     req.DisplayName,
		PasswordHash:    hash,
		ExpertiseTags:   []string{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage("Email already registered")
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks an email/password pair. Unknown emails and wrong passwords
// get the same message.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	if err := validate.Login(validate.LoginFields{Email: strings.TrimSpace(req.Email), Password: req.Password}); err != nil {
		return nil, invalid(err)
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", req.Email, err)
	}
	if err := s.passwords.Verify(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return user, nil
}

// LoginGitHub signs in with a GitHub profile and reports whether a new
// account was created.
//
// Lookup order: the linked GitHub id, then the email (linking the GitHub
// account to an existing password account), then a new account.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*model.User, bool, error) {
	if gh == nil {
		return nil, false, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
		user.GitHubUsername = gh.Login
		if gh.AvatarURL != "" {
			user.AvatarURL = gh.AvatarURL
		}
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("service/auth: refreshing GitHub user %d: %w", gh.ID, err)
		}
		return user, false, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, false, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
	}

	if gh.Email != "" {
		user, err = s.users.GetUserByEmail(ctx, gh.Email)
		switch {
		case err == nil:
			user.GitHubID = gh.ID
			user.GitHubUsername = gh.Login
			if user.AvatarURL == "" {
				user.AvatarURL = gh.AvatarURL
			}
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, false, fmt.Errorf("service/auth: linking GitHub user %d: %w", gh.ID, err)
			}
			s.logger.Info("linked GitHub account", slog.String("userID", user.ID), slog.String("login", gh.Login))
			return user, false, nil
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, false, fmt.Errorf("service/auth: looking up %s: %w", gh.Email, err)
		}
	}

	email := gh.Email
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, gh.Login)
	}
	base, err := validate.NormalizeUsername(gh.Login)
	if err != nil {
		base = "user"
	}
	username, err := s.freeUsername(ctx, base)
	if err != nil {
		return nil, false, err
	}
	displayName := strings.TrimSpace(gh.Name)
	if displayName == "" {
		displayName = gh.Login
	}

	user = &model.User{
		Email:           email,
		Username:        username,
		DefaultUsername: username,
		DisplayName:     displayName,
		GitHubID:        gh.ID,
		GitHubUsername:  gh.Login,
		AvatarURL:       gh.AvatarURL,
		Bio:             gh.Bio,
		Company:         gh.Company,
		Location:        gh.Location,
		ExpertiseTags:   []string{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("service/auth: creating GitHub user %d: %w", gh.ID, err)
	}
	s.logger.Info("user signed up via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return user, true, nil
}

// freeUsername returns base or the first free base-N.
func (s *AuthService) freeUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for n := 2; n <= 1000; n++ {
		taken, err := s.users.UsernameTaken(ctx, candidate, "")
		if err != nil {
			return "", fmt.Errorf("service/auth: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		if candidate, err = validate.WithSuffix(base, n); err != nil {
			return "", fmt.Errorf("service/auth: %w", err)
		}
	}
	return "", fmt.Errorf("service/auth: no free username for %q", base)
}
