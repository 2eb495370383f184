package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
	"github.com/sakif/aic-hub/internal/validate"
)

const msgUsernameTaken = "Username is already taken"

// UserService reads and edits profiles.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// UsernameEditable reports whether u may still choose a username. That is
// the case until the username differs from the one assigned at signup.
func UsernameEditable(u *model.User) bool {
	return u.Username == u.DefaultUsername
}

// Me returns the signed-in user's private profile.
func (s *UserService) Me(ctx context.Context, userID string) (*model.PrivateProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Not authenticated")
		}
		return nil, fmt.Errorf("service/users: %w", err)
	}
	return s.private(ctx, user)
}

// Public returns anyone's public profile by username.
func (s *UserService) Public(ctx context.Context, username string) (*model.PublicProfile, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("User not found")
		}
		return nil, fmt.Errorf("service/users: %w", err)
	}
	profile := user.Public()
	if profile.ArticleCount, profile.SpaceCount, err = s.users.ContentCounts(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service/users: %w", err)
	}
	return &profile, nil
}

// UpdateMe applies a partial profile update.
//
// USERNAME RULE:
// The submitted username is normalized first ("Ada Lovelace" becomes
// "ada-lovelace"). It may change only while it still equals the default
// assigned at signup. Resubmitting the current username is always accepted.
// A taken username is a 400 on the username field.
func (s *UserService) UpdateMe(ctx context.Context, userID string, upd model.ProfileUpdate) (*model.PrivateProfile, error) {
	if upd.Username != nil {
		normalized, err := validate.NormalizeUsername(*upd.Username)
		if err != nil {
			return nil, apperror.ValidationFailed("username", err.Error())
		}
		upd.Username = &normalized
	}
	if err := validate.Profile(upd); err != nil {
		return nil, invalid(err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("Not authenticated")
		}
		return nil, fmt.Errorf("service/users: %w", err)
	}

	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return nil, apperror.ValidationFailed("displayName", "Display name is required")
		}
		user.DisplayName = name
	}
	if upd.Bio != nil {
		user.Bio = strings.TrimSpace(*upd.Bio)
	}
	if upd.Company != nil {
		user.Company = strings.TrimSpace(*upd.Company)
	}
	if upd.Location != nil {
		user.Location = strings.TrimSpace(*upd.Location)
	}
	if upd.ExpertiseTags != nil {
		tags, err := canonicalTags("expertiseTags", *upd.ExpertiseTags)
		if err != nil {
			return nil, err
		}
		user.ExpertiseTags = tags
	}

	renamed := upd.Username != nil && *upd.Username != user.Username
	if renamed {
		if !UsernameEditable(user) {
			return nil, apperror.ValidationFailed("username", "Username can only be set once")
		}
		taken, err := s.users.UsernameTaken(ctx, *upd.Username, user.ID)
		if err != nil {
			return nil, fmt.Errorf("service/users: %w", err)
		}
		if taken {
			return nil, apperror.ValidationFailed("username", msgUsernameTaken)
		}
		s.logger.Info("username chosen",
			slog.String("userID", user.ID),
			slog.String("from", user.Username),
			slog.String("to", *upd.Username),
		)
		user.Username = *upd.Username
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			if renamed {
				return nil, apperror.ValidationFailed("username", msgUsernameTaken)
			}
			return nil, err
		}
		return nil, fmt.Errorf("service/users: updating %s: %w", user.ID, err)
	}
	return s.private(ctx, user)
}

func (s *UserService) private(ctx context.Context, user *model.User) (*model.PrivateProfile, error) {
	profile := user.Private(UsernameEditable(user))
	var err error
	if profile.ArticleCount, profile.SpaceCount, err = s.users.ContentCounts(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service/users: %w", err)
	}
	return &profile, nil
}
