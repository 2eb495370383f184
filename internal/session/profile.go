package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/hooks"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/validate"
)

// ErrUsernameLocked is reported on the username field once the user has
// chosen a username.
const ErrUsernameLocked = "Username can only be set once"

// ProfileAPI saves the signed-in user's profile.
type ProfileAPI interface {
	UpdateMe(ctx context.Context, update model.ProfileUpdate) (*model.PrivateProfile, error)
}

// ProfileEditor is the edit-profile form.
//
// Load copies the current profile into the editable fields. Save sends only
// the fields that differ from the loaded profile. The username field is
// disabled once the server reports usernameEditable=false; a changed
// username is then rejected before any request is made.
type ProfileEditor struct {
	DisplayName   string
	Username      string
	Bio           string
	Company       string
	Location      string
	ExpertiseTags []string

	loaded *model.PrivateProfile
	api    ProfileAPI
	hooks  *hooks.Hooks
	logger *slog.Logger
}

// NewProfileEditor creates an empty editor; call Load before editing.
func NewProfileEditor(api ProfileAPI, h *hooks.Hooks, logger *slog.Logger) *ProfileEditor {
	return &ProfileEditor{api: api, hooks: h, logger: logger}
}

// Load fetches the current user. Without a session it returns a 401 error.
func (e *ProfileEditor) Load(ctx context.Context) (*model.PrivateProfile, error) {
	me, err := e.hooks.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if me == nil {
		return nil, apperror.NewHTTPError(http.StatusUnauthorized, "Sign in to edit your profile")
	}
	e.reset(me)
	return me, nil
}

func (e *ProfileEditor) reset(p *model.PrivateProfile) {
	e.loaded = p
	e.DisplayName = p.DisplayName
	e.Username = p.Username
	e.Bio = p.Bio
	e.Company = p.Company
	e.Location = p.Location
	e.ExpertiseTags = append([]string(nil), p.ExpertiseTags...)
}

// UsernameDisabled reports whether the username field is read-only.
func (e *ProfileEditor) UsernameDisabled() bool {
	return e.loaded == nil || !e.loaded.UsernameEditable
}

// SetUsername stores the sanitized form of what the user typed.
func (e *ProfileEditor) SetUsername(input string) {
	e.Username = validate.SanitizeUsername(input)
}

// ToggleExpertise flips an expertise tag, up to the expertise limit.
func (e *ProfileEditor) ToggleExpertise(tag string) {
	canonical, ok := model.CanonicalTag(tag)
	if !ok {
		return
	}
	e.ExpertiseTags = validate.ToggleTag(e.ExpertiseTags, canonical, model.MaxExpertiseTags)
}

// Changes builds the PATCH body from the fields that differ from the loaded
// profile.
func (e *ProfileEditor) Changes() model.ProfileUpdate {
	var u model.ProfileUpdate
	if e.loaded == nil {
		return u
	}
	diff := func(cur, orig string) *string {
		cur = strings.TrimSpace(cur)
		if cur == orig {
			return nil
		}
		return &cur
	}
	u.DisplayName = diff(e.DisplayName, e.loaded.DisplayName)
	u.Username = diff(e.Username, e.loaded.Username)
	u.Bio = diff(e.Bio, e.loaded.Bio)
	u.Company = diff(e.Company, e.loaded.Company)
	u.Location = diff(e.Location, e.loaded.Location)
	if !slices.Equal(e.ExpertiseTags, e.loaded.ExpertiseTags) {
		tags := append([]string{}, e.ExpertiseTags...)
		u.ExpertiseTags = &tags
	}
	return u
}

// Validate checks the pending changes.
func (e *ProfileEditor) Validate() apperror.ValidationErrors {
	u := e.Changes()
	errs := apperror.ValidationErrors{}
	if err := validate.Profile(u); err != nil {
		var v apperror.ValidationErrors
		if errors.As(err, &v) {
			for k, msg := range v {
				errs[k] = msg
			}
		}
	}
	if u.DisplayName != nil && *u.DisplayName == "" {
		errs["displayName"] = "Display name is required"
	}
	if u.Username != nil && e.UsernameDisabled() {
		errs["username"] = ErrUsernameLocked
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Save validates and sends the changes. With nothing changed it returns the
// loaded profile without a request.
func (e *ProfileEditor) Save(ctx context.Context) (*model.PrivateProfile, error) {
	if e.loaded == nil {
		return nil, apperror.NewHTTPError(http.StatusUnauthorized, "Sign in to edit your profile")
	}
	if errs := e.Validate(); errs != nil {
		return nil, errs
	}
	u := e.Changes()
	if u == (model.ProfileUpdate{}) {
		return e.loaded, nil
	}

	saved, err := e.api.UpdateMe(ctx, u)
	if err != nil {
		e.logger.Warn("profile save failed", "error", err)
		return nil, err
	}
	e.hooks.MutateCurrentUser(saved)
	e.reset(saved)
	e.logger.Info("profile saved", "username", saved.Username, "usernameEditable", saved.UsernameEditable)
	return saved, nil
}
