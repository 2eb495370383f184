package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/hooks"
	"github.com/sakif/aic-hub/internal/model"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeAPI struct {
	me          *model.PrivateProfile
	signupCalls int
	logoutErr   error
	created     bool
	updates     []model.ProfileUpdate
}

func (f *fakeAPI) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	f.signupCalls++
	f.me = &model.PrivateProfile{
		PublicProfile:    model.PublicProfile{Username: "ada", DisplayName: req.DisplayName},
		Email:            req.Email,
		UsernameEditable: true,
	}
	return &model.AuthResponse{User: *f.me, Created: true}, nil
}

func (f *fakeAPI) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	if req.Password != "secret123" {
		return nil, apperror.NewHTTPError(401, "Invalid email or password")
	}
	f.me = &model.PrivateProfile{Email: req.Email}
	return &model.AuthResponse{User: *f.me}, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.me = nil
	return f.logoutErr
}

func (f *fakeAPI) GitHubLoginURL() string { return "http://api/api/auth/login/github" }

func (f *fakeAPI) StartGitHubLogin(ctx context.Context) (string, error) {
	return "https://github.com/login/oauth/authorize?state=s", nil
}

func (f *fakeAPI) CompleteGitHubLogin(ctx context.Context, code, state string) (*model.AuthResponse, error) {
	if code == "" || state == "" {
		return nil, apperror.NewHTTPError(400, "Invalid OAuth state")
	}
	f.me = &model.PrivateProfile{GitHubUsername: "octo"}
	return &model.AuthResponse{User: *f.me, Created: f.created}, nil
}

func (f *fakeAPI) Me(ctx context.Context) (*model.PrivateProfile, error) {
	if f.me == nil {
		return nil, apperror.NewHTTPError(401, "Not authenticated")
	}
	cp := *f.me
	return &cp, nil
}

func (f *fakeAPI) User(ctx context.Context, username string) (*model.PublicProfile, error) {
	if f.me != nil && f.me.Username == username {
		p := f.me.PublicProfile
		return &p, nil
	}
	return nil, apperror.NewHTTPError(404, "User not found")
}

func (f *fakeAPI) UpdateMe(ctx context.Context, u model.ProfileUpdate) (*model.PrivateProfile, error) {
	f.updates = append(f.updates, u)
	if u.Username != nil {
		if !f.me.UsernameEditable {
			return nil, apperror.NewHTTPError(400, ErrUsernameLocked)
		}
		f.me.Username = *u.Username
		f.me.UsernameEditable = false
	}
	if u.Bio != nil {
		f.me.Bio = *u.Bio
	}
	cp := *f.me
	return &cp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(api *fakeAPI) (*Service, *hooks.Hooks) {
	h := hooks.New(api, testLogger())
	return NewService(api, h, testLogger()), h
}

// =============================================================================
// SIGNUP / LOGIN / LOGOUT
// =============================================================================

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		display   string
		wantField string
	}{
		{"short password", "ada@example.com", "abc12", "Ada", "password"},
		{"no digit", "ada@example.com", "abcdefgh", "Ada", "password"},
		{"no letter", "ada@example.com", "12345678", "Ada", "password"},
		{"bad email", "ada", "secret123", "Ada", "email"},
		{"no display name", "ada@example.com", "secret123", "  ", "displayName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			s, _ := newTestService(api)

			_, err := s.Signup(context.Background(), tt.email, tt.password, tt.display)

			var v apperror.ValidationErrors
			require.True(t, errors.As(err, &v), "want ValidationErrors, got %v", err)
			assert.Contains(t, v, tt.wantField)
			assert.Equal(t, 0, api.signupCalls, "invalid input must not reach the API")
		})
	}
}

func TestSignup_RedirectsToWelcome(t *testing.T) {
	api := &fakeAPI{}
	s, h := newTestService(api)

	res, err := s.Signup(context.Background(), " ada@example.com ", "secret123", "Ada")
	require.NoError(t, err)
	assert.Equal(t, PathWelcome, res.Redirect)

	cached, ok := h.CachedCurrentUser()
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", cached.Email)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name         string
		password     string
		next         string
		wantRedirect string
		wantStatus   int
	}{
		{"default redirect", "secret123", "", PathFeed, 0},
		{"next honoured", "secret123", "/articles/new", "/articles/new", 0},
		{"absolute next ignored", "secret123", "https://evil.example", PathFeed, 0},
		{"protocol-relative ignored", "secret123", "//evil.example", PathFeed, 0},
		{"wrong password", "nope12345", "", "", 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(&fakeAPI{})
			res, err := s.Login(context.Background(), "ada@example.com", tt.password, tt.next)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, apperror.StatusOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRedirect, res.Redirect)
		})
	}
}

func TestLogout_ClearsCacheEvenOnFailure(t *testing.T) {
	api := &fakeAPI{}
	s, h := newTestService(api)
	ctx := context.Background()

	_, err := s.Login(ctx, "ada@example.com", "secret123", "")
	require.NoError(t, err)

	api.logoutErr = &apperror.NetworkError{Op: "POST /api/auth/logout", Err: errors.New("down")}
	path, err := s.Logout(ctx)
	assert.Error(t, err)
	assert.Equal(t, PathHome, path)
	_, ok := h.CachedCurrentUser()
	assert.False(t, ok)
}

func TestCompleteGitHub(t *testing.T) {
	tests := []struct {
		name    string
		created bool
		want    string
	}{
		{"new user", true, PathWelcome},
		{"returning user", false, PathFeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(&fakeAPI{created: tt.created})
			res, err := s.CompleteGitHub(context.Background(), "code", "state")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Redirect)
		})
	}
}

// =============================================================================
// PROFILE EDITOR
// =============================================================================

func TestProfileEditor_RequiresSession(t *testing.T) {
	api := &fakeAPI{}
	_, h := newTestService(api)
	e := NewProfileEditor(api, h, testLogger())

	_, err := e.Load(context.Background())
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestProfileEditor_UsernameSetOnce(t *testing.T) {
	api := &fakeAPI{}
	s, h := newTestService(api)
	ctx := context.Background()

	_, err := s.Signup(ctx, "ada@example.com", "secret123", "Ada")
	require.NoError(t, err)

	e := NewProfileEditor(api, h, testLogger())
	_, err = e.Load(ctx)
	require.NoError(t, err)
	assert.False(t, e.UsernameDisabled())

	e.SetUsername("Ada Lovelace!")
	assert.Equal(t, "ada-lovelace", e.Username)

	saved, err := e.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada-lovelace", saved.Username)
	assert.True(t, e.UsernameDisabled())

	p, err := h.PublicProfile(ctx, "ada-lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName)

	e.SetUsername("someone-else")
	_, err = e.Save(ctx)
	var v apperror.ValidationErrors
	require.True(t, errors.As(err, &v))
	assert.Equal(t, ErrUsernameLocked, v["username"])
	assert.Len(t, api.updates, 1, "locked username must not reach the API")
}

func TestProfileEditor_OnlyChangedFieldsSent(t *testing.T) {
	api := &fakeAPI{}
	s, h := newTestService(api)
	ctx := context.Background()
	_, _ = s.Signup(ctx, "ada@example.com", "secret123", "Ada")

	e := NewProfileEditor(api, h, testLogger())
	_, err := e.Load(ctx)
	require.NoError(t, err)

	_, err = e.Save(ctx)
	require.NoError(t, err)
	assert.Empty(t, api.updates, "no changes, no request")

	e.Bio = "Working on retrieval"
	_, err = e.Save(ctx)
	require.NoError(t, err)
	require.Len(t, api.updates, 1)
	u := api.updates[0]
	assert.Nil(t, u.Username)
	assert.Nil(t, u.DisplayName)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "Working on retrieval", *u.Bio)
}

func TestProfileEditor_ExpertiseLimit(t *testing.T) {
	api := &fakeAPI{}
	s, h := newTestService(api)
	ctx := context.Background()
	_, _ = s.Signup(ctx, "ada@example.com", "secret123", "Ada")

	e := NewProfileEditor(api, h, testLogger())
	_, _ = e.Load(ctx)
	for _, tag := range model.Tags {
		e.ToggleExpertise(tag)
	}
	assert.Len(t, e.ExpertiseTags, model.MaxExpertiseTags)
	assert.Nil(t, e.Validate())
}
