package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/auth"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/service"
)

// GitHubOAuth is the part of auth.GitHubProvider the handler needs.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves signup, login, logout and the GitHub OAuth flow.
//
// SESSIONS:
// Every successful sign-in sets the HttpOnly session cookie and answers with
// the private profile. The token is never part of a response body.
//
// GITHUB FLOW:
//
//	GET /api/auth/login/github     → state cookie + 307 to GitHub
//	GET /api/auth/github/callback  → state check, code exchange, session
//
// The callback answers JSON to API clients (Accept: application/json) and
// redirects browsers to WEB_BASE_URL + /welcome or /feed.
type AuthHandler struct {
	auth       *service.AuthService
	users      *service.UserService
	tokens     *auth.TokenService
	github     GitHubOAuth
	webBaseURL string
	recorder   Recorder
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil, which turns the
// OAuth endpoints into 501s.
func NewAuthHandler(
	authSvc *service.AuthService,
	users *service.UserService,
	tokens *auth.TokenService,
	github GitHubOAuth,
	webBaseURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:       authSvc,
		users:      users,
		tokens:     tokens,
		github:     github,
		webBaseURL: strings.TrimRight(webBaseURL, "/"),
		recorder:   nopRecorder{},
		logger:     logger,
	}
}

// WithRecorder makes the handler count sign-ins on rec.
func (h *AuthHandler) WithRecorder(rec Recorder) *AuthHandler {
	h.recorder = rec
	return h
}

// HandleSignup creates a password account and signs it in.
//
// HTTP: POST /api/auth/signup → 201 AuthResponse
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.auth.Signup(r.Context(), req)
	h.recorder.ObserveLogin("signup", err)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.startSession(w, r, user, true, http.StatusCreated)
}

// HandleLogin checks email and password.
//
// HTTP: POST /api/auth/login → 200 AuthResponse
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.auth.Login(r.Context(), req)
	h.recorder.ObserveLogin("password", err)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.startSession(w, r, user, false, http.StatusOK)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/auth/logout → 204
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.tokens.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleGitHubLogin stores a random state in a short-lived cookie and
// redirects to GitHub.
//
// HTTP: GET /api/auth/login/github
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, h.logger, apperror.Unavailable("GitHub login is not configured"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, h.logger, apperror.Unavailable("GitHub login is not configured"))
		return
	}

	stateCookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, h.logger, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}
	// single use
	http.SetCookie(w, &http.Cookie{Name: auth.StateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		writeError(w, h.logger, apperror.Unauthorized("GitHub authorization was denied"))
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, apperror.ValidationFailed("code", "Missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.Unauthorized("GitHub authentication failed"))
		return
	}
	user, created, err := h.auth.LoginGitHub(r.Context(), ghUser)
	h.recorder.ObserveLogin("github", err)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if wantsJSON(r) {
		h.startSession(w, r, user, created, http.StatusOK)
		return
	}
	if err := h.tokens.SetSession(w, user.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	target := "/feed"
	if created {
		target = "/welcome"
	}
	http.Redirect(w, r, h.webBaseURL+target, http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User, created bool, status int) {
	if err := h.tokens.SetSession(w, user.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	profile, err := h.users.Me(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, status, model.AuthResponse{User: *profile, Created: created})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
