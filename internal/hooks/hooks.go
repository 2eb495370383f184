// Package hooks provides the shared data-fetching entry points for user data.
//
// Two lookups are used all over the client: "who is signed in" and "show me
// this user's public profile". Both are cached per key so that several pages
// mounted in one session share one response. There is no background refetch;
// a page calls Revalidate when it wants fresh data and Mutate after a
// successful save.
//
// ABSENT VS. FAILED:
// CurrentUser treats 401 and 404 as "nobody is signed in" and returns
// (nil, nil). Any other failure, including a network error, is returned so
// the caller can show it. PublicProfile never swallows errors; an unknown
// username comes back as *apperror.HTTPError with Status 404.
package hooks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
)

const currentUserKey = "/api/users/me"

// UserAPI is the part of the API client the hooks need.
type UserAPI interface {
	Me(ctx context.Context) (*model.PrivateProfile, error)
	User(ctx context.Context, username string) (*model.PublicProfile, error)
}

// Hooks owns the user caches for one client session.
type Hooks struct {
	api      UserAPI
	logger   *slog.Logger
	me       *cache[*model.PrivateProfile]
	profiles *cache[*model.PublicProfile]
}

// New creates Hooks backed by api.
func New(api UserAPI, logger *slog.Logger) *Hooks {
	return &Hooks{
		api:      api,
		logger:   logger,
		me:       newCache[*model.PrivateProfile](),
		profiles: newCache[*model.PublicProfile](),
	}
}

// CurrentUser returns the signed-in user, or nil when there is no session.
func (h *Hooks) CurrentUser(ctx context.Context) (*model.PrivateProfile, error) {
	return h.me.get(ctx, currentUserKey, h.fetchMe)
}

// RevalidateCurrentUser refetches the signed-in user, bypassing the cache.
func (h *Hooks) RevalidateCurrentUser(ctx context.Context) (*model.PrivateProfile, error) {
	return h.me.revalidate(ctx, currentUserKey, h.fetchMe)
}

// MutateCurrentUser stores a profile returned by a successful save. The
// matching public profile entry is updated too so both views agree. After a
// username change the entry under the old name is dropped, since the server
// no longer knows that name.
func (h *Hooks) MutateCurrentUser(p *model.PrivateProfile) {
	prev, _ := h.me.peek(currentUserKey)
	h.me.mutate(currentUserKey, p)
	if p == nil {
		return
	}
	if prev != nil && prev.Username != p.Username && (prev.ID == "" || prev.ID == p.ID) {
		h.profiles.forget(prev.Username)
	}
	if p.ID != "" {
		h.profiles.forgetWhere(func(key string, v *model.PublicProfile) bool {
			return v != nil && v.ID == p.ID && key != p.Username
		})
	}
	public := p.PublicProfile
	h.profiles.mutate(p.Username, &public)
}

func (h *Hooks) fetchMe(ctx context.Context) (*model.PrivateProfile, error) {
	me, err := h.api.Me(ctx)
	if err != nil {
		switch apperror.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusNotFound:
			h.logger.Debug("no current user", "status", apperror.StatusOf(err))
			return nil, nil
		}
		return nil, err
	}
	return me, nil
}

// PublicProfile returns username's public profile.
func (h *Hooks) PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	return h.profiles.get(ctx, username, h.fetchProfile(username))
}

// RevalidateProfile refetches username's public profile.
func (h *Hooks) RevalidateProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	return h.profiles.revalidate(ctx, username, h.fetchProfile(username))
}

func (h *Hooks) fetchProfile(username string) func(context.Context) (*model.PublicProfile, error) {
	return func(ctx context.Context) (*model.PublicProfile, error) {
		if username == "" {
			return nil, apperror.NewHTTPError(http.StatusNotFound, "User not found")
		}
		p, err := h.api.User(ctx, username)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// CachedCurrentUser returns the cached current user without fetching.
func (h *Hooks) CachedCurrentUser() (*model.PrivateProfile, bool) {
	return h.me.peek(currentUserKey)
}

// Clear drops every cached entry. Called on logout.
func (h *Hooks) Clear() {
	h.me.clear()
	h.profiles.clear()
}

// ForgetCurrentUser drops only the current user entry, so the next
// CurrentUser call asks the server again (after login, for example).
func (h *Hooks) ForgetCurrentUser() {
	h.me.forget(currentUserKey)
}
