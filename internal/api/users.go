package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sakif/aic-hub/internal/model"
)

// Me returns the signed-in user. A missing or expired session answers 401.
func (c *Client) Me(ctx context.Context) (*model.PrivateProfile, error) {
	var out model.PrivateProfile
	if err := c.Do(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe patches the signed-in user's profile and returns the saved state.
func (c *Client) UpdateMe(ctx context.Context, update model.ProfileUpdate) (*model.PrivateProfile, error) {
	var out model.PrivateProfile
	if err := c.Do(ctx, http.MethodPatch, "/api/users/me", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// User returns the public profile for username. Unknown users answer 404.
func (c *Client) User(ctx context.Context, username string) (*model.PublicProfile, error) {
	var out model.PublicProfile
	if err := c.Do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(username), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
