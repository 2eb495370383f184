package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sakif/aic-hub/internal/model"
)

// ListSpaces returns one page of spaces visible to the caller.
func (c *Client) ListSpaces(ctx context.Context, q model.SpaceQuery) (*model.SpaceList, error) {
	path := newQuery().
		strs("tags", q.Tags).
		str("q", q.Search).
		flag("my_spaces", q.MySpaces).
		always("skip", q.Skip).
		num("limit", q.Limit).
		path("/api/spaces")

	var out model.SpaceList
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Spaces == nil {
		out.Spaces = []model.SpaceSummary{}
	}
	return &out, nil
}

// Space fetches one space by slug. Private spaces answer 403 to non-members.
func (c *Client) Space(ctx context.Context, slug string) (*model.Space, error) {
	var out model.Space
	if err := c.Do(ctx, http.MethodGet, "/api/spaces/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSpace creates a space owned by the caller.
func (c *Client) CreateSpace(ctx context.Context, in model.SpaceInput) (*model.Space, error) {
	var out model.Space
	if err := c.Do(ctx, http.MethodPost, "/api/spaces", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinSpace adds the caller as a member. Already being a member answers 409.
func (c *Client) JoinSpace(ctx context.Context, spaceID string) (*model.JoinResult, error) {
	var out model.JoinResult
	if err := c.Do(ctx, http.MethodPost, "/api/spaces/"+url.PathEscape(spaceID)+"/join", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LeaveSpace removes the caller from a space. The owner cannot leave (400).
func (c *Client) LeaveSpace(ctx context.Context, spaceID string) error {
	return c.Do(ctx, http.MethodPost, "/api/spaces/"+url.PathEscape(spaceID)+"/leave", nil, nil)
}

// Members lists a space's members, optionally filtered by role.
func (c *Client) Members(ctx context.Context, spaceID string, role model.Role, skip, limit int) (*model.MemberList, error) {
	path := newQuery().
		str("role", string(role)).
		always("skip", skip).
		num("limit", limit).
		path("/api/spaces/" + url.PathEscape(spaceID) + "/members")

	var out model.MemberList
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Members == nil {
		out.Members = []model.SpaceMember{}
	}
	return &out, nil
}

// UpdateMemberRole changes a member's role. Only owners and moderators may.
func (c *Client) UpdateMemberRole(ctx context.Context, spaceID, userID string, role model.Role) (*model.RoleUpdate, error) {
	var out model.RoleUpdate
	path := "/api/spaces/" + url.PathEscape(spaceID) + "/members/" + url.PathEscape(userID)
	if err := c.Do(ctx, http.MethodPatch, path, model.RoleUpdate{Role: role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Member fetches one membership. Non-members answer 404.
func (c *Client) Member(ctx context.Context, spaceID, userID string) (*model.SpaceMember, error) {
	var out model.SpaceMember
	path := "/api/spaces/" + url.PathEscape(spaceID) + "/members/" + url.PathEscape(userID)
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpaceArticles lists the published articles shared to a space.
func (c *Client) SpaceArticles(ctx context.Context, spaceID string, pinnedFirst bool, skip, limit int) (*model.SpaceArticleList, error) {
	path := newQuery().
		flag("pinned_first", pinnedFirst).
		always("skip", skip).
		num("limit", limit).
		path("/api/spaces/" + url.PathEscape(spaceID) + "/articles")

	var out model.SpaceArticleList
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Articles == nil {
		out.Articles = []model.SpaceArticle{}
	}
	return &out, nil
}

// ShareArticle shares a published article to a space the caller belongs to.
func (c *Client) ShareArticle(ctx context.Context, spaceID, articleID string) (*model.SpaceArticle, error) {
	var out model.SpaceArticle
	path := "/api/spaces/" + url.PathEscape(spaceID) + "/articles"
	if err := c.Do(ctx, http.MethodPost, path, model.ShareArticle{ArticleID: articleID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PinSpaceArticle pins or unpins a shared article. Owners and moderators only.
func (c *Client) PinSpaceArticle(ctx context.Context, spaceID, articleID string, pinned bool) (*model.PinUpdate, error) {
	var out model.PinUpdate
	path := "/api/spaces/" + url.PathEscape(spaceID) + "/articles/" + url.PathEscape(articleID)
	if err := c.Do(ctx, http.MethodPatch, path, model.PinUpdate{Pinned: pinned}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveSpaceArticle takes an article out of a space.
func (c *Client) RemoveSpaceArticle(ctx context.Context, spaceID, articleID string) error {
	path := "/api/spaces/" + url.PathEscape(spaceID) + "/articles/" + url.PathEscape(articleID)
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
