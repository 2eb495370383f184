package api

import (
	"context"
	"net/http"

	"github.com/sakif/aic-hub/internal/model"
)

// Feed returns one page of the personalized feed.
func (c *Client) Feed(ctx context.Context, q model.FeedQuery) (*model.FeedPage, error) {
	path := newQuery().
		str("view", q.View).
		strs("tags", q.Tags).
		str("time_range", q.TimeRange).
		always("skip", q.Skip).
		num("limit", q.Limit).
		path("/api/feed")

	var out model.FeedPage
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []model.FeedItem{}
	}
	return &out, nil
}

// Trending returns ranked articles, spaces and tags. kind is "articles",
// "spaces", "tags" or "all".
func (c *Client) Trending(ctx context.Context, kind, timeRange string, limit int) (*model.Trending, error) {
	path := newQuery().
		str("type", kind).
		str("time_range", timeRange).
		num("limit", limit).
		path("/api/feed/trending")

	var out model.Trending
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Discover returns one discovery category.
func (c *Client) Discover(ctx context.Context, category string, limit int) (*model.Discovery, error) {
	path := newQuery().
		str("category", category).
		num("limit", limit).
		path("/api/feed/discover")

	var out model.Discovery
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []model.DiscoveryItem{}
	}
	return &out, nil
}

// RecordInteraction reports a view, click, share or save. The server answers 204.
func (c *Client) RecordInteraction(ctx context.Context, in model.Interaction) error {
	return c.Do(ctx, http.MethodPost, "/api/feed/interactions", in, nil)
}

// Tags returns the tag taxonomy.
func (c *Client) Tags(ctx context.Context) (*model.TagList, error) {
	var out model.TagList
	if err := c.Do(ctx, http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
