package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sakif/aic-hub/internal/model"
)

// ListArticles returns one page of published articles.
func (c *Client) ListArticles(ctx context.Context, q model.ArticleQuery) (*model.ArticleList, error) {
	path := newQuery().
		strs("tags", q.Tags).
		str("author", q.Author).
		str("q", q.Search).
		str("sort", q.Sort).
		always("skip", q.Skip).
		num("limit", q.Limit).
		path("/api/articles")

	var out model.ArticleList
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Articles == nil {
		out.Articles = []model.ArticleSummary{}
	}
	return &out, nil
}

// draftsPageSize matches the server's list limit.
const draftsPageSize = 100

// Drafts returns all of the signed-in user's unpublished articles, most
// recently edited first. The endpoint pages, so this walks it until a
// short page comes back.
func (c *Client) Drafts(ctx context.Context) ([]model.ArticleSummary, error) {
	out := []model.ArticleSummary{}
	for skip := 0; ; skip += draftsPageSize {
		var batch []model.ArticleSummary
		path := newQuery().always("skip", skip).always("limit", draftsPageSize).path("/api/articles/drafts")
		if err := c.Do(ctx, http.MethodGet, path, nil, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < draftsPageSize {
			return out, nil
		}
	}
}

// Article fetches one article by id or slug. Drafts are only visible to
// their author; everyone else gets 404.
func (c *Client) Article(ctx context.Context, key string) (*model.Article, error) {
	var out model.Article
	if err := c.Do(ctx, http.MethodGet, "/api/articles/"+url.PathEscape(key), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateArticle stores a new draft.
func (c *Client) CreateArticle(ctx context.Context, in model.ArticleInput) (*model.Article, error) {
	var out model.Article
	if err := c.Do(ctx, http.MethodPost, "/api/articles", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateArticle patches an article the caller authored.
func (c *Client) UpdateArticle(ctx context.Context, id string, in model.ArticleUpdate) (*model.Article, error) {
	var out model.Article
	if err := c.Do(ctx, http.MethodPatch, "/api/articles/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteArticle removes an article the caller authored.
func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/api/articles/"+url.PathEscape(id), nil, nil)
}

// PublishArticle moves an article to published and stamps publishedAt.
func (c *Client) PublishArticle(ctx context.Context, id string) (*model.Article, error) {
	var out model.Article
	if err := c.Do(ctx, http.MethodPost, "/api/articles/"+url.PathEscape(id)+"/publish", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnpublishArticle moves an article back to draft.
func (c *Client) UnpublishArticle(ctx context.Context, id string) (*model.Article, error) {
	var out model.Article
	if err := c.Do(ctx, http.MethodPost, "/api/articles/"+url.PathEscape(id)+"/unpublish", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
