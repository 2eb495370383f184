package pages

import (
	"context"
	"strings"
	"sync"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/resource"
	"github.com/sakif/aic-hub/internal/validate"
)

// ArticlesAPI is the part of the API client the article pages use.
type ArticlesAPI interface {
	ListArticles(ctx context.Context, q model.ArticleQuery) (*model.ArticleList, error)
	Drafts(ctx context.Context) ([]model.ArticleSummary, error)
	Article(ctx context.Context, key string) (*model.Article, error)
	DeleteArticle(ctx context.Context, id string) error
}

// =============================================================================
// ARTICLE LIST
// =============================================================================

// ArticlesPage is the browsable list of published articles.
type ArticlesPage struct {
	api   ArticlesAPI
	list  *paginator[model.ArticleSummary]
	mu    sync.Mutex
	query model.ArticleQuery
}

// NewArticlesPage creates the page with the given filters as its initial
// selection. An empty sort means latest.
func NewArticlesPage(api ArticlesAPI, initial model.ArticleQuery) *ArticlesPage {
	if initial.Sort == "" {
		initial.Sort = model.SortLatest
	}
	initial.Skip = 0
	return &ArticlesPage{api: api, list: newPaginator[model.ArticleSummary](initial.Limit), query: initial}
}

// Mount loads the first page.
func (p *ArticlesPage) Mount(ctx context.Context) resource.State[Listing[model.ArticleSummary]] {
	return p.list.reset(ctx, p.fetch())
}

// Query returns the current filter selection.
func (p *ArticlesPage) Query() model.ArticleQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.query
	q.Tags = append([]string(nil), p.query.Tags...)
	return q
}

// ToggleTag adds or removes a tag filter and refetches from the start.
func (p *ArticlesPage) ToggleTag(ctx context.Context, tag string) resource.State[Listing[model.ArticleSummary]] {
	p.mu.Lock()
	p.query.Tags = validate.ToggleTag(p.query.Tags, tag, len(model.Tags))
	p.mu.Unlock()
	return p.Mount(ctx)
}

// SetSort changes the order and refetches from the start.
func (p *ArticlesPage) SetSort(ctx context.Context, sort string) resource.State[Listing[model.ArticleSummary]] {
	p.mu.Lock()
	p.query.Sort = sort
	p.mu.Unlock()
	return p.Mount(ctx)
}

// SetSearch changes the search term and refetches from the start.
func (p *ArticlesPage) SetSearch(ctx context.Context, term string) resource.State[Listing[model.ArticleSummary]] {
	p.mu.Lock()
	p.query.Search = strings.TrimSpace(term)
	p.mu.Unlock()
	return p.Mount(ctx)
}

// LoadMore appends the next page of results.
func (p *ArticlesPage) LoadMore(ctx context.Context) resource.State[Listing[model.ArticleSummary]] {
	return p.list.more(ctx, p.fetch())
}

// State returns the current list state.
func (p *ArticlesPage) State() resource.State[Listing[model.ArticleSummary]] { return p.list.state() }

// Retry repeats the last request.
func (p *ArticlesPage) Retry(ctx context.Context) resource.State[Listing[model.ArticleSummary]] {
	return p.list.retry(ctx)
}

// Close tears the page down.
func (p *ArticlesPage) Close() { p.list.close() }

func (p *ArticlesPage) fetch() window[model.ArticleSummary] {
	q := p.Query()
	return func(ctx context.Context, skip, limit int) ([]model.ArticleSummary, int, error) {
		q.Skip, q.Limit = skip, limit
		out, err := p.api.ListArticles(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		return out.Articles, out.Total, nil
	}
}

// =============================================================================
// DRAFTS
// =============================================================================

// DraftsPage lists the signed-in user's drafts.
type DraftsPage struct {
	api ArticlesAPI
	res *resource.Resource[[]model.ArticleSummary]
}

func NewDraftsPage(api ArticlesAPI) *DraftsPage {
	return &DraftsPage{api: api, res: resource.New[[]model.ArticleSummary](nil)}
}

func (p *DraftsPage) Mount(ctx context.Context) resource.State[[]model.ArticleSummary] {
	return p.res.Load(ctx, p.api.Drafts)
}

// Delete removes a draft and drops it from the list without refetching.
func (p *DraftsPage) Delete(ctx context.Context, id string) error {
	if err := p.api.DeleteArticle(ctx, id); err != nil {
		return err
	}
	cur := p.res.State().Data
	kept := make([]model.ArticleSummary, 0, len(cur))
	for _, a := range cur {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	p.res.Set(kept)
	return nil
}

func (p *DraftsPage) State() resource.State[[]model.ArticleSummary] { return p.res.State() }
func (p *DraftsPage) Retry(ctx context.Context) resource.State[[]model.ArticleSummary] {
	return p.res.Retry(ctx)
}
func (p *DraftsPage) Close() { p.res.Close() }

// =============================================================================
// ARTICLE DETAIL
// =============================================================================

// ArticlePage shows one article by slug (or id).
//
// A 404 means the article does not exist or is a draft the caller did not
// write; a 403 means the caller may not read it. Both are terminal; State
// reports them through IsNotFound / IsForbidden and Retryable is false.
type ArticlePage struct {
	api ArticlesAPI
	key string
	res *resource.Resource[*model.Article]
}

func NewArticlePage(api ArticlesAPI, key string) *ArticlePage {
	return &ArticlePage{api: api, key: key, res: resource.New[*model.Article](nil)}
}

func (p *ArticlePage) Mount(ctx context.Context) resource.State[*model.Article] {
	key := p.key
	return p.res.Load(ctx, func(ctx context.Context) (*model.Article, error) {
		return p.api.Article(ctx, key)
	})
}

// CanEdit reports whether the loaded article belongs to the caller.
func (p *ArticlePage) CanEdit() bool {
	s := p.res.State()
	return s.Phase == resource.Success && s.Data != nil && s.Data.IsAuthor
}

func (p *ArticlePage) State() resource.State[*model.Article] { return p.res.State() }
func (p *ArticlePage) Retry(ctx context.Context) resource.State[*model.Article] {
	return p.res.Retry(ctx)
}
func (p *ArticlePage) Close() { p.res.Close() }
