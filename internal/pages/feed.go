package pages

import (
	"context"
	"sync"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/resource"
	"github.com/sakif/aic-hub/internal/validate"
)

// FeedAPI is the part of the API client the feed pages use.
type FeedAPI interface {
	Feed(ctx context.Context, q model.FeedQuery) (*model.FeedPage, error)
	Trending(ctx context.Context, kind, timeRange string, limit int) (*model.Trending, error)
	Discover(ctx context.Context, category string, limit int) (*model.Discovery, error)
}

// =============================================================================
// FEED
// =============================================================================

// FeedPage is the personalized feed with its view tabs.
type FeedPage struct {
	api   FeedAPI
	list  *paginator[model.FeedItem]
	mu    sync.Mutex
	query model.FeedQuery
}

// NewFeedPage creates the feed page. An empty view means latest.
func NewFeedPage(api FeedAPI, initial model.FeedQuery) *FeedPage {
	if initial.View == "" {
		initial.View = model.FeedLatest
	}
	initial.Skip = 0
	return &FeedPage{api: api, list: newPaginator[model.FeedItem](initial.Limit), query: initial}
}

func (p *FeedPage) Mount(ctx context.Context) resource.State[Listing[model.FeedItem]] {
	return p.list.reset(ctx, p.fetch())
}

func (p *FeedPage) Query() model.FeedQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.query
	q.Tags = append([]string(nil), p.query.Tags...)
	return q
}

// SetView switches between latest, trending and recommended.
func (p *FeedPage) SetView(ctx context.Context, view string) resource.State[Listing[model.FeedItem]] {
	p.mu.Lock()
	p.query.View = view
	p.mu.Unlock()
	return p.Mount(ctx)
}

// SetTimeRange changes the window used by the trending view.
func (p *FeedPage) SetTimeRange(ctx context.Context, r string) resource.State[Listing[model.FeedItem]] {
	p.mu.Lock()
	p.query.TimeRange = r
	p.mu.Unlock()
	return p.Mount(ctx)
}

func (p *FeedPage) ToggleTag(ctx context.Context, tag string) resource.State[Listing[model.FeedItem]] {
	p.mu.Lock()
	p.query.Tags = validate.ToggleTag(p.query.Tags, tag, len(model.Tags))
	p.mu.Unlock()
	return p.Mount(ctx)
}

func (p *FeedPage) LoadMore(ctx context.Context) resource.State[Listing[model.FeedItem]] {
	return p.list.more(ctx, p.fetch())
}

func (p *FeedPage) State() resource.State[Listing[model.FeedItem]] { return p.list.state() }
func (p *FeedPage) Retry(ctx context.Context) resource.State[Listing[model.FeedItem]] {
	return p.list.retry(ctx)
}
func (p *FeedPage) Close() { p.list.close() }

func (p *FeedPage) fetch() window[model.FeedItem] {
	q := p.Query()
	return func(ctx context.Context, skip, limit int) ([]model.FeedItem, int, error) {
		q.Skip, q.Limit = skip, limit
		out, err := p.api.Feed(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		return out.Items, out.Total, nil
	}
}

// =============================================================================
// TRENDING
// =============================================================================

// TrendingPage ranks articles, spaces and tags over a time range.
type TrendingPage struct {
	api       FeedAPI
	res       *resource.Resource[*model.Trending]
	mu        sync.Mutex
	kind      string
	timeRange string
	limit     int
}

// NewTrendingPage creates the page. Empty kind means "all", empty range "7d".
func NewTrendingPage(api FeedAPI, kind, timeRange string, limit int) *TrendingPage {
	if kind == "" {
		kind = "all"
	}
	if timeRange == "" {
		timeRange = model.Range7d
	}
	return &TrendingPage{api: api, res: resource.New[*model.Trending](nil), kind: kind, timeRange: timeRange, limit: limit}
}

func (p *TrendingPage) Mount(ctx context.Context) resource.State[*model.Trending] {
	p.mu.Lock()
	kind, tr, limit := p.kind, p.timeRange, p.limit
	p.mu.Unlock()
	return p.res.Load(ctx, func(ctx context.Context) (*model.Trending, error) {
		return p.api.Trending(ctx, kind, tr, limit)
	})
}

func (p *TrendingPage) SetKind(ctx context.Context, kind string) resource.State[*model.Trending] {
	p.mu.Lock()
	p.kind = kind
	p.mu.Unlock()
	return p.Mount(ctx)
}

func (p *TrendingPage) SetTimeRange(ctx context.Context, r string) resource.State[*model.Trending] {
	p.mu.Lock()
	p.timeRange = r
	p.mu.Unlock()
	return p.Mount(ctx)
}

func (p *TrendingPage) State() resource.State[*model.Trending] { return p.res.State() }
func (p *TrendingPage) Retry(ctx context.Context) resource.State[*model.Trending] {
	return p.res.Retry(ctx)
}
func (p *TrendingPage) Close() { p.res.Close() }

// =============================================================================
// DISCOVER
// =============================================================================

// DiscoverPage shows one discovery category at a time.
type DiscoverPage struct {
	api      FeedAPI
	res      *resource.Resource[*model.Discovery]
	mu       sync.Mutex
	category string
	limit    int
}

// NewDiscoverPage creates the page. Empty category means rising_articles.
func NewDiscoverPage(api FeedAPI, category string, limit int) *DiscoverPage {
	if category == "" {
		category = model.DiscoverRisingArticles
	}
	return &DiscoverPage{api: api, res: resource.New[*model.Discovery](nil), category: category, limit: limit}
}

func (p *DiscoverPage) Mount(ctx context.Context) resource.State[*model.Discovery] {
	p.mu.Lock()
	cat, limit := p.category, p.limit
	p.mu.Unlock()
	return p.res.Load(ctx, func(ctx context.Context) (*model.Discovery, error) {
		return p.api.Discover(ctx, cat, limit)
	})
}

func (p *DiscoverPage) SetCategory(ctx context.Context, category string) resource.State[*model.Discovery] {
	p.mu.Lock()
	p.category = category
	p.mu.Unlock()
	return p.Mount(ctx)
}

func (p *DiscoverPage) State() resource.State[*model.Discovery] { return p.res.State() }
func (p *DiscoverPage) Retry(ctx context.Context) resource.State[*model.Discovery] {
	return p.res.Retry(ctx)
}
func (p *DiscoverPage) Close() { p.res.Close() }
