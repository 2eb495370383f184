package pages

import (
	"context"
	"strings"
	"sync"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/resource"
	"github.com/sakif/aic-hub/internal/validate"
)

// SpacesAPI is the part of the API client the space pages use.
type SpacesAPI interface {
	ListSpaces(ctx context.Context, q model.SpaceQuery) (*model.SpaceList, error)
	Space(ctx context.Context, slug string) (*model.Space, error)
	JoinSpace(ctx context.Context, spaceID string) (*model.JoinResult, error)
	LeaveSpace(ctx context.Context, spaceID string) error
	Members(ctx context.Context, spaceID string, role model.Role, skip, limit int) (*model.MemberList, error)
	SpaceArticles(ctx context.Context, spaceID string, pinnedFirst bool, skip, limit int) (*model.SpaceArticleList, error)
	ShareArticle(ctx context.Context, spaceID, articleID string) (*model.SpaceArticle, error)
	PinSpaceArticle(ctx context.Context, spaceID, articleID string, pinned bool) (*model.PinUpdate, error)
	RemoveSpaceArticle(ctx context.Context, spaceID, articleID string) error
}

// =============================================================================
// SPACE LIST
// =============================================================================

// SpacesPage is the browsable list of spaces.
type SpacesPage struct {
	api   SpacesAPI
	list  *paginator[model.SpaceSummary]
	mu    sync.Mutex
	query model.SpaceQuery
}

func NewSpacesPage(api SpacesAPI, initial model.SpaceQuery) *SpacesPage {
	initial.Skip = 0
	return &SpacesPage{api: api, list: newPaginator[model.SpaceSummary](initial.Limit), query: initial}
}

func (p *SpacesPage) Mount(ctx context.Context) resource.State[Listing[model.SpaceSummary]] {
	return p.list.reset(ctx, p.fetch())
}

// Query returns the current filter selection.
func (p *SpacesPage) Query() model.SpaceQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.query
	q.Tags = append([]string(nil), p.query.Tags...)
	return q
}

func (p *SpacesPage) ToggleTag(ctx context.Context, tag string) resource.State[Listing[model.SpaceSummary]] {
	p.mu.Lock()
	p.query.Tags = validate.ToggleTag(p.query.Tags, tag, len(model.Tags))
	p.mu.Unlock()
	return p.Mount(ctx)
}

func (p *SpacesPage) SetSearch(ctx context.Context, term string) resource.State[Listing[model.SpaceSummary]] {
	p.mu.Lock()
	p.query.Search = strings.TrimSpace(term)
	p.mu.Unlock()
	return p.Mount(ctx)
}

// SetMine restricts the list to spaces the caller belongs to. The server
// answers 401 when nobody is signed in.
func (p *SpacesPage) SetMine(ctx context.Context, mine bool) resource.State[Listing[model.SpaceSummary]] {
	p.mu.Lock()
	p.query.MySpaces = mine
	p.mu.Unlock()
	return p.Mount(ctx)
}

func (p *SpacesPage) LoadMore(ctx context.Context) resource.State[Listing[model.SpaceSummary]] {
	return p.list.more(ctx, p.fetch())
}

func (p *SpacesPage) State() resource.State[Listing[model.SpaceSummary]] { return p.list.state() }
func (p *SpacesPage) Retry(ctx context.Context) resource.State[Listing[model.SpaceSummary]] {
	return p.list.retry(ctx)
}
func (p *SpacesPage) Close() { p.list.close() }

func (p *SpacesPage) fetch() window[model.SpaceSummary] {
	q := p.Query()
	return func(ctx context.Context, skip, limit int) ([]model.SpaceSummary, int, error) {
		q.Skip, q.Limit = skip, limit
		out, err := p.api.ListSpaces(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		return out.Spaces, out.Total, nil
	}
}

// =============================================================================
// SPACE DETAIL
// =============================================================================

// SpacePage shows one space with its members and shared articles and lets
// the caller join or leave it. Membership changes and shares update the
// loaded space in place.
type SpacePage struct {
	api      SpacesAPI
	slug     string
	space    *resource.Resource[*model.Space]
	members  *paginator[model.SpaceMember]
	articles *paginator[model.SpaceArticle]
}

func NewSpacePage(api SpacesAPI, slug string) *SpacePage {
	return &SpacePage{
		api:      api,
		slug:     slug,
		space:    resource.New[*model.Space](nil),
		members:  newPaginator[model.SpaceMember](DefaultPageSize),
		articles: newPaginator[model.SpaceArticle](DefaultPageSize),
	}
}

// Mount loads the space and, when that succeeds, the first page of members
// and of shared articles. A private space answers 403 for outsiders; both
// lists are then left idle.
func (p *SpacePage) Mount(ctx context.Context) resource.State[*model.Space] {
	slug := p.slug
	s := p.space.Load(ctx, func(ctx context.Context) (*model.Space, error) {
		return p.api.Space(ctx, slug)
	})
	if s.Phase == resource.Success {
		p.members.reset(ctx, p.fetchMembers(s.Data.ID))
		p.articles.reset(ctx, p.fetchArticles(s.Data.ID))
	}
	return s
}

// Join adds the caller to the space.
func (p *SpacePage) Join(ctx context.Context) (*model.JoinResult, error) {
	cur := p.space.State()
	if cur.Phase != resource.Success || cur.Data == nil {
		return nil, errNotLoaded
	}
	res, err := p.api.JoinSpace(ctx, cur.Data.ID)
	if err != nil {
		return nil, err
	}
	updated := *cur.Data
	role := res.Role
	updated.IsMember = true
	updated.MemberRole = &role
	updated.MemberCount++
	p.space.Set(&updated)
	p.members.reset(ctx, p.fetchMembers(updated.ID))
	return res, nil
}

// Leave removes the caller from the space. Owners cannot leave.
func (p *SpacePage) Leave(ctx context.Context) error {
	cur := p.space.State()
	if cur.Phase != resource.Success || cur.Data == nil {
		return errNotLoaded
	}
	if err := p.api.LeaveSpace(ctx, cur.Data.ID); err != nil {
		return err
	}
	updated := *cur.Data
	updated.IsMember = false
	updated.MemberRole = nil
	if updated.MemberCount > 0 {
		updated.MemberCount--
	}
	p.space.Set(&updated)
	p.members.reset(ctx, p.fetchMembers(updated.ID))
	return nil
}

// LoadMoreMembers appends the next page of members.
func (p *SpacePage) LoadMoreMembers(ctx context.Context) resource.State[Listing[model.SpaceMember]] {
	cur := p.space.State()
	if cur.Phase != resource.Success || cur.Data == nil {
		return p.members.state()
	}
	return p.members.more(ctx, p.fetchMembers(cur.Data.ID))
}

// ShareArticle adds a published article to the space and reloads the
// article list.
func (p *SpacePage) ShareArticle(ctx context.Context, articleID string) (*model.SpaceArticle, error) {
	cur := p.space.State()
	if cur.Phase != resource.Success || cur.Data == nil {
		return nil, errNotLoaded
	}
	sa, err := p.api.ShareArticle(ctx, cur.Data.ID, articleID)
	if err != nil {
		return nil, err
	}
	updated := *cur.Data
	updated.ArticleCount++
	p.space.Set(&updated)
	p.articles.reset(ctx, p.fetchArticles(updated.ID))
	return sa, nil
}

// SetPinned pins or unpins a shared article. Owners and moderators only.
func (p *SpacePage) SetPinned(ctx context.Context, articleID string, pinned bool) error {
	cur := p.space.State()
	if cur.Phase != resource.Success || cur.Data == nil {
		return errNotLoaded
	}
	if _, err := p.api.PinSpaceArticle(ctx, cur.Data.ID, articleID, pinned); err != nil {
		return err
	}
	p.articles.reset(ctx, p.fetchArticles(cur.Data.ID))
	return nil
}

// RemoveArticle takes a shared article out of the space.
func (p *SpacePage) RemoveArticle(ctx context.Context, articleID string) error {
	cur := p.space.State()
	if cur.Phase != resource.Success || cur.Data == nil {
		return errNotLoaded
	}
	if err := p.api.RemoveSpaceArticle(ctx, cur.Data.ID, articleID); err != nil {
		return err
	}
	updated := *cur.Data
	if updated.ArticleCount > 0 {
		updated.ArticleCount--
	}
	p.space.Set(&updated)
	p.articles.reset(ctx, p.fetchArticles(updated.ID))
	return nil
}

// LoadMoreArticles appends the next page of shared articles.
func (p *SpacePage) LoadMoreArticles(ctx context.Context) resource.State[Listing[model.SpaceArticle]] {
	cur := p.space.State()
	if cur.Phase != resource.Success || cur.Data == nil {
		return p.articles.state()
	}
	return p.articles.more(ctx, p.fetchArticles(cur.Data.ID))
}

func (p *SpacePage) State() resource.State[*model.Space] { return p.space.State() }
func (p *SpacePage) Articles() resource.State[Listing[model.SpaceArticle]] {
	return p.articles.state()
}
func (p *SpacePage) Members() resource.State[Listing[model.SpaceMember]] {
	return p.members.state()
}
func (p *SpacePage) Retry(ctx context.Context) resource.State[*model.Space] { return p.Mount(ctx) }

func (p *SpacePage) Close() {
	p.space.Close()
	p.members.close()
	p.articles.close()
}

// fetchArticles lists pinned articles first.
func (p *SpacePage) fetchArticles(spaceID string) window[model.SpaceArticle] {
	return func(ctx context.Context, skip, limit int) ([]model.SpaceArticle, int, error) {
		out, err := p.api.SpaceArticles(ctx, spaceID, true, skip, limit)
		if err != nil {
			return nil, 0, err
		}
		return out.Articles, out.Total, nil
	}
}

func (p *SpacePage) fetchMembers(spaceID string) window[model.SpaceMember] {
	return func(ctx context.Context, skip, limit int) ([]model.SpaceMember, int, error) {
		out, err := p.api.Members(ctx, spaceID, "", skip, limit)
		if err != nil {
			return nil, 0, err
		}
		return out.Members, out.Total, nil
	}
}

