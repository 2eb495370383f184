package pages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/resource"
)

// =============================================================================
// FAKE API
// =============================================================================

// fakeAPI serves a fixed catalogue of articles and spaces and records the
// queries it received.
type fakeAPI struct {
	articles      []model.ArticleSummary
	articleByKey  map[string]*model.Article
	articleQs     []model.ArticleQuery
	spaces        map[string]*model.Space
	members       []model.SpaceMember
	shared        []model.SpaceArticle
	pinnedFirst   []bool
	joinErr       error
	leaveErr      error
	feedQs        []model.FeedQuery
	trendingCalls []string
	profiles      map[string]*model.PublicProfile
	listErr       error
}

func newFakeAPI(n int) *fakeAPI {
	f := &fakeAPI{articleByKey: map[string]*model.Article{}, spaces: map[string]*model.Space{}, profiles: map[string]*model.PublicProfile{}}
	for i := 0; i < n; i++ {
		f.articles = append(f.articles, model.ArticleSummary{ID: fmt.Sprintf("a%d", i), Title: fmt.Sprintf("Article %d", i)})
	}
	return f
}

func (f *fakeAPI) ListArticles(ctx context.Context, q model.ArticleQuery) (*model.ArticleList, error) {
	f.articleQs = append(f.articleQs, q)
	if f.listErr != nil {
		return nil, f.listErr
	}
	end := q.Skip + q.Limit
	if end > len(f.articles) {
		end = len(f.articles)
	}
	start := q.Skip
	if start > end {
		start = end
	}
	return &model.ArticleList{Articles: f.articles[start:end], Total: len(f.articles), Skip: q.Skip, Limit: q.Limit}, nil
}

func (f *fakeAPI) Drafts(ctx context.Context) ([]model.ArticleSummary, error) {
	return []model.ArticleSummary{{ID: "d1"}, {ID: "d2"}}, nil
}

func (f *fakeAPI) Article(ctx context.Context, key string) (*model.Article, error) {
	if a, ok := f.articleByKey[key]; ok {
		return a, nil
	}
	return nil, apperror.NewHTTPError(404, "Article not found")
}

func (f *fakeAPI) DeleteArticle(ctx context.Context, id string) error { return nil }

func (f *fakeAPI) CreateArticle(ctx context.Context, in model.ArticleInput) (*model.Article, error) {
	return &model.Article{ArticleSummary: model.ArticleSummary{ID: "new", Slug: "new"}, Status: model.StatusDraft}, nil
}

func (f *fakeAPI) UpdateArticle(ctx context.Context, id string, in model.ArticleUpdate) (*model.Article, error) {
	return &model.Article{ArticleSummary: model.ArticleSummary{ID: id, Slug: "edited"}, Status: model.StatusPublished}, nil
}

func (f *fakeAPI) PublishArticle(ctx context.Context, id string) (*model.Article, error) {
	return &model.Article{ArticleSummary: model.ArticleSummary{ID: id, Slug: "new"}, Status: model.StatusPublished}, nil
}

func (f *fakeAPI) UnpublishArticle(ctx context.Context, id string) (*model.Article, error) {
	return &model.Article{ArticleSummary: model.ArticleSummary{ID: id, Slug: "new"}, Status: model.StatusDraft}, nil
}

func (f *fakeAPI) ListSpaces(ctx context.Context, q model.SpaceQuery) (*model.SpaceList, error) {
	if q.MySpaces {
		return nil, apperror.NewHTTPError(401, "Authentication required")
	}
	return &model.SpaceList{Spaces: []model.SpaceSummary{{ID: "s1"}}, Total: 1, Limit: q.Limit}, nil
}

func (f *fakeAPI) Space(ctx context.Context, slug string) (*model.Space, error) {
	if s, ok := f.spaces[slug]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, apperror.NewHTTPError(404, "Space not found")
}

func (f *fakeAPI) JoinSpace(ctx context.Context, spaceID string) (*model.JoinResult, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return &model.JoinResult{Success: true, Role: model.RoleMember}, nil
}

func (f *fakeAPI) LeaveSpace(ctx context.Context, spaceID string) error { return f.leaveErr }

func (f *fakeAPI) Members(ctx context.Context, spaceID string, role model.Role, skip, limit int) (*model.MemberList, error) {
	return &model.MemberList{Members: f.members, Total: len(f.members)}, nil
}

func (f *fakeAPI) SpaceArticles(ctx context.Context, spaceID string, pinnedFirst bool, skip, limit int) (*model.SpaceArticleList, error) {
	f.pinnedFirst = append(f.pinnedFirst, pinnedFirst)
	return &model.SpaceArticleList{Articles: f.shared, Total: len(f.shared)}, nil
}

func (f *fakeAPI) ShareArticle(ctx context.Context, spaceID, articleID string) (*model.SpaceArticle, error) {
	for _, sa := range f.shared {
		if sa.Article.ID == articleID {
			return nil, apperror.NewHTTPError(409, "Article is already shared to this space")
		}
	}
	sa := model.SpaceArticle{Article: model.ArticleSummary{ID: articleID}}
	f.shared = append(f.shared, sa)
	return &sa, nil
}

func (f *fakeAPI) PinSpaceArticle(ctx context.Context, spaceID, articleID string, pinned bool) (*model.PinUpdate, error) {
	for i := range f.shared {
		if f.shared[i].Article.ID == articleID {
			f.shared[i].Pinned = pinned
			return &model.PinUpdate{Pinned: pinned}, nil
		}
	}
	return nil, apperror.NewHTTPError(404, "Article is not shared to this space")
}

func (f *fakeAPI) RemoveSpaceArticle(ctx context.Context, spaceID, articleID string) error {
	for i, sa := range f.shared {
		if sa.Article.ID == articleID {
			f.shared = append(f.shared[:i], f.shared[i+1:]...)
			return nil
		}
	}
	return apperror.NewHTTPError(404, "Article is not shared to this space")
}

func (f *fakeAPI) Feed(ctx context.Context, q model.FeedQuery) (*model.FeedPage, error) {
	f.feedQs = append(f.feedQs, q)
	return &model.FeedPage{Items: []model.FeedItem{{Type: "article"}}, Total: 1, Limit: q.Limit}, nil
}

func (f *fakeAPI) Trending(ctx context.Context, kind, timeRange string, limit int) (*model.Trending, error) {
	f.trendingCalls = append(f.trendingCalls, kind+"/"+timeRange)
	return &model.Trending{}, nil
}

func (f *fakeAPI) Discover(ctx context.Context, category string, limit int) (*model.Discovery, error) {
	return &model.Discovery{Category: category}, nil
}

func (f *fakeAPI) PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	if p, ok := f.profiles[username]; ok {
		return p, nil
	}
	return nil, apperror.NewHTTPError(404, "User not found")
}

// =============================================================================
// ARTICLES PAGE
// =============================================================================

func TestArticlesPage_LoadMoreConcatenates(t *testing.T) {
	api := newFakeAPI(25)
	p := NewArticlesPage(api, model.ArticleQuery{Limit: 10})
	ctx := context.Background()

	s := p.Mount(ctx)
	require.Equal(t, resource.Success, s.Phase)
	assert.Len(t, s.Data.Items, 10)
	assert.True(t, s.Data.HasMore())

	s = p.LoadMore(ctx)
	assert.Len(t, s.Data.Items, 20)
	assert.Equal(t, "a10", s.Data.Items[10].ID)

	s = p.LoadMore(ctx)
	assert.Len(t, s.Data.Items, 25)
	assert.False(t, s.Data.HasMore())

	calls := len(api.articleQs)
	p.LoadMore(ctx)
	assert.Equal(t, calls, len(api.articleQs), "no request once everything is loaded")

	assert.Equal(t, []int{0, 10, 20}, []int{api.articleQs[0].Skip, api.articleQs[1].Skip, api.articleQs[2].Skip})
}

func TestArticlesPage_FilterChangeResetsOffset(t *testing.T) {
	api := newFakeAPI(25)
	p := NewArticlesPage(api, model.ArticleQuery{Limit: 10})
	ctx := context.Background()

	p.Mount(ctx)
	p.LoadMore(ctx)

	tests := []struct {
		name   string
		action func() resource.State[Listing[model.ArticleSummary]]
		check  func(q model.ArticleQuery)
	}{
		{"tag", func() resource.State[Listing[model.ArticleSummary]] { return p.ToggleTag(ctx, "RAG") },
			func(q model.ArticleQuery) { assert.Equal(t, []string{"RAG"}, q.Tags) }},
		{"sort", func() resource.State[Listing[model.ArticleSummary]] { return p.SetSort(ctx, model.SortPopular) },
			func(q model.ArticleQuery) { assert.Equal(t, model.SortPopular, q.Sort) }},
		{"search", func() resource.State[Listing[model.ArticleSummary]] { return p.SetSearch(ctx, "  agents ") },
			func(q model.ArticleQuery) { assert.Equal(t, "agents", q.Search) }},
		{"untag", func() resource.State[Listing[model.ArticleSummary]] { return p.ToggleTag(ctx, "RAG") },
			func(q model.ArticleQuery) { assert.Empty(t, q.Tags) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.action()
			last := api.articleQs[len(api.articleQs)-1]
			assert.Equal(t, 0, last.Skip)
			assert.Len(t, s.Data.Items, 10, "list replaced, not appended")
			tt.check(last)
		})
	}
}

func TestArticlesPage_ErrorThenRetry(t *testing.T) {
	api := newFakeAPI(3)
	api.listErr = apperror.NewHTTPError(500, "")
	p := NewArticlesPage(api, model.ArticleQuery{})
	ctx := context.Background()

	s := p.Mount(ctx)
	require.Equal(t, resource.Failed, s.Phase)
	assert.True(t, s.Retryable())

	api.listErr = nil
	s = p.Retry(ctx)
	assert.Equal(t, resource.Success, s.Phase)
	assert.Len(t, s.Data.Items, 3)
	assert.Equal(t, DefaultPageSize, api.articleQs[0].Limit)
}

func TestArticlesPage_CloseDropsState(t *testing.T) {
	api := newFakeAPI(3)
	p := NewArticlesPage(api, model.ArticleQuery{})
	p.Close()
	s := p.Mount(context.Background())
	assert.NotEqual(t, resource.Success, s.Phase)
}

// =============================================================================
// DETAIL PAGES
// =============================================================================

func TestArticlePage_NotFound(t *testing.T) {
	p := NewArticlePage(newFakeAPI(0), "missing")
	s := p.Mount(context.Background())
	assert.True(t, s.IsNotFound())
	assert.False(t, s.Retryable())
	assert.False(t, p.CanEdit())
}

func TestArticlePage_CanEdit(t *testing.T) {
	api := newFakeAPI(0)
	api.articleByKey["mine"] = &model.Article{IsAuthor: true}
	p := NewArticlePage(api, "mine")
	p.Mount(context.Background())
	assert.True(t, p.CanEdit())
}

func TestDraftsPage_Delete(t *testing.T) {
	p := NewDraftsPage(newFakeAPI(0))
	ctx := context.Background()
	p.Mount(ctx)
	require.NoError(t, p.Delete(ctx, "d1"))
	s := p.State()
	require.Len(t, s.Data, 1)
	assert.Equal(t, "d2", s.Data[0].ID)
}

func TestSpacePage_JoinAndLeave(t *testing.T) {
	api := newFakeAPI(0)
	api.spaces["rag-builders"] = &model.Space{SpaceSummary: model.SpaceSummary{ID: "s1", Slug: "rag-builders", MemberCount: 1}}
	p := NewSpacePage(api, "rag-builders")
	ctx := context.Background()

	_, err := p.Join(ctx)
	assert.Error(t, err, "join before mount")

	require.Equal(t, resource.Success, p.Mount(ctx).Phase)

	res, err := p.Join(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, res.Role)
	s := p.State().Data
	assert.True(t, s.IsMember)
	assert.Equal(t, 2, s.MemberCount)
	require.NotNil(t, s.MemberRole)

	require.NoError(t, p.Leave(ctx))
	s = p.State().Data
	assert.False(t, s.IsMember)
	assert.Nil(t, s.MemberRole)
	assert.Equal(t, 1, s.MemberCount)
}

func TestSpacePage_LeaveFailureKeepsState(t *testing.T) {
	api := newFakeAPI(0)
	api.spaces["x"] = &model.Space{SpaceSummary: model.SpaceSummary{ID: "s1", IsMember: true}}
	api.leaveErr = apperror.NewHTTPError(400, "Owner cannot leave the space")
	p := NewSpacePage(api, "x")
	ctx := context.Background()
	p.Mount(ctx)

	err := p.Leave(ctx)
	assert.Equal(t, 400, apperror.StatusOf(err))
	assert.True(t, p.State().Data.IsMember)
}

func TestSpacePage_SharedArticles(t *testing.T) {
	api := newFakeAPI(0)
	api.spaces["readers"] = &model.Space{SpaceSummary: model.SpaceSummary{ID: "s1", IsMember: true}}
	api.shared = []model.SpaceArticle{{Article: model.ArticleSummary{ID: "a1"}}}
	p := NewSpacePage(api, "readers")
	ctx := context.Background()

	_, err := p.ShareArticle(ctx, "a2")
	assert.Error(t, err, "share before mount")

	require.Equal(t, resource.Success, p.Mount(ctx).Phase)
	assert.Len(t, p.Articles().Data.Items, 1)
	assert.Equal(t, []bool{true}, api.pinnedFirst, "pinned articles are listed first")

	_, err = p.ShareArticle(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, 1, p.State().Data.ArticleCount)
	assert.Len(t, p.Articles().Data.Items, 2)

	_, err = p.ShareArticle(ctx, "a2")
	assert.Equal(t, 409, apperror.StatusOf(err))
	assert.Equal(t, 1, p.State().Data.ArticleCount, "failed share leaves the count alone")

	require.NoError(t, p.SetPinned(ctx, "a2", true))
	assert.True(t, p.Articles().Data.Items[1].Pinned)

	require.NoError(t, p.RemoveArticle(ctx, "a1"))
	assert.Equal(t, 0, p.State().Data.ArticleCount)
	assert.Len(t, p.Articles().Data.Items, 1)
}

func TestSpacesPage_MySpacesUnauthorized(t *testing.T) {
	p := NewSpacesPage(newFakeAPI(0), model.SpaceQuery{})
	s := p.SetMine(context.Background(), true)
	assert.Equal(t, 401, s.Status)
}

// =============================================================================
// FEED PAGES
// =============================================================================

func TestFeedPage_Defaults(t *testing.T) {
	api := newFakeAPI(0)
	p := NewFeedPage(api, model.FeedQuery{})
	ctx := context.Background()

	p.Mount(ctx)
	assert.Equal(t, model.FeedLatest, api.feedQs[0].View)

	p.SetView(ctx, model.FeedTrending)
	p.SetTimeRange(ctx, model.Range24h)
	last := api.feedQs[len(api.feedQs)-1]
	assert.Equal(t, model.FeedTrending, last.View)
	assert.Equal(t, model.Range24h, last.TimeRange)
	assert.Equal(t, 0, last.Skip)
}

func TestTrendingPage(t *testing.T) {
	api := newFakeAPI(0)
	p := NewTrendingPage(api, "", "", 10)
	ctx := context.Background()
	p.Mount(ctx)
	p.SetKind(ctx, "articles")
	p.SetTimeRange(ctx, model.Range30d)
	assert.Equal(t, []string{"all/7d", "articles/7d", "articles/30d"}, api.trendingCalls)
}

func TestDiscoverPage(t *testing.T) {
	p := NewDiscoverPage(newFakeAPI(0), "", 5)
	ctx := context.Background()
	assert.Equal(t, model.DiscoverRisingArticles, p.Mount(ctx).Data.Category)
	assert.Equal(t, model.DiscoverNewUsers, p.SetCategory(ctx, model.DiscoverNewUsers).Data.Category)
}

// =============================================================================
// PROFILE + EDITOR
// =============================================================================

func TestProfilePage(t *testing.T) {
	api := newFakeAPI(2)
	api.profiles["ada"] = &model.PublicProfile{Username: "ada"}
	ctx := context.Background()

	p := NewProfilePage(api, api, "ada")
	require.Equal(t, resource.Success, p.Mount(ctx).Phase)
	assert.Equal(t, "ada", api.articleQs[0].Author)
	assert.Len(t, p.Articles().Data.Items, 2)

	missing := NewProfilePage(api, api, "ghost")
	assert.True(t, missing.Mount(ctx).IsNotFound())
}

func TestEditorPage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	api := newFakeAPI(0)
	api.articleByKey["theirs"] = &model.Article{ArticleSummary: model.ArticleSummary{ID: "t1"}, IsAuthor: false}
	api.articleByKey["mine"] = &model.Article{
		ArticleSummary: model.ArticleSummary{ID: "m1", Title: "Mine"},
		Content:        model.NewDocument("body"),
		Status:         model.StatusPublished,
		IsAuthor:       true,
	}
	ctx := context.Background()

	t.Run("new draft", func(t *testing.T) {
		p := NewEditorPage(api, logger, "")
		p.Mount(ctx)
		f := p.Form()
		require.NotNil(t, f)
		f.Title = "Hello"
		f.Content = model.NewDocument("World")

		_, path, err := p.Save(ctx)
		require.NoError(t, err)
		assert.Equal(t, "/articles/drafts", path)
	})

	t.Run("not the author", func(t *testing.T) {
		p := NewEditorPage(api, logger, "theirs")
		assert.True(t, p.Mount(ctx).IsForbidden())
		assert.Nil(t, p.Form())
	})

	t.Run("edit published", func(t *testing.T) {
		p := NewEditorPage(api, logger, "mine")
		p.Mount(ctx)
		_, path, err := p.Save(ctx)
		require.NoError(t, err)
		assert.Equal(t, "/articles/edited", path)
	})
}
