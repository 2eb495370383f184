package pages

import (
	"context"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/resource"
)

// ProfileSource resolves public profiles; *hooks.Hooks implements it.
type ProfileSource interface {
	PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error)
}

// ProfilePage shows a user's public profile and their published articles.
type ProfilePage struct {
	profiles ProfileSource
	articles ArticlesAPI
	username string
	res      *resource.Resource[*model.PublicProfile]
	list     *paginator[model.ArticleSummary]
}

func NewProfilePage(profiles ProfileSource, articles ArticlesAPI, username string) *ProfilePage {
	return &ProfilePage{
		profiles: profiles,
		articles: articles,
		username: username,
		res:      resource.New[*model.PublicProfile](nil),
		list:     newPaginator[model.ArticleSummary](DefaultPageSize),
	}
}

// Mount loads the profile, then the user's articles. An unknown username
// leaves the page in an error state with Status 404.
func (p *ProfilePage) Mount(ctx context.Context) resource.State[*model.PublicProfile] {
	username := p.username
	s := p.res.Load(ctx, func(ctx context.Context) (*model.PublicProfile, error) {
		return p.profiles.PublicProfile(ctx, username)
	})
	if s.Phase == resource.Success && p.articles != nil {
		p.list.reset(ctx, p.fetchArticles())
	}
	return s
}

func (p *ProfilePage) LoadMoreArticles(ctx context.Context) resource.State[Listing[model.ArticleSummary]] {
	return p.list.more(ctx, p.fetchArticles())
}

func (p *ProfilePage) State() resource.State[*model.PublicProfile] { return p.res.State() }
func (p *ProfilePage) Articles() resource.State[Listing[model.ArticleSummary]] {
	return p.list.state()
}
func (p *ProfilePage) Retry(ctx context.Context) resource.State[*model.PublicProfile] {
	return p.Mount(ctx)
}

func (p *ProfilePage) Close() {
	p.res.Close()
	p.list.close()
}

func (p *ProfilePage) fetchArticles() window[model.ArticleSummary] {
	author := p.username
	return func(ctx context.Context, skip, limit int) ([]model.ArticleSummary, int, error) {
		out, err := p.articles.ListArticles(ctx, model.ArticleQuery{Author: author, Sort: model.SortLatest, Skip: skip, Limit: limit})
		if err != nil {
			return nil, 0, err
		}
		return out.Articles, out.Total, nil
	}
}
