package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
)

const (
	DefaultTrendingLimit = 10
	MaxTrendingLimit     = 50

	risingWindow    = 6 * time.Hour
	newUserWindow   = 7 * 24 * time.Hour
	discoveryMaxAge = time.Hour
)

// Trending kinds accepted by Trending.
const (
	TrendingArticles = "articles"
	TrendingSpaces   = "spaces"
	TrendingTags     = "tags"
	TrendingAll      = "all"
)

// FeedService builds the feed, trending and discovery views and records
// interactions.
//
// RANKING:
//
//	score         = (views + 2·likes) / (ageHours + 2)^1.5
//	activityScore = members·10 + articles·5
//	viewVelocity  = views / max(ageHours, 1)
type FeedService struct {
	articles   repository.ArticleRepository
	spaces     repository.SpaceRepository
	users      repository.UserRepository
	activities repository.ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewFeedService creates a FeedService.
func NewFeedService(
	articles repository.ArticleRepository,
	spaces repository.SpaceRepository,
	users repository.UserRepository,
	activities repository.ActivityRepository,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		articles:   articles,
		spaces:     spaces,
		users:      users,
		activities: activities,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// since returns the start of a time range; nil means unbounded.
func (s *FeedService) since(timeRange string) (*time.Time, error) {
	var d time.Duration
	switch timeRange {
	case "", model.Range24h:
		d = 24 * time.Hour
	case model.Range7d:
		d = 7 * 24 * time.Hour
	case model.Range30d:
		d = 30 * 24 * time.Hour
	case model.RangeAll:
		return nil, nil
	default:
		return nil, apperror.ValidationFailed("time_range", "Time range must be 24h, 7d, 30d or all")
	}
	t := s.now().Add(-d)
	return &t, nil
}

func (s *FeedService) ageHours(a *model.Article) float64 {
	if a.PublishedAt == nil {
		return 1
	}
	return s.now().Sub(*a.PublishedAt).Hours()
}

// ===== FEED =====

// Feed returns one page of the feed for viewerID, who may be empty.
func (s *FeedService) Feed(ctx context.Context, viewerID string, q model.FeedQuery) (*model.FeedPage, error) {
	skip, limit := clampPage(q.Skip, q.Limit)
	page := &model.FeedPage{Items: []model.FeedItem{}, Skip: skip, Limit: limit}

	switch q.View {
	case "", model.FeedLatest:
		articles, total, err := s.articles.ListArticles(ctx, repository.ArticleFilter{
			Tags:        q.Tags,
			Status:      model.StatusPublished,
			Sort:        model.SortLatest,
			ListOptions: repository.ListOptions{Skip: skip, Limit: limit},
		})
		if err != nil {
			return nil, fmt.Errorf("service/feed: latest: %w", err)
		}
		page.Total = total
		for i := range articles {
			page.Items = append(page.Items, model.FeedItem{Type: "article", Article: &articles[i].ArticleSummary})
		}

	case model.FeedTrending:
		since, err := s.since(q.TimeRange)
		if err != nil {
			return nil, err
		}
		articles, total, err := s.articles.ListArticles(ctx, repository.ArticleFilter{
			Tags:           q.Tags,
			Status:         model.StatusPublished,
			Sort:           model.SortTrending,
			PublishedSince: since,
			ListOptions:    repository.ListOptions{Skip: skip, Limit: limit},
		})
		if err != nil {
			return nil, fmt.Errorf("service/feed: trending: %w", err)
		}
		page.Total = total
		for i := range articles {
			a := &articles[i]
			page.Items = append(page.Items, model.FeedItem{
				Type:    "article",
				Article: &a.ArticleSummary,
				Reason:  "trending_in_period",
				Score:   model.TrendingScore(a.ViewCount, a.LikeCount, s.ageHours(a)),
			})
		}

	case model.FeedRecommended:
		if viewerID == "" {
			return page, nil
		}
		user, err := s.users.GetUserByID(ctx, viewerID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return page, nil
			}
			return nil, fmt.Errorf("service/feed: %w", err)
		}
		tags := q.Tags
		if len(tags) == 0 {
			tags = user.ExpertiseTags
		}
		articles, total, err := s.articles.ListArticles(ctx, repository.ArticleFilter{
			Tags:        tags,
			Status:      model.StatusPublished,
			Sort:        model.SortPopular,
			ListOptions: repository.ListOptions{Skip: skip, Limit: limit},
		})
		if err != nil {
			return nil, fmt.Errorf("service/feed: recommended: %w", err)
		}
		page.Total = total
		for i := range articles {
			page.Items = append(page.Items, model.FeedItem{Type: "article", Article: &articles[i].ArticleSummary, Reason: "recommended"})
		}

	default:
		return nil, apperror.ValidationFailed("view", "View must be latest, trending or recommended")
	}
	return page, nil
}

// ===== TRENDING =====

// Trending ranks articles, spaces and tags inside a time range. kind
// selects one list or "all".
func (s *FeedService) Trending(ctx context.Context, kind, timeRange string, limit int) (*model.Trending, error) {
	if kind == "" {
		kind = TrendingAll
	}
	if !slices.Contains([]string{TrendingArticles, TrendingSpaces, TrendingTags, TrendingAll}, kind) {
		return nil, apperror.ValidationFailed("type", "Type must be articles, spaces, tags or all")
	}
	since, err := s.since(timeRange)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	limit = min(limit, MaxTrendingLimit)

	out := &model.Trending{Articles: []model.TrendingItem{}, Spaces: []model.TrendingItem{}, Tags: []model.TrendingItem{}}
	if kind == TrendingArticles || kind == TrendingAll {
		if out.Articles, err = s.trendingArticles(ctx, since, limit); err != nil {
			return nil, err
		}
	}
	if kind == TrendingSpaces || kind == TrendingAll {
		if out.Spaces, err = s.trendingSpaces(ctx, since, limit); err != nil {
			return nil, err
		}
	}
	if kind == TrendingTags || kind == TrendingAll {
		if out.Tags, err = s.trendingTags(ctx, since, limit); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *FeedService) trendingArticles(ctx context.Context, since *time.Time, limit int) ([]model.TrendingItem, error) {
	articles, _, err := s.articles.ListArticles(ctx, repository.ArticleFilter{
		Status:         model.StatusPublished,
		Sort:           model.SortTrending,
		PublishedSince: since,
		ListOptions:    repository.ListOptions{Limit: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("service/feed: trending articles: %w", err)
	}

	var from time.Time
	if since != nil {
		from = *since
	}
	items := make([]model.TrendingItem, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		item, err := model.NewTrendingItem("article", a.ArticleSummary)
		if err != nil {
			return nil, err
		}
		views, err := s.activities.CountActivities(ctx, "article", a.ID, from)
		if err != nil {
			return nil, fmt.Errorf("service/feed: counting views of %s: %w", a.ID, err)
		}
		item.Score = model.TrendingScore(a.ViewCount, a.LikeCount, s.ageHours(a))
		item.ViewsInPeriod = views
		item.Trend = "steady"
		if views > 0 {
			item.Trend = "rising"
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *FeedService) trendingSpaces(ctx context.Context, since *time.Time, limit int) ([]model.TrendingItem, error) {
	spaces, _, err := s.spaces.ListSpaces(ctx, repository.SpaceFilter{
		CreatedSince: since,
		OrderBy:      "members",
		ListOptions:  repository.ListOptions{Limit: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("service/feed: trending spaces: %w", err)
	}

	var from time.Time
	if since != nil {
		from = *since
	}
	items := make([]model.TrendingItem, 0, len(spaces))
	for i := range spaces {
		sp := &spaces[i]
		item, err := model.NewTrendingItem("space", sp.SpaceSummary)
		if err != nil {
			return nil, err
		}
		if item.NewMembers, err = s.spaces.CountMembersSince(ctx, sp.ID, from); err != nil {
			return nil, fmt.Errorf("service/feed: counting members of %s: %w", sp.ID, err)
		}
		item.ActivityScore = float64(sp.MemberCount*10 + sp.ArticleCount*5)
		items = append(items, item)
	}
	return items, nil
}

// trendingTags counts how often each tag appears on the articles published
// and the public spaces created in the range.
func (s *FeedService) trendingTags(ctx context.Context, since *time.Time, limit int) ([]model.TrendingItem, error) {
	articles, _, err := s.articles.ListArticles(ctx, repository.ArticleFilter{
		Status:         model.StatusPublished,
		PublishedSince: since,
		ListOptions:    repository.ListOptions{Limit: MaxListLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("service/feed: trending tags: %w", err)
	}
	spaces, _, err := s.spaces.ListSpaces(ctx, repository.SpaceFilter{
		CreatedSince: since,
		ListOptions:  repository.ListOptions{Limit: MaxListLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("service/feed: trending tags: %w", err)
	}

	counts := map[string]*model.TagTrend{}
	get := func(name string) *model.TagTrend {
		t, ok := counts[name]
		if !ok {
			t = &model.TagTrend{Name: name}
			counts[name] = t
		}
		return t
	}
	for _, a := range articles {
		for _, tag := range a.Tags {
			get(tag).ArticleCount++
		}
	}
	for _, sp := range spaces {
		for _, tag := range sp.Tags {
			get(tag).SpaceCount++
		}
	}

	ranked := make([]*model.TagTrend, 0, len(counts))
	for _, t := range counts {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		ti, tj := ranked[i].ArticleCount+ranked[i].SpaceCount, ranked[j].ArticleCount+ranked[j].SpaceCount
		if ti != tj {
			return ti > tj
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	items := make([]model.TrendingItem, 0, len(ranked))
	for _, t := range ranked {
		item, err := model.NewTrendingItem("tag", t)
		if err != nil {
			return nil, err
		}
		item.Score = float64(t.ArticleCount + t.SpaceCount)
		items = append(items, item)
	}
	return items, nil
}

// ===== DISCOVERY =====

// Discover returns one discovery category. The result is valid for an hour.
func (s *FeedService) Discover(ctx context.Context, category string, limit int) (*model.Discovery, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	limit = min(limit, MaxTrendingLimit)
	now := s.now()
	out := &model.Discovery{Category: category, Items: []model.DiscoveryItem{}, RefreshAt: now.Add(discoveryMaxAge)}

	switch category {
	case model.DiscoverRisingArticles:
		since := now.Add(-risingWindow)
		articles, _, err := s.articles.ListArticles(ctx, repository.ArticleFilter{
			Status:         model.StatusPublished,
			Sort:           model.SortPopular,
			PublishedSince: &since,
			ListOptions:    repository.ListOptions{Limit: limit},
		})
		if err != nil {
			return nil, fmt.Errorf("service/feed: rising articles: %w", err)
		}
		for i := range articles {
			a := &articles[i]
			velocity := float64(a.ViewCount) / math.Max(s.ageHours(a), 1)
			out.Items = append(out.Items, model.DiscoveryItem{
				Article: &a.ArticleSummary,
				Metrics: map[string]float64{
					"viewVelocity": math.Round(velocity*100) / 100,
					"viewCount":    float64(a.ViewCount),
				},
			})
		}

	case model.DiscoverActiveSpaces:
		spaces, _, err := s.spaces.ListSpaces(ctx, repository.SpaceFilter{
			OrderBy:     "updated",
			ListOptions: repository.ListOptions{Limit: limit},
		})
		if err != nil {
			return nil, fmt.Errorf("service/feed: active spaces: %w", err)
		}
		for i := range spaces {
			out.Items = append(out.Items, model.DiscoveryItem{Space: &spaces[i].SpaceSummary})
		}

	case model.DiscoverNewUsers:
		users, err := s.users.ListUsersSince(ctx, now.Add(-newUserWindow), limit)
		if err != nil {
			return nil, fmt.Errorf("service/feed: new users: %w", err)
		}
		for i := range users {
			u := &users[i]
			out.Items = append(out.Items, model.DiscoveryItem{
				User: &model.DiscoveryUser{UserSummary: u.Summary(), JoinedAt: u.CreatedAt},
			})
		}

	default:
		return nil, apperror.ValidationFailed("category", "Category must be new_users, rising_articles or active_spaces")
	}
	return out, nil
}

// ===== INTERACTIONS =====

var (
	interactionTypes = []string{model.InteractionView, model.InteractionClick, model.InteractionShare, model.InteractionSave}
	targetTypes      = []string{"article", "space", "user"}
)

// RecordInteraction stores one interaction. viewerID may be empty.
func (s *FeedService) RecordInteraction(ctx context.Context, viewerID string, in model.Interaction) error {
	if !slices.Contains(interactionTypes, in.Type) {
		return apperror.ValidationFailed("type", "Type must be view, click, share or save")
	}
	if !slices.Contains(targetTypes, in.TargetType) {
		return apperror.ValidationFailed("targetType", "Target type must be article, space or user")
	}
	if in.TargetID == "" {
		return apperror.ValidationFailed("targetId", "Target id is required")
	}
	if in.Duration != nil && *in.Duration < 0 {
		return apperror.ValidationFailed("duration", "Duration must not be negative")
	}

	err := s.activities.RecordActivity(ctx, &repository.Activity{
		UserID:     viewerID,
		Type:       in.Type,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Duration:   in.Duration,
		Metadata:   in.Metadata,
	})
	if err != nil {
		return fmt.Errorf("service/feed: recording %s: %w", in.Type, err)
	}
	s.logger.Debug("interaction recorded",
		slog.String("type", in.Type),
		slog.String("target", in.TargetType+"/"+in.TargetID),
	)
	return nil
}
