package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
	"github.com/sakif/aic-hub/internal/validate"
)

const (
	msgNoEditPermission   = "Article not found or you don't have permission to edit it"
	msgNoDeletePermission = "Article not found or you don't have permission to delete it"
)

// ArticleService implements authoring, publication and reading of articles.
//
// PERMISSIONS:
// Only the author may change an article. Everyone else gets the same 404 a
// missing article would produce, so drafts never leak through status codes.
type ArticleService struct {
	articles   repository.ArticleRepository
	users      repository.UserRepository
	activities repository.ActivityRepository
	logger     *slog.Logger
}

// NewArticleService creates an ArticleService.
func NewArticleService(
	articles repository.ArticleRepository,
	users repository.UserRepository,
	activities repository.ActivityRepository,
	logger *slog.Logger,
) *ArticleService {
	return &ArticleService{articles: articles, users: users, activities: activities, logger: logger}
}

// List returns published articles matching q. Author is a username; an
// unknown author yields an empty page.
func (s *ArticleService) List(ctx context.Context, q model.ArticleQuery) (*model.ArticleList, error) {
	skip, limit := clampPage(q.Skip, q.Limit)
	out := &model.ArticleList{Articles: []model.ArticleSummary{}, Skip: skip, Limit: limit}

	sort := q.Sort
	switch sort {
	case "":
		sort = model.SortLatest
	case model.SortLatest, model.SortPopular, model.SortTrending:
	default:
		return nil, apperror.ValidationFailed("sort", "Sort must be latest, popular or trending")
	}

	filter := repository.ArticleFilter{
		Tags:        q.Tags,
		Search:      q.Search,
		Status:      model.StatusPublished,
		Sort:        sort,
		ListOptions: repository.ListOptions{Skip: skip, Limit: limit},
	}
	if q.Author != "" {
		author, err := s.users.GetUserByUsername(ctx, q.Author)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return out, nil
			}
			return nil, fmt.Errorf("service/articles: %w", err)
		}
		filter.AuthorID = author.ID
	}

	articles, total, err := s.articles.ListArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/articles: listing: %w", err)
	}
	out.Total = total
	for _, a := range articles {
		out.Articles = append(out.Articles, a.ArticleSummary)
	}
	return out, nil
}

// Drafts returns one page of the caller's drafts, most recently edited
// first. limit is clamped to MaxListLimit like every other list; callers
// walk the rest with skip and compare against Total.
func (s *ArticleService) Drafts(ctx context.Context, userID string, skip, limit int) (*model.ArticleList, error) {
	skip, limit = clampPage(skip, limit)
	articles, total, err := s.articles.ListArticles(ctx, repository.ArticleFilter{
		AuthorID:    userID,
		Status:      model.StatusDraft,
		Sort:        repository.SortUpdated,
		ListOptions: repository.ListOptions{Skip: skip, Limit: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("service/articles: listing drafts: %w", err)
	}
	out := &model.ArticleList{Articles: []model.ArticleSummary{}, Total: total, Skip: skip, Limit: limit}
	for _, a := range articles {
		out.Articles = append(out.Articles, a.ArticleSummary)
	}
	return out, nil
}

// Get resolves key as an id first and then as a slug.
//
// Unpublished articles are visible to their author only. A published
// article read by anyone but its author counts a view.
func (s *ArticleService) Get(ctx context.Context, viewerID, key string) (*model.Article, error) {
	a, err := s.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	a.IsAuthor = viewerID != "" && viewerID == a.AuthorID
	if !a.IsPublished() && !a.IsAuthor {
		return nil, apperror.NotFoundMessage("Article not found")
	}

	if a.IsPublished() && !a.IsAuthor {
		if err := s.articles.IncrementViews(ctx, a.ID); err != nil {
			s.logger.Warn("counting view failed", slog.String("articleID", a.ID), slog.String("error", err.Error()))
		} else {
			a.ViewCount++
		}
		view := &repository.Activity{UserID: viewerID, Type: model.InteractionView, TargetType: "article", TargetID: a.ID}
		if err := s.activities.RecordActivity(ctx, view); err != nil {
			s.logger.Warn("recording view failed", slog.String("articleID", a.ID), slog.String("error", err.Error()))
		}
	}
	return a, nil
}

func (s *ArticleService) lookup(ctx context.Context, key string) (*model.Article, error) {
	a, err := s.articles.GetArticle(ctx, key)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/articles: %w", err)
	}
	a, err = s.articles.GetArticleBySlug(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("Article not found")
		}
		return nil, fmt.Errorf("service/articles: %w", err)
	}
	return a, nil
}

// Create stores a new draft owned by userID.
func (s *ArticleService) Create(ctx context.Context, userID string, in model.ArticleInput) (*model.Article, error) {
	title := strings.TrimSpace(in.Title)
	summary := strings.TrimSpace(in.Summary)
	if err := validate.Article(validate.ArticleFields{Title: title, Summary: summary, Tags: in.Tags}); err != nil {
		return nil, invalid(err)
	}
	if in.Content.IsEmpty() {
		return nil, apperror.ValidationFailed("content", "Content is required")
	}
	tags, err := canonicalTags("tags", in.Tags)
	if err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(ctx, Slugify(title), s.articles.ArticleSlugExists)
	if err != nil {
		return nil, fmt.Errorf("service/articles: generating slug: %w", err)
	}

	a := &model.Article{
		ArticleSummary: model.ArticleSummary{
			Title:   title,
			Slug:    slug,
			Summary: summary,
			Tags:    tags,
		},
		Content:  in.Content,
		Status:   model.StatusDraft,
		AuthorID: userID,
	}
	if err := s.articles.CreateArticle(ctx, a); err != nil {
		return nil, fmt.Errorf("service/articles: creating: %w", err)
	}

	s.logger.Info("article created", slog.String("articleID", a.ID), slog.String("slug", a.Slug))
	return s.reload(ctx, a.ID)
}

// Update applies a partial update. A Status field moves the article through
// publish/unpublish the same way the dedicated endpoints do.
func (s *ArticleService) Update(ctx context.Context, userID, id string, upd model.ArticleUpdate) (*model.Article, error) {
	a, err := s.owned(ctx, userID, id, msgNoEditPermission)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		a.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Summary != nil {
		a.Summary = strings.TrimSpace(*upd.Summary)
	}
	if upd.Tags != nil {
		a.Tags = *upd.Tags
	}
	if err := validate.Article(validate.ArticleFields{Title: a.Title, Summary: a.Summary, Tags: a.Tags}); err != nil {
		return nil, invalid(err)
	}
	if a.Tags, err = canonicalTags("tags", a.Tags); err != nil {
		return nil, err
	}
	if len(upd.Content) > 0 {
		if upd.Content.IsEmpty() {
			return nil, apperror.ValidationFailed("content", "Content is required")
		}
		a.Content = upd.Content
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, apperror.ValidationFailed("status", "Status must be draft, published or archived")
		}
		transition(a, *upd.Status)
	}

	if err := s.articles.UpdateArticle(ctx, a); err != nil {
		return nil, fmt.Errorf("service/articles: updating %s: %w", id, err)
	}
	return s.reload(ctx, a.ID)
}

// Publish makes an article public and stamps publishedAt the first time.
func (s *ArticleService) Publish(ctx context.Context, userID, id string) (*model.Article, error) {
	return s.setStatus(ctx, userID, id, model.StatusPublished)
}

// Unpublish turns an article back into a draft.
func (s *ArticleService) Unpublish(ctx context.Context, userID, id string) (*model.Article, error) {
	return s.setStatus(ctx, userID, id, model.StatusDraft)
}

func (s *ArticleService) setStatus(ctx context.Context, userID, id string, status model.ArticleStatus) (*model.Article, error) {
	a, err := s.owned(ctx, userID, id, msgNoEditPermission)
	if err != nil {
		return nil, err
	}
	transition(a, status)
	if err := s.articles.UpdateArticle(ctx, a); err != nil {
		return nil, fmt.Errorf("service/articles: setting %s to %s: %w", id, status, err)
	}
	s.logger.Info("article status changed", slog.String("articleID", id), slog.String("status", string(status)))
	return s.reload(ctx, a.ID)
}

// transition sets the status and keeps publishedAt consistent with it.
func transition(a *model.Article, status model.ArticleStatus) {
	switch status {
	case model.StatusPublished:
		if a.PublishedAt == nil {
			at := time.Now().UTC()
			a.PublishedAt = &at
		}
	case model.StatusDraft:
		a.PublishedAt = nil
	}
	a.Status = status
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id, msgNoDeletePermission); err != nil {
		return err
	}
	if err := s.articles.DeleteArticle(ctx, id); err != nil {
		return fmt.Errorf("service/articles: deleting %s: %w", id, err)
	}
	s.logger.Info("article deleted", slog.String("articleID", id))
	return nil
}

// owned loads an article by id and checks that userID wrote it.
func (s *ArticleService) owned(ctx context.Context, userID, id, message string) (*model.Article, error) {
	a, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(message)
		}
		return nil, fmt.Errorf("service/articles: %w", err)
	}
	if a.AuthorID != userID {
		return nil, apperror.NotFoundMessage(message)
	}
	return a, nil
}

func (s *ArticleService) reload(ctx context.Context, id string) (*model.Article, error) {
	a, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/articles: reloading %s: %w", id, err)
	}
	a.IsAuthor = true
	return a, nil
}
