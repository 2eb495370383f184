package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
)

var _ repository.ArticleRepository = (*DB)(nil)

const articleSelect = `SELECT a.id, a.title, a.slug, a.summary, a.content, a.tags, a.status,
	a.author_id, a.view_count, a.like_count, a.published_at, a.created_at, a.updated_at,
	u.username, u.display_name, u.avatar_url
	FROM articles a JOIN users u ON u.id = a.author_id`

// CreateArticle inserts an article and fills in ID and CreatedAt.
func (db *DB) CreateArticle(ctx context.Context, a *model.Article) error {
	tags, err := encodeTags(a.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	a.ID = xid.New().String()
	a.CreatedAt = now()
	if a.Status == "" {
		a.Status = model.StatusDraft
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO articles (id, title, slug, summary, content, tags, status, author_id,
			view_count, like_count, published_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Title,
		a.Slug,
		a.Summary,
		contentText(a.Content),
		tags,
		string(a.Status),
		a.AuthorID,
		a.ViewCount,
		a.LikeCount,
		nullTime(a.PublishedAt),
		a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("article", a.Slug)
		}
		return fmt.Errorf("sqlite: inserting article: %w", err)
	}
	return nil
}

// GetArticle returns the article with the given id.
func (db *DB) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return db.getArticle(ctx, "a.id = ?", id)
}

// GetArticleBySlug returns the article with the given slug.
func (db *DB) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	return db.getArticle(ctx, "a.slug = ?", slug)
}

func (db *DB) getArticle(ctx context.Context, where, arg string) (*model.Article, error) {
	a, err := scanArticle(db.conn.QueryRowContext(ctx, articleSelect+` WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("Article not found")
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", arg, err)
	}
	return a, nil
}

// UpdateArticle writes the editable columns plus status and publishedAt.
func (db *DB) UpdateArticle(ctx context.Context, a *model.Article) error {
	tags, err := encodeTags(a.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	updated := now()
	a.UpdatedAt = &updated

	result, err := db.conn.ExecContext(ctx,
		`UPDATE articles SET
			title = ?, slug = ?, summary = ?, content = ?, tags = ?, status = ?,
			published_at = ?, updated_at = ?
		 WHERE id = ?`,
		a.Title,
		a.Slug,
		a.Summary,
		contentText(a.Content),
		tags,
		string(a.Status),
		nullTime(a.PublishedAt),
		updated,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating article %s: %w", a.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundMessage("Article not found")
	}
	return nil
}

// DeleteArticle removes an article. Spaces it was shared to lose one from
// their article count; the links themselves go with the cascade.
func (db *DB) DeleteArticle(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE spaces SET article_count = MAX(article_count - 1, 0)
			 WHERE id IN (SELECT space_id FROM space_articles WHERE article_id = ?)`, id,
		); err != nil {
			return fmt.Errorf("sqlite: updating article counts for %s: %w", id, err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting article %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFoundMessage("Article not found")
		}
		return nil
	})
}

// ListArticles returns one page of matching articles and the total match count.
//
// Sort "popular" orders by views, "trending" by model.TrendingScore, anything
// else by publication (or creation, for drafts) date. Trending needs the
// score of every match, so it ranks in Go before paginating.
func (db *DB) ListArticles(ctx context.Context, f repository.ArticleFilter) ([]model.Article, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, string(f.Status))
	}
	if f.AuthorID != "" {
		where = append(where, "a.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if len(f.Tags) > 0 {
		clause, tagArgs := tagOverlap("a.tags", f.Tags)
		where = append(where, clause)
		args = append(args, tagArgs...)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, `(a.title LIKE ? ESCAPE '\' OR a.summary LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(s), likePattern(s))
	}
	if f.PublishedSince != nil {
		where = append(where, "a.published_at >= ?")
		args = append(args, f.PublishedSince.UTC())
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles a`+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting articles: %w", err)
	}

	skip, limit := page(f.Skip, f.Limit)
	order := " ORDER BY COALESCE(a.published_at, a.created_at) DESC, a.id DESC"
	switch f.Sort {
	case model.SortPopular:
		order = " ORDER BY a.view_count DESC, a.like_count DESC, a.published_at DESC"
	case repository.SortUpdated:
		order = " ORDER BY COALESCE(a.updated_at, a.created_at) DESC, a.id DESC"
	}

	query := articleSelect + cond + order
	queryArgs := args
	if f.Sort != model.SortTrending {
		query += " LIMIT ? OFFSET ?"
		queryArgs = append(append([]any{}, args...), limit, skip)
	}

	rows, err := db.conn.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing articles: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning article row: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating articles: %w", err)
	}

	if f.Sort == model.SortTrending {
		at := time.Now()
		sort.SliceStable(articles, func(i, j int) bool {
			return trendingScore(articles[i], at) > trendingScore(articles[j], at)
		})
		if skip >= len(articles) {
			articles = []model.Article{}
		} else {
			articles = articles[skip:min(skip+limit, len(articles))]
		}
	}
	return articles, total, nil
}

func trendingScore(a model.Article, at time.Time) float64 {
	published := a.CreatedAt
	if a.PublishedAt != nil {
		published = *a.PublishedAt
	}
	return model.TrendingScore(a.ViewCount, a.LikeCount, at.Sub(published).Hours())
}

// ArticleSlugExists reports whether slug is taken.
func (db *DB) ArticleSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE slug = ?`, slug,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("sqlite: checking slug %s: %w", slug, err)
	}
	return count > 0, nil
}

// IncrementViews adds one to an article's view count.
func (db *DB) IncrementViews(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("sqlite: counting view of %s: %w", id, err)
	}
	return nil
}

func scanArticle(s scanner) (*model.Article, error) {
	var (
		a         model.Article
		content   string
		tags      string
		status    string
		published sql.NullTime
		updated   sql.NullTime
	)
	err := s.Scan(
		&a.ID,
		&a.Title,
		&a.Slug,
		&a.Summary,
		&content,
		&tags,
		&status,
		&a.AuthorID,
		&a.ViewCount,
		&a.LikeCount,
		&published,
		&a.CreatedAt,
		&updated,
		&a.Author.Username,
		&a.Author.DisplayName,
		&a.Author.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	a.Content = model.Document(content)
	a.Tags = decodeTags(tags)
	a.Status = model.ArticleStatus(status)
	a.PublishedAt = timePtr(published)
	a.UpdatedAt = timePtr(updated)
	a.Author.ID = a.AuthorID
	return &a, nil
}

func contentText(d model.Document) string {
	if len(d) == 0 {
		return "{}"
	}
	return string(d)
}
