package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
)

const spaceArticleSelect = `SELECT a.id, a.title, a.slug, a.summary, a.tags, a.view_count, a.like_count,
	a.published_at, a.created_at,
	au.id, au.username, au.display_name, au.avatar_url,
	ad.id, ad.username, ad.display_name, ad.avatar_url,
	sa.pinned, sa.added_at
	FROM space_articles sa
	JOIN articles a ON a.id = sa.article_id
	JOIN users au ON au.id = a.author_id
	JOIN users ad ON ad.id = sa.added_by`

const msgNotShared = "Article is not shared to this space"

// AddSpaceArticle links an article to a space and bumps its article count.
func (db *DB) AddSpaceArticle(ctx context.Context, spaceID, articleID, addedBy string) (*model.SpaceArticle, error) {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO space_articles (space_id, article_id, added_by, pinned, added_at)
			 VALUES (?, ?, ?, 0, ?)`,
			spaceID, articleID, addedBy, now(),
		); err != nil {
			if isUniqueViolation(err) {
				return apperror.ConflictMessage("Article is already shared to this space")
			}
			return fmt.Errorf("sqlite: sharing article %s to %s: %w", articleID, spaceID, err)
		}
		return touchArticleCount(ctx, tx, spaceID, +1)
	})
	if err != nil {
		return nil, err
	}
	return db.GetSpaceArticle(ctx, spaceID, articleID)
}

// GetSpaceArticle returns one link with its article and sharer.
func (db *DB) GetSpaceArticle(ctx context.Context, spaceID, articleID string) (*model.SpaceArticle, error) {
	sa, err := scanSpaceArticle(db.conn.QueryRowContext(ctx,
		spaceArticleSelect+` WHERE sa.space_id = ? AND sa.article_id = ?`, spaceID, articleID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage(msgNotShared)
		}
		return nil, fmt.Errorf("sqlite: getting space article %s/%s: %w", spaceID, articleID, err)
	}
	return sa, nil
}

// ListSpaceArticles returns one page of the published articles in a space.
func (db *DB) ListSpaceArticles(ctx context.Context, spaceID string, pinnedFirst bool, opts repository.ListOptions) ([]model.SpaceArticle, int, error) {
	cond := ` WHERE sa.space_id = ? AND a.status = 'published'`

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM space_articles sa JOIN articles a ON a.id = sa.article_id`+cond, spaceID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting articles of %s: %w", spaceID, err)
	}

	order := " ORDER BY sa.added_at DESC, a.id DESC"
	if pinnedFirst {
		order = " ORDER BY sa.pinned DESC, sa.added_at DESC, a.id DESC"
	}
	skip, limit := page(opts.Skip, opts.Limit)
	rows, err := db.conn.QueryContext(ctx, spaceArticleSelect+cond+order+" LIMIT ? OFFSET ?", spaceID, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing articles of %s: %w", spaceID, err)
	}
	defer rows.Close()

	out := []model.SpaceArticle{}
	for rows.Next() {
		sa, err := scanSpaceArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning space article row: %w", err)
		}
		out = append(out, *sa)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating space articles: %w", err)
	}
	return out, total, nil
}

// SetSpaceArticlePinned pins or unpins a shared article.
func (db *DB) SetSpaceArticlePinned(ctx context.Context, spaceID, articleID string, pinned bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE space_articles SET pinned = ? WHERE space_id = ? AND article_id = ?`,
		pinned, spaceID, articleID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: pinning %s in %s: %w", articleID, spaceID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundMessage(msgNotShared)
	}
	return nil
}

// RemoveSpaceArticle unlinks an article and lowers the article count.
func (db *DB) RemoveSpaceArticle(ctx context.Context, spaceID, articleID string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM space_articles WHERE space_id = ? AND article_id = ?`, spaceID, articleID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: removing article %s from %s: %w", articleID, spaceID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFoundMessage(msgNotShared)
		}
		return touchArticleCount(ctx, tx, spaceID, -1)
	})
}

// touchArticleCount adjusts article_count and marks the space as active.
func touchArticleCount(ctx context.Context, tx *sql.Tx, spaceID string, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE spaces SET article_count = MAX(article_count + ?, 0), updated_at = ? WHERE id = ?`,
		delta, now(), spaceID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating article count of %s: %w", spaceID, err)
	}
	return nil
}

func scanSpaceArticle(s scanner) (*model.SpaceArticle, error) {
	var (
		sa        model.SpaceArticle
		tags      string
		published sql.NullTime
	)
	if err := s.Scan(
		&sa.Article.ID,
		&sa.Article.Title,
		&sa.Article.Slug,
		&sa.Article.Summary,
		&tags,
		&sa.Article.ViewCount,
		&sa.Article.LikeCount,
		&published,
		&sa.Article.CreatedAt,
		&sa.Article.Author.ID,
		&sa.Article.Author.Username,
		&sa.Article.Author.DisplayName,
		&sa.Article.Author.AvatarURL,
		&sa.AddedBy.ID,
		&sa.AddedBy.Username,
		&sa.AddedBy.DisplayName,
		&sa.AddedBy.AvatarURL,
		&sa.Pinned,
		&sa.AddedAt,
	); err != nil {
		return nil, err
	}
	sa.Article.Tags = decodeTags(tags)
	sa.Article.PublishedAt = timePtr(published)
	return &sa, nil
}
