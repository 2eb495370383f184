package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
)

func createTestArticle(t *testing.T, db *DB, author *model.User, title string, tags []string, published bool) *model.Article {
	t.Helper()
	a := &model.Article{
		ArticleSummary: model.ArticleSummary{
			Title: title,
			Slug:  slugFor(title),
			Tags:  tags,
		},
		Content:  model.NewDocument(title + " body"),
		Status:   model.StatusDraft,
		AuthorID: author.ID,
	}
	if published {
		at := time.Now().UTC()
		a.Status = model.StatusPublished
		a.PublishedAt = &at
	}
	if err := db.CreateArticle(context.Background(), a); err != nil {
		t.Fatalf("failed to create test article: %v", err)
	}
	return a
}

func slugFor(title string) string {
	out := []rune{}
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

// =========================================================================
// CRUD TESTS
// =========================================================================

func TestCreateAndGetArticle(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "writer")
	created := createTestArticle(t, db, author, "Hello RAG", []string{"RAG"}, false)

	byID, err := db.GetArticle(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	bySlug, err := db.GetArticleBySlug(context.Background(), "hello-rag")
	if err != nil {
		t.Fatalf("GetArticleBySlug() error = %v", err)
	}
	if byID.ID != bySlug.ID {
		t.Errorf("lookups disagree: %q vs %q", byID.ID, bySlug.ID)
	}
	if byID.Author.Username != "writer" {
		t.Errorf("Author.Username = %q, want writer", byID.Author.Username)
	}
	if byID.Status != model.StatusDraft || byID.PublishedAt != nil {
		t.Errorf("new article should be an unpublished draft, got %s %v", byID.Status, byID.PublishedAt)
	}
	if byID.Content.PlainText() != "Hello RAG body" {
		t.Errorf("Content = %q", byID.Content.PlainText())
	}
}

func TestArticle_DuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "writer")
	createTestArticle(t, db, author, "Same", nil, false)

	dup := &model.Article{ArticleSummary: model.ArticleSummary{Title: "Same", Slug: "same"}, AuthorID: author.ID}
	if err := db.CreateArticle(context.Background(), dup); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateArticle() error = %v, want ErrConflict", err)
	}
	if ok, _ := db.ArticleSlugExists(context.Background(), "same"); !ok {
		t.Error("ArticleSlugExists() = false, want true")
	}
}

func TestUpdateArticle_PublishAndViews(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "writer")
	a := createTestArticle(t, db, author, "Draft", nil, false)

	at := time.Now().UTC()
	a.Status = model.StatusPublished
	a.PublishedAt = &at
	if err := db.UpdateArticle(ctx, a); err != nil {
		t.Fatalf("UpdateArticle() error = %v", err)
	}
	if err := db.IncrementViews(ctx, a.ID); err != nil {
		t.Fatalf("IncrementViews() error = %v", err)
	}

	got, _ := db.GetArticle(ctx, a.ID)
	if !got.IsPublished() || got.PublishedAt == nil {
		t.Errorf("article not published: %s %v", got.Status, got.PublishedAt)
	}
	if got.ViewCount != 1 {
		t.Errorf("ViewCount = %d, want 1", got.ViewCount)
	}
	if got.UpdatedAt == nil {
		t.Error("UpdatedAt not set")
	}
}

func TestDeleteArticle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "writer")
	a := createTestArticle(t, db, author, "Gone", nil, false)

	if err := db.DeleteArticle(ctx, a.ID); err != nil {
		t.Fatalf("DeleteArticle() error = %v", err)
	}
	if _, err := db.GetArticle(ctx, a.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetArticle() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteArticle(ctx, a.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteArticle() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListArticles_Filters(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestArticle(t, db, alice, "RAG in practice", []string{"RAG", "LLMs"}, true)
	createTestArticle(t, db, alice, "Agents 101", []string{"Agents"}, true)
	createTestArticle(t, db, bob, "Vision draft", []string{"Computer Vision"}, false)
	createTestArticle(t, db, bob, "Prompting 50% better", []string{"Prompting"}, true)

	tests := []struct {
		name   string
		filter repository.ArticleFilter
		want   int
	}{
		{"published only", repository.ArticleFilter{Status: model.StatusPublished}, 3},
		{"any status", repository.ArticleFilter{}, 4},
		{"by author", repository.ArticleFilter{AuthorID: alice.ID}, 2},
		{"tag overlap", repository.ArticleFilter{Tags: []string{"LLMs", "Agents"}}, 2},
		{"search title", repository.ArticleFilter{Search: "agents"}, 1},
		{"search escapes percent", repository.ArticleFilter{Search: "50%"}, 1},
		{"drafts of bob", repository.ArticleFilter{AuthorID: bob.ID, Status: model.StatusDraft}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := db.ListArticles(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListArticles() error = %v", err)
			}
			if total != tt.want || len(got) != tt.want {
				t.Errorf("got %d items, total %d; want %d", len(got), total, tt.want)
			}
		})
	}
}

func TestListArticles_Pagination(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "prolific")
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		createTestArticle(t, db, author, title, nil, true)
	}

	first, total, _ := db.ListArticles(context.Background(), repository.ArticleFilter{
		ListOptions: repository.ListOptions{Skip: 0, Limit: 2},
	})
	second, _, _ := db.ListArticles(context.Background(), repository.ArticleFilter{
		ListOptions: repository.ListOptions{Skip: 4, Limit: 2},
	})
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(first) != 2 || len(second) != 1 {
		t.Errorf("page sizes = %d, %d; want 2, 1", len(first), len(second))
	}
}

func TestListArticles_SortUpdated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "editor")
	older := createTestArticle(t, db, author, "older", nil, false)
	createTestArticle(t, db, author, "newer", nil, false)

	older.Summary = "touched"
	if err := db.UpdateArticle(ctx, older); err != nil {
		t.Fatalf("UpdateArticle() error = %v", err)
	}

	got, _, err := db.ListArticles(ctx, repository.ArticleFilter{
		AuthorID: author.ID,
		Status:   model.StatusDraft,
		Sort:     repository.SortUpdated,
	})
	if err != nil {
		t.Fatalf("ListArticles() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != older.ID {
		t.Errorf("first draft = %v, want the one edited last", got)
	}
}

func TestListArticles_SortPopularAndTrending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, db, "writer")
	quiet := createTestArticle(t, db, author, "quiet", nil, true)
	loud := createTestArticle(t, db, author, "loud", nil, true)
	for i := 0; i < 3; i++ {
		_ = db.IncrementViews(ctx, loud.ID)
	}

	for _, sort := range []string{model.SortPopular, model.SortTrending} {
		got, _, err := db.ListArticles(ctx, repository.ArticleFilter{Sort: sort})
		if err != nil {
			t.Fatalf("ListArticles(%s) error = %v", sort, err)
		}
		if len(got) != 2 || got[0].ID != loud.ID || got[1].ID != quiet.ID {
			t.Errorf("sort %s: order = %v, want loud first", sort, []string{got[0].Title, got[1].Title})
		}
	}
}
