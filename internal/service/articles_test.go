package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/repository"
)

// failingActivities is an ActivityRepository whose writes always fail.
type failingActivities struct{ calls int }

func (f *failingActivities) RecordActivity(context.Context, *repository.Activity) error {
	f.calls++
	return errors.New("activity table locked")
}

func (f *failingActivities) CountActivities(context.Context, string, string, time.Time) (int, error) {
	return 0, errors.New("activity table locked")
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateArticle(t *testing.T) {
	env := newTestEnv(t)
	u := env.signup(t, "author@example.com")

	a := env.draft(t, u.ID, "Intro to RAG", "rag", "llms")
	assert.Equal(t, "intro-to-rag", a.Slug)
	assert.Equal(t, model.StatusDraft, a.Status)
	assert.Nil(t, a.PublishedAt)
	assert.True(t, a.IsAuthor)
	assert.Equal(t, []string{"RAG", "LLMs"}, a.Tags)
	assert.Equal(t, u.Username, a.Author.Username)
}

func TestCreateArticle_SlugCollision(t *testing.T) {
	env := newTestEnv(t)
	u := env.signup(t, "author@example.com")

	first := env.draft(t, u.ID, "Same Title")
	second := env.draft(t, u.ID, "Same Title")
	assert.Equal(t, "same-title", first.Slug)
	assert.Equal(t, "same-title-2", second.Slug)
}

func TestCreateArticle_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    model.ArticleInput
		field string
	}{
		{"blank title", model.ArticleInput{Title: " ", Content: model.NewDocument("x")}, "title"},
		{"empty content", model.ArticleInput{Title: "T", Content: model.NewDocument()}, "content"},
		{"too many tags", model.ArticleInput{Title: "T", Content: model.NewDocument("x"),
			Tags: []string{"LLMs", "RAG", "Agents", "Tools", "NLP", "RL"}}, "tags"},
		{"unknown tag", model.ArticleInput{Title: "T", Content: model.NewDocument("x"), Tags: []string{"Cooking"}}, "tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			u := env.signup(t, "author@example.com")
			_, err := env.articles.Create(context.Background(), u.ID, tt.in)
			assertAppError(t, err, apperror.ErrValidation, "")
			assert.Equal(t, tt.field, apperror.FieldOf(err))
		})
	}
}

// =========================================================================
// PUBLICATION TESTS
// =========================================================================

func TestPublishUnpublish(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.signup(t, "author@example.com")
	a := env.draft(t, u.ID, "Lifecycle")

	published, err := env.articles.Publish(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	firstPublished := *published.PublishedAt

	again, err := env.articles.Publish(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, firstPublished.Equal(*again.PublishedAt), "republishing keeps the original date")

	draft, err := env.articles.Unpublish(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, draft.Status)
	assert.Nil(t, draft.PublishedAt)
}

func TestUpdateArticle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.signup(t, "author@example.com")
	a := env.draft(t, u.ID, "Before", "LLMs")

	tags := []string{"agents"}
	status := model.StatusPublished
	updated, err := env.articles.Update(ctx, u.ID, a.ID, model.ArticleUpdate{
		Title:  strPtr("After"),
		Tags:   &tags,
		Status: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, a.Slug, updated.Slug, "slug is stable across renames")
	assert.Equal(t, []string{"Agents"}, updated.Tags)
	assert.Equal(t, model.StatusPublished, updated.Status)
	assert.NotNil(t, updated.PublishedAt)
	assert.Equal(t, a.Summary, updated.Summary)
}

func TestArticleOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	other := env.signup(t, "other@example.com")
	a := env.draft(t, author.ID, "Mine")

	_, err := env.articles.Update(ctx, other.ID, a.ID, model.ArticleUpdate{Title: strPtr("Stolen")})
	assertAppError(t, err, apperror.ErrNotFound, msgNoEditPermission)

	_, err = env.articles.Publish(ctx, other.ID, a.ID)
	assertAppError(t, err, apperror.ErrNotFound, msgNoEditPermission)

	err = env.articles.Delete(ctx, other.ID, a.ID)
	assertAppError(t, err, apperror.ErrNotFound, msgNoDeletePermission)

	require.NoError(t, env.articles.Delete(ctx, author.ID, a.ID))
	_, err = env.articles.Get(ctx, author.ID, a.ID)
	assertAppError(t, err, apperror.ErrNotFound, "")
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestGetArticle_DraftVisibleToAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	reader := env.signup(t, "reader@example.com")
	a := env.draft(t, author.ID, "Secret draft")

	got, err := env.articles.Get(ctx, author.ID, a.Slug)
	require.NoError(t, err)
	assert.True(t, got.IsAuthor)

	_, err = env.articles.Get(ctx, reader.ID, a.ID)
	assertAppError(t, err, apperror.ErrNotFound, "Article not found")

	_, err = env.articles.Get(ctx, "", a.Slug)
	assertAppError(t, err, apperror.ErrNotFound, "Article not found")
}

func TestGetArticle_CountsViewsFromOthers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	reader := env.signup(t, "reader@example.com")
	a := env.publish(t, author.ID, "Popular")

	got, err := env.articles.Get(ctx, reader.ID, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)
	assert.False(t, got.IsAuthor)

	_, err = env.articles.Get(ctx, "", a.ID)
	require.NoError(t, err)

	got, err = env.articles.Get(ctx, author.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount, "the author's own reads are not counted")

	views, err := env.db.CountActivities(ctx, "article", a.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, views)
}

func TestGetArticle_ActivityFailureDoesNotFailRead(t *testing.T) {
	env := newTestEnv(t)
	author := env.signup(t, "author@example.com")
	a := env.publish(t, author.ID, "Resilient")

	activities := &failingActivities{}
	svc := NewArticleService(env.db, env.db, activities, testLogger())

	got, err := svc.Get(context.Background(), "", a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)
	assert.Equal(t, 1, activities.calls)
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListArticles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.signup(t, "ada@example.com")
	bob := env.signup(t, "bob@example.com")
	env.publish(t, ada.ID, "Retrieval tricks", "RAG")
	env.publish(t, ada.ID, "Agent loops", "Agents")
	env.publish(t, bob.ID, "Vector stores for RAG", "RAG", "Vector DBs")
	env.draft(t, bob.ID, "Hidden RAG draft", "RAG")

	tests := []struct {
		name  string
		q     model.ArticleQuery
		total int
	}{
		{"all published", model.ArticleQuery{}, 3},
		{"by tag", model.ArticleQuery{Tags: []string{"RAG"}}, 2},
		{"by author", model.ArticleQuery{Author: "ada"}, 2},
		{"unknown author", model.ArticleQuery{Author: "nobody"}, 0},
		{"search", model.ArticleQuery{Search: "vector"}, 1},
		{"page", model.ArticleQuery{Limit: 2}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := env.articles.List(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.total, list.Total)
			assert.LessOrEqual(t, len(list.Articles), list.Limit)
		})
	}

	_, err := env.articles.List(ctx, model.ArticleQuery{Sort: "random"})
	assertAppError(t, err, apperror.ErrValidation, "")
}

func TestDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.signup(t, "author@example.com")
	other := env.signup(t, "other@example.com")
	one := env.draft(t, u.ID, "One")
	env.draft(t, u.ID, "Two")
	env.publish(t, u.ID, "Three")
	env.draft(t, other.ID, "Not mine")

	drafts, err := env.articles.Drafts(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, drafts.Total)
	assert.Len(t, drafts.Articles, 2)
	assert.Equal(t, DefaultListLimit, drafts.Limit)

	// editing a draft moves it to the front
	title := "One, revised"
	_, err = env.articles.Update(ctx, u.ID, one.ID, model.ArticleUpdate{Title: &title})
	require.NoError(t, err)

	drafts, err = env.articles.Drafts(ctx, u.ID, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, drafts.Total)
	require.Len(t, drafts.Articles, 1)
	assert.Equal(t, one.ID, drafts.Articles[0].ID)

	drafts, err = env.articles.Drafts(ctx, u.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, drafts.Articles, 1)
	assert.Equal(t, "Two", drafts.Articles[0].Title)

	drafts, err = env.articles.Drafts(ctx, u.ID, 0, MaxListLimit+50)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, drafts.Limit)
}
