package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
)

// ===== FEED =====

func TestFeed_Latest(t *testing.T) {
	env := newTestEnv(t)
	u := env.signup(t, "author@example.com")
	env.publish(t, u.ID, "First", "RAG")
	env.publish(t, u.ID, "Second", "Agents")
	env.draft(t, u.ID, "Draft", "RAG")

	page, err := env.feed.Feed(context.Background(), "", model.FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "article", page.Items[0].Type)
	assert.Nil(t, page.NextCursor)

	page, err = env.feed.Feed(context.Background(), "", model.FeedQuery{View: model.FeedLatest, Tags: []string{"RAG"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "First", page.Items[0].Article.Title)
}

func TestFeed_Trending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	reader := env.signup(t, "reader@example.com")
	env.publish(t, author.ID, "Quiet")
	hot := env.publish(t, author.ID, "Hot")
	for i := 0; i < 3; i++ {
		_, err := env.articles.Get(ctx, reader.ID, hot.ID)
		require.NoError(t, err)
	}

	page, err := env.feed.Feed(ctx, "", model.FeedQuery{View: model.FeedTrending})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Hot", page.Items[0].Article.Title)
	assert.Equal(t, "trending_in_period", page.Items[0].Reason)
	assert.Greater(t, page.Items[0].Score, page.Items[1].Score)

	_, err = env.feed.Feed(ctx, "", model.FeedQuery{View: model.FeedTrending, TimeRange: "1y"})
	assertAppError(t, err, apperror.ErrValidation, "")
}

func TestFeed_Recommended(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	reader := env.signup(t, "reader@example.com")
	env.publish(t, author.ID, "About RAG", "RAG")
	env.publish(t, author.ID, "About robots", "Robotics")

	tags := []string{"RAG"}
	_, err := env.users.UpdateMe(ctx, reader.ID, model.ProfileUpdate{ExpertiseTags: &tags})
	require.NoError(t, err)

	page, err := env.feed.Feed(ctx, reader.ID, model.FeedQuery{View: model.FeedRecommended})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "About RAG", page.Items[0].Article.Title)
	assert.Equal(t, "recommended", page.Items[0].Reason)

	anon, err := env.feed.Feed(ctx, "", model.FeedQuery{View: model.FeedRecommended})
	require.NoError(t, err)
	assert.Empty(t, anon.Items)
}

func TestFeed_UnknownView(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.feed.Feed(context.Background(), "", model.FeedQuery{View: "following"})
	assertAppError(t, err, apperror.ErrValidation, "")
	assert.Equal(t, "view", apperror.FieldOf(err))
}

// ===== TRENDING =====

func TestTrending_All(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	reader := env.signup(t, "reader@example.com")
	a := env.publish(t, author.ID, "Embeddings explained", "Embeddings", "RAG")
	env.publish(t, author.ID, "RAG pitfalls", "RAG")
	_, err := env.articles.Get(ctx, reader.ID, a.ID)
	require.NoError(t, err)

	sp := env.space(t, author.ID, "RAG Builders", model.VisibilityPublic)
	_, err = env.spaces.Join(ctx, reader.ID, sp.ID)
	require.NoError(t, err)
	env.space(t, author.ID, "Hidden", model.VisibilityPrivate)

	tr, err := env.feed.Trending(ctx, "", model.Range7d, 0)
	require.NoError(t, err)

	require.Len(t, tr.Articles, 2)
	first, err := tr.Articles[0].Article()
	require.NoError(t, err)
	assert.Equal(t, a.ID, first.ID)
	assert.Equal(t, 1, tr.Articles[0].ViewsInPeriod)
	assert.Equal(t, "rising", tr.Articles[0].Trend)
	assert.Equal(t, "steady", tr.Articles[1].Trend)

	require.Len(t, tr.Spaces, 1, "private spaces never trend")
	assert.Equal(t, 2, tr.Spaces[0].NewMembers)
	assert.Equal(t, float64(20), tr.Spaces[0].ActivityScore)

	require.NotEmpty(t, tr.Tags)
	top, err := tr.Tags[0].Tag()
	require.NoError(t, err)
	assert.Equal(t, "RAG", top.Name)
	assert.Equal(t, 2, top.ArticleCount)
}

func TestTrending_KindAndRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	env.publish(t, author.ID, "Old news")

	tr, err := env.feed.Trending(ctx, TrendingArticles, model.Range24h, 5)
	require.NoError(t, err)
	assert.Len(t, tr.Articles, 1)
	assert.Empty(t, tr.Spaces)
	assert.Empty(t, tr.Tags)

	// Two days later the article has left the 24h window but not "all".
	env.feed.now = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }
	tr, err = env.feed.Trending(ctx, TrendingArticles, model.Range24h, 5)
	require.NoError(t, err)
	assert.Empty(t, tr.Articles)

	tr, err = env.feed.Trending(ctx, TrendingArticles, model.RangeAll, 5)
	require.NoError(t, err)
	assert.Len(t, tr.Articles, 1)

	_, err = env.feed.Trending(ctx, "users", model.Range24h, 5)
	assertAppError(t, err, apperror.ErrValidation, "")
}

// ===== DISCOVERY =====

func TestDiscover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "author@example.com")
	reader := env.signup(t, "reader@example.com")
	a := env.publish(t, author.ID, "Fresh take")
	_, err := env.articles.Get(ctx, reader.ID, a.ID)
	require.NoError(t, err)
	env.space(t, author.ID, "Busy space", model.VisibilityPublic)

	rising, err := env.feed.Discover(ctx, model.DiscoverRisingArticles, 0)
	require.NoError(t, err)
	require.Len(t, rising.Items, 1)
	assert.Equal(t, float64(1), rising.Items[0].Metrics["viewCount"])
	assert.Equal(t, float64(1), rising.Items[0].Metrics["viewVelocity"])
	assert.True(t, rising.RefreshAt.After(time.Now()))

	spaces, err := env.feed.Discover(ctx, model.DiscoverActiveSpaces, 0)
	require.NoError(t, err)
	require.Len(t, spaces.Items, 1)
	assert.Equal(t, "Busy space", spaces.Items[0].Space.Name)

	users, err := env.feed.Discover(ctx, model.DiscoverNewUsers, 0)
	require.NoError(t, err)
	assert.Len(t, users.Items, 2)
	assert.Equal(t, model.DiscoverNewUsers, users.Category)

	_, err = env.feed.Discover(ctx, "old_users", 0)
	assertAppError(t, err, apperror.ErrValidation, "")
}

// ===== INTERACTIONS =====

func TestRecordInteraction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.signup(t, "u@example.com")
	seconds := 30

	err := env.feed.RecordInteraction(ctx, u.ID, model.Interaction{
		Type: model.InteractionShare, TargetType: "article", TargetID: "a1",
		Duration: &seconds, Metadata: map[string]any{"via": "cli"},
	})
	require.NoError(t, err)

	n, err := env.db.CountActivities(ctx, "article", "a1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tests := []struct {
		name  string
		in    model.Interaction
		field string
	}{
		{"unknown type", model.Interaction{Type: "like", TargetType: "article", TargetID: "a1"}, "type"},
		{"unknown target", model.Interaction{Type: "view", TargetType: "comment", TargetID: "a1"}, "targetType"},
		{"missing target id", model.Interaction{Type: "view", TargetType: "space"}, "targetId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.feed.RecordInteraction(ctx, "", tt.in)
			assertAppError(t, err, apperror.ErrValidation, "")
			assert.Equal(t, tt.field, apperror.FieldOf(err))
		})
	}
}
