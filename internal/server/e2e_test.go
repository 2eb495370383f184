package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/aic-hub/internal/api"
	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/auth"
	"github.com/sakif/aic-hub/internal/hooks"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/server"
	"github.com/sakif/aic-hub/internal/session"
)

// ============================================================
// End to end: the real client against the real dev API
// ============================================================

type user struct {
	client  *api.Client
	hooks   *hooks.Hooks
	session *session.Service
}

func newUser(t *testing.T, baseURL string) *user {
	t.Helper()
	client, err := api.New(baseURL)
	require.NoError(t, err)
	h := hooks.New(client, testLogger())
	return &user{client: client, hooks: h, session: session.NewService(client, h, testLogger())}
}

func startAPI(t *testing.T, opts ...server.Option) string {
	t.Helper()
	ts := httptest.NewServer(newTestServer(t, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestE2E_SignupChooseUsernameAndPublicProfile(t *testing.T) {
	ctx := context.Background()
	ada := newUser(t, startAPI(t))

	res, err := ada.session.Signup(ctx, "ada@example.com", "correct-horse-battery", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, session.PathWelcome, res.Redirect)
	assert.Equal(t, "ada", res.User.Username)
	assert.True(t, res.User.UsernameEditable)

	// the session cookie came back through the jar
	me, err := ada.client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	editor := session.NewProfileEditor(ada.client, ada.hooks, testLogger())
	_, err = editor.Load(ctx)
	require.NoError(t, err)
	assert.False(t, editor.UsernameDisabled())

	_, err = ada.hooks.PublicProfile(ctx, "ada")
	require.NoError(t, err)

	editor.SetUsername("Ada Lovelace")
	editor.ToggleExpertise("RAG")
	saved, err := editor.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada-lovelace", saved.Username)
	assert.False(t, saved.UsernameEditable)
	assert.Equal(t, []string{"RAG"}, saved.ExpertiseTags)
	assert.True(t, editor.UsernameDisabled())

	cached, ok := ada.hooks.CachedCurrentUser()
	require.True(t, ok)
	assert.Equal(t, "ada-lovelace", cached.Username)

	// a second change is stopped before any request
	editor.SetUsername("someone-else")
	_, err = editor.Save(ctx)
	var verrs apperror.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, session.ErrUsernameLocked, verrs["username"])

	// and the server enforces the same rule
	other := "someone-else"
	_, err = ada.client.UpdateMe(ctx, model.ProfileUpdate{Username: &other})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	public, err := newUser(t, ada.client.BaseURL().String()).hooks.PublicProfile(ctx, "ada-lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", public.DisplayName)

	_, err = ada.client.User(ctx, "ada")
	assert.True(t, apperror.IsNotFound(err))
	_, err = ada.hooks.PublicProfile(ctx, "ada")
	assert.True(t, apperror.IsNotFound(err), "the old name is not served from cache")
}

func TestE2E_PublishJoinAndFeed(t *testing.T) {
	ctx := context.Background()
	baseURL := startAPI(t)

	ada := newUser(t, baseURL)
	_, err := ada.session.Signup(ctx, "ada@example.com", "correct-horse-battery", "Ada")
	require.NoError(t, err)

	article, err := ada.client.CreateArticle(ctx, model.ArticleInput{
		Title:   "Evaluating RAG pipelines",
		Content: model.NewDocument("Measure retrieval before generation."),
		Tags:    []string{"rag"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"RAG"}, article.Tags)

	drafts, err := ada.client.Drafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	_, err = ada.client.PublishArticle(ctx, article.ID)
	require.NoError(t, err)

	space, err := ada.client.CreateSpace(ctx, model.SpaceInput{Name: "Retrieval Lab", Tags: []string{"RAG"}})
	require.NoError(t, err)

	// a second, anonymous reader
	bob := newUser(t, baseURL)
	_, err = bob.client.JoinSpace(ctx, space.ID)
	assert.Equal(t, http.StatusUnauthorized, apperror.StatusOf(err))

	read, err := bob.client.Article(ctx, article.Slug)
	require.NoError(t, err)
	assert.False(t, read.IsAuthor)
	assert.Equal(t, 1, read.ViewCount)

	_, err = bob.session.Signup(ctx, "bob@example.com", "correct-horse-battery", "Bob")
	require.NoError(t, err)
	joined, err := bob.client.JoinSpace(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, joined.Role)

	_, err = bob.client.JoinSpace(ctx, space.ID)
	assert.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	members, err := ada.client.Members(ctx, space.ID, "", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, members.Total)

	page, err := bob.client.Feed(ctx, model.FeedQuery{View: "latest", Tags: []string{"RAG"}})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, article.ID, page.Items[0].Article.ID)

	require.NoError(t, bob.client.RecordInteraction(ctx, model.Interaction{
		Type: "save", TargetType: "article", TargetID: article.ID,
	}))

	tags, err := bob.client.Tags(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tags.Tags)

	// logging out drops the cached user and the cookie
	_, err = bob.session.Logout(ctx)
	require.NoError(t, err)
	_, ok := bob.hooks.CachedCurrentUser()
	assert.False(t, ok)
	_, err = bob.client.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, apperror.StatusOf(err))
}

func TestE2E_SpaceArticlesAndMembership(t *testing.T) {
	ctx := context.Background()
	baseURL := startAPI(t)

	ada := newUser(t, baseURL)
	adaRes, err := ada.session.Signup(ctx, "ada@example.com", "correct-horse-battery", "Ada")
	require.NoError(t, err)
	space, err := ada.client.CreateSpace(ctx, model.SpaceInput{Name: "Retrieval Lab"})
	require.NoError(t, err)
	article, err := ada.client.CreateArticle(ctx, model.ArticleInput{
		Title:   "Chunking strategies",
		Content: model.NewDocument("Smaller is not always better."),
		Tags:    []string{},
	})
	require.NoError(t, err)

	_, err = ada.client.ShareArticle(ctx, space.ID, article.ID)
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err), "drafts cannot be shared")

	_, err = ada.client.PublishArticle(ctx, article.ID)
	require.NoError(t, err)
	shared, err := ada.client.ShareArticle(ctx, space.ID, article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.ID, shared.Article.ID)
	assert.Equal(t, adaRes.User.ID, shared.AddedBy.ID)

	_, err = ada.client.ShareArticle(ctx, space.ID, article.ID)
	assert.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	got, err := ada.client.Space(ctx, space.Slug)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ArticleCount)

	pin, err := ada.client.PinSpaceArticle(ctx, space.ID, article.ID, true)
	require.NoError(t, err)
	assert.True(t, pin.Pinned)

	reader := newUser(t, baseURL)
	list, err := reader.client.SpaceArticles(ctx, space.ID, true, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Articles, 1)
	assert.True(t, list.Articles[0].Pinned)

	m, err := reader.client.Member(ctx, space.ID, adaRes.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, m.Role)

	_, err = reader.client.Member(ctx, space.ID, "not-a-member")
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, ada.client.RemoveSpaceArticle(ctx, space.ID, article.ID))
	got, err = ada.client.Space(ctx, space.Slug)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ArticleCount)

	private, err := ada.client.CreateSpace(ctx, model.SpaceInput{Name: "Back Room", Visibility: model.VisibilityPrivate})
	require.NoError(t, err)
	_, err = reader.client.Member(ctx, private.ID, adaRes.User.ID)
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))
	_, err = reader.client.SpaceArticles(ctx, private.ID, false, 0, 20)
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))
}

func TestE2E_GitHubLogin(t *testing.T) {
	ctx := context.Background()
	gh := &fakeGitHub{user: &auth.GitHubUser{ID: 99, Login: "grace-h", Name: "Grace Hopper", Email: "grace@example.com"}}
	baseURL := startAPI(t, server.WithGitHub(gh))

	login := func(t *testing.T) *session.Result {
		t.Helper()
		u := newUser(t, baseURL)
		authorize, err := u.session.StartGitHub(ctx)
		require.NoError(t, err)

		loc, err := url.Parse(authorize)
		require.NoError(t, err)
		state := loc.Query().Get("state")
		require.NotEmpty(t, state)

		res, err := u.session.CompleteGitHub(ctx, "good", state)
		require.NoError(t, err)
		return res
	}

	first := login(t)
	assert.Equal(t, session.PathWelcome, first.Redirect)
	assert.Equal(t, "grace-h", first.User.Username)
	assert.Equal(t, "grace-h", first.User.GitHubUsername)

	second := login(t)
	assert.Equal(t, session.PathFeed, second.Redirect)
	assert.Equal(t, first.User.ID, second.User.ID)

	t.Run("forged state is rejected", func(t *testing.T) {
		u := newUser(t, baseURL)
		_, err := u.session.StartGitHub(ctx)
		require.NoError(t, err)

		_, err = u.session.CompleteGitHub(ctx, "good", "forged")
		assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
	})
}
