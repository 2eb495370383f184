package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
)

// newTestClient starts an httptest server around h and returns a client for it.
func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	return c, srv
}

// =========================================================================
// REQUEST WRAPPER TESTS
// =========================================================================

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)
}

func TestDo_SendsJSONAndDecodes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/articles", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		var in model.ArticleInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Hello", in.Title)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.Article{
			ArticleSummary: model.ArticleSummary{ID: "a1", Title: in.Title, Slug: "hello"},
			Status:         model.StatusDraft,
		})
	})

	got, err := c.CreateArticle(context.Background(), model.ArticleInput{Title: "Hello", Content: model.NewDocument("x")})
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, model.StatusDraft, got.Status)
}

func TestDo_NoContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.RecordInteraction(context.Background(), model.Interaction{Type: "view", TargetType: "article", TargetID: "a1"}))
}

func TestDo_ErrorNormalization(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"message field", 404, `{"error":"not_found","message":"User not found"}`, "User not found"},
		{"detail string", 400, `{"detail":"Username can only be set once"}`, "Username can only be set once"},
		{"detail object", 400, `{"detail":{"message":"Invalid expertise tags","invalidTags":["x"]}}`, "Invalid expertise tags"},
		{"html body", 502, `<html>bad gateway</html>`, "Request failed with status 502"},
		{"empty body", 500, ``, "Request failed with status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.User(context.Background(), "ada")
			require.Error(t, err)

			var httpErr *apperror.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.wantMessage, httpErr.Message)
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base, WithTimeout(2*time.Second))
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsNetwork(err), "want NetworkError, got %T", err)
	assert.Equal(t, 0, apperror.StatusOf(err))
	assert.Equal(t, apperror.NetworkMessage, apperror.UserMessage(err))
}

func TestDo_CookiesPersistAcrossCalls(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "aic_hub_session", Value: "tok", Path: "/", HttpOnly: true})
			_ = json.NewEncoder(w).Encode(model.AuthResponse{})
		case "/api/users/me":
			ck, err := r.Cookie("aic_hub_session")
			if err != nil || ck.Value != "tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(model.PrivateProfile{Email: "ada@example.com"})
		}
	})

	ctx := context.Background()
	_, err := c.Me(ctx)
	assert.True(t, apperror.IsUnauthorized(err))

	_, err = c.Login(ctx, model.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)
}

// =========================================================================
// QUERY STRING TESTS
// =========================================================================

func TestListArticles_QueryString(t *testing.T) {
	var got url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"articles":null,"total":0,"skip":20,"limit":10}`))
	})

	list, err := c.ListArticles(context.Background(), model.ArticleQuery{
		Tags: []string{"RAG", "LLMs"}, Search: "vector", Sort: model.SortPopular, Skip: 20, Limit: 10,
	})
	require.NoError(t, err)
	assert.NotNil(t, list.Articles, "nil list should be normalized to empty")
	assert.Equal(t, []string{"RAG", "LLMs"}, got["tags"])
	assert.Equal(t, "vector", got.Get("q"))
	assert.Equal(t, "popular", got.Get("sort"))
	assert.Equal(t, "20", got.Get("skip"))
	assert.Equal(t, "10", got.Get("limit"))
}

func TestFeed_QueryString(t *testing.T) {
	var got url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feed", r.URL.Path)
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"items":[],"total":0,"skip":0,"limit":20,"nextCursor":null}`))
	})

	_, err := c.Feed(context.Background(), model.FeedQuery{View: model.FeedTrending, TimeRange: model.Range7d})
	require.NoError(t, err)
	assert.Equal(t, "trending", got.Get("view"))
	assert.Equal(t, "7d", got.Get("time_range"))
	assert.Equal(t, "0", got.Get("skip"))
}

func TestStartGitHubLogin_DoesNotFollowRedirect(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "st4te", Path: "/"})
		http.Redirect(w, r, "https://github.com/login/oauth/authorize?state=st4te", http.StatusTemporaryRedirect)
	})

	loc, err := c.StartGitHubLogin(context.Background())
	require.NoError(t, err)
	assert.Contains(t, loc, "github.com/login/oauth/authorize")

	u, _ := url.Parse(srv.URL)
	cookies := c.Jar().Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, "oauth_state", cookies[0].Name)
}

// =========================================================================
// FILE JAR TESTS
// =========================================================================

func TestFileJar_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	origin, _ := url.Parse("http://127.0.0.1:8080")

	jar, err := OpenFileJar(path, origin)
	require.NoError(t, err)
	assert.Empty(t, jar.Cookies(origin))

	jar.SetCookies(origin, []*http.Cookie{{Name: "aic_hub_session", Value: "abc", Path: "/"}})
	require.NoError(t, jar.Save())

	reopened, err := OpenFileJar(path, origin)
	require.NoError(t, err)
	cookies := reopened.Cookies(origin)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)

	require.NoError(t, reopened.Clear())
	again, err := OpenFileJar(path, origin)
	require.NoError(t, err)
	assert.Empty(t, again.Cookies(origin))
}
