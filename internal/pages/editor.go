package pages

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/authoring"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/resource"
)

// EditorAPI is what the editor page needs: loading the article being
// edited plus everything the form submits.
type EditorAPI interface {
	authoring.ArticleAPI
	Article(ctx context.Context, key string) (*model.Article, error)
}

// EditorPage wraps the authoring form. For a new article it is ready
// immediately; for an existing one Mount loads it first and refuses to edit
// articles the caller did not write.
type EditorPage struct {
	api    EditorAPI
	logger *slog.Logger
	key    string
	res    *resource.Resource[*authoring.Form]
}

// NewEditorPage creates the editor. An empty key starts a new article.
func NewEditorPage(api EditorAPI, logger *slog.Logger, key string) *EditorPage {
	return &EditorPage{api: api, logger: logger, key: key, res: resource.New[*authoring.Form](nil)}
}

func (p *EditorPage) Mount(ctx context.Context) resource.State[*authoring.Form] {
	if p.key == "" {
		p.res.Set(authoring.New(p.api, p.logger))
		return p.res.State()
	}
	key := p.key
	return p.res.Load(ctx, func(ctx context.Context) (*authoring.Form, error) {
		a, err := p.api.Article(ctx, key)
		if err != nil {
			return nil, err
		}
		if !a.IsAuthor {
			return nil, apperror.NewHTTPError(http.StatusForbidden, "You can only edit your own articles")
		}
		return authoring.Edit(p.api, p.logger, a), nil
	})
}

// Form returns the loaded form, or nil before Mount succeeds.
func (p *EditorPage) Form() *authoring.Form {
	s := p.res.State()
	if s.Phase != resource.Success {
		return nil
	}
	return s.Data
}

// Save submits the form and returns the saved article with the path the
// client should navigate to.
func (p *EditorPage) Save(ctx context.Context) (*model.Article, string, error) {
	f := p.Form()
	if f == nil {
		return nil, "", errNotLoaded
	}
	a, err := f.Submit(ctx)
	if err != nil {
		return nil, "", err
	}
	return a, authoring.RedirectPath(a), nil
}

func (p *EditorPage) State() resource.State[*authoring.Form] { return p.res.State() }
func (p *EditorPage) Close()                                 { p.res.Close() }
