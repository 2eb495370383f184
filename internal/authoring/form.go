// Package authoring implements the article editor form.
//
// A Form holds what the user typed: title, summary, tag selection, the
// content document and whether the article should be published. Nothing is
// sent until Submit, which validates first and only then talks to the API.
//
// SUBMIT SEQUENCE:
//
//  1. Validate. Field errors block the request and come back as
//     apperror.ValidationErrors.
//  2. Create (POST) a new article, or update (PATCH) an existing one.
//  3. If the publish toggle differs from the status the server returned,
//     call publish or unpublish.
//
// On any API failure the form keeps every field as typed and Submit returns
// a *SubmitError carrying a generic message. If the article was created but
// the publish step failed, the form remembers the new id so the retry is an
// update instead of a second create.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/validate"
)

// FailureMessage is shown when saving fails for any reason other than
// invalid input.
const FailureMessage = "Failed to save article. Please try again."

// ArticleAPI is the part of the API client the form needs.
type ArticleAPI interface {
	CreateArticle(ctx context.Context, in model.ArticleInput) (*model.Article, error)
	UpdateArticle(ctx context.Context, id string, in model.ArticleUpdate) (*model.Article, error)
	PublishArticle(ctx context.Context, id string) (*model.Article, error)
	UnpublishArticle(ctx context.Context, id string) (*model.Article, error)
}

// SubmitError wraps the API failure behind the generic message.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

// Form is the editor state for one article.
type Form struct {
	Title   string
	Summary string
	Content model.Document
	Publish bool

	tags   []string
	id     string
	stored model.ArticleStatus

	api    ArticleAPI
	logger *slog.Logger
}

// New returns an empty form for a new article.
func New(api ArticleAPI, logger *slog.Logger) *Form {
	return &Form{api: api, logger: logger, stored: model.StatusDraft}
}

// Edit returns a form pre-filled from an existing article.
func Edit(api ArticleAPI, logger *slog.Logger, a *model.Article) *Form {
	f := New(api, logger)
	f.id = a.ID
	f.Title = a.Title
	f.Summary = a.Summary
	f.Content = a.Content
	f.tags = append([]string(nil), a.Tags...)
	f.stored = a.Status
	f.Publish = a.Status == model.StatusPublished
	return f
}

// ID is the server id of the article, empty until first saved.
func (f *Form) ID() string { return f.id }

// StoredStatus is the status the server last reported for this article.
func (f *Form) StoredStatus() model.ArticleStatus { return f.stored }

// IsNew reports whether Submit will create rather than update.
func (f *Form) IsNew() bool { return f.id == "" }

// Tags returns a copy of the current selection.
func (f *Form) Tags() []string { return append([]string(nil), f.tags...) }

// ToggleTag flips tag in the selection. Selecting a sixth tag is a no-op.
// Tags outside the taxonomy are ignored. It reports whether the selection
// changed.
func (f *Form) ToggleTag(tag string) bool {
	canonical, ok := model.CanonicalTag(tag)
	if !ok {
		return false
	}
	next := validate.ToggleTag(f.tags, canonical, model.MaxArticleTags)
	changed := len(next) != len(f.tags)
	f.tags = next
	return changed
}

// SuggestTags proposes taxonomy tags for the current title, summary and
// content that are not selected yet.
func (f *Form) SuggestTags(limit int) []string {
	text := strings.Join([]string{f.Title, f.Summary, f.Content.PlainText()}, "\n")
	var out []string
	for _, t := range model.SuggestTags(text, 0) {
		if slices.Contains(f.tags, t) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Validate returns per-field messages, or nil when the form can be submitted.
func (f *Form) Validate() apperror.ValidationErrors {
	errs := apperror.ValidationErrors{}
	if err := validate.Article(validate.ArticleFields{Title: f.Title, Summary: f.Summary, Tags: f.tags}); err != nil {
		var v apperror.ValidationErrors
		if errors.As(err, &v) {
			for k, msg := range v {
				errs[k] = msg
			}
		}
	}
	if f.Content.IsEmpty() {
		errs["content"] = "Content is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit validates and saves the article, returning the server's copy.
func (f *Form) Submit(ctx context.Context) (*model.Article, error) {
	if errs := f.Validate(); errs != nil {
		return nil, errs
	}

	saved, err := f.save(ctx)
	if err != nil {
		f.logger.Warn("article save failed", "id", f.id, "error", err)
		return nil, &SubmitError{Message: FailureMessage, Err: err}
	}

	want := model.StatusDraft
	if f.Publish {
		want = model.StatusPublished
	}
	if saved.Status != want {
		saved, err = f.transition(ctx, saved.ID, want)
		if err != nil {
			f.logger.Warn("article status change failed", "id", f.id, "want", want, "error", err)
			return nil, &SubmitError{Message: FailureMessage, Err: err}
		}
	}
	f.stored = saved.Status
	f.logger.Info("article saved", "id", saved.ID, "slug", saved.Slug, "status", saved.Status)
	return saved, nil
}

func (f *Form) save(ctx context.Context) (*model.Article, error) {
	tags := f.Tags()
	if tags == nil {
		tags = []string{}
	}
	title := strings.TrimSpace(f.Title)
	summary := strings.TrimSpace(f.Summary)

	if f.id == "" {
		a, err := f.api.CreateArticle(ctx, model.ArticleInput{
			Title:   title,
			Summary: summary,
			Content: f.Content,
			Tags:    tags,
		})
		if err != nil {
			return nil, err
		}
		f.id = a.ID
		f.stored = a.Status
		return a, nil
	}

	a, err := f.api.UpdateArticle(ctx, f.id, model.ArticleUpdate{
		Title:   &title,
		Summary: &summary,
		Content: f.Content,
		Tags:    &tags,
	})
	if err != nil {
		return nil, err
	}
	f.stored = a.Status
	return a, nil
}

func (f *Form) transition(ctx context.Context, id string, want model.ArticleStatus) (*model.Article, error) {
	switch want {
	case model.StatusPublished:
		return f.api.PublishArticle(ctx, id)
	case model.StatusDraft:
		return f.api.UnpublishArticle(ctx, id)
	}
	return nil, fmt.Errorf("authoring: cannot move article to %q", want)
}

// RedirectPath is where the editor navigates after a successful save:
// published articles open their detail page, drafts go to the drafts list.
func RedirectPath(a *model.Article) string {
	if a != nil && a.Status == model.StatusPublished {
		return "/articles/" + a.Slug
	}
	return "/articles/drafts"
}
