// Package importer turns RSS and Atom feed entries into article drafts.
//
// Each entry goes through the same authoring form a person would use, so
// the usual rules apply: title and summary are clamped to their limits
// first, tags are restricted to the taxonomy, and the article is created as
// a draft for the author to review and publish.
//
// CONTENT CONVERSION:
// Feed bodies are HTML. They are converted to Markdown (GitHub flavour) and
// every blank-line separated block becomes one paragraph of the document.
// A closing paragraph links back to the original entry.
//
// TAGS:
// Entry categories that match a taxonomy tag (case-insensitive) are used
// first. Remaining slots are filled from keyword suggestions over the title
// and body.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/mmcdole/gofeed"

	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/authoring"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/validate"
)

// Skipped records an entry that did not become a draft.
type Skipped struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Result summarizes one import run.
type Result struct {
	Feed    string           `json:"feed"`
	Created []*model.Article `json:"created"`
	Skipped []Skipped        `json:"skipped"`
}

// Importer converts feeds into drafts through api.
type Importer struct {
	parser    *gofeed.Parser
	converter *md.Converter
	api       authoring.ArticleAPI
	logger    *slog.Logger
	max       int
}

// New creates an Importer. max limits how many entries one run imports;
// zero means all.
func New(api authoring.ArticleAPI, logger *slog.Logger, max int) *Importer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Importer{
		parser:    gofeed.NewParser(),
		converter: converter,
		api:       api,
		logger:    logger,
		max:       max,
	}
}

// ImportURL fetches and imports the feed at url.
func (im *Importer) ImportURL(ctx context.Context, url string) (*Result, error) {
	feed, err := im.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("importer: fetching feed from %s: %w", url, err)
	}
	return im.importFeed(ctx, feed)
}

// ImportString imports feed XML already in memory.
func (im *Importer) ImportString(ctx context.Context, content string) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("importer: feed content is empty")
	}
	feed, err := im.parser.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("importer: parsing feed: %w", err)
	}
	return im.importFeed(ctx, feed)
}

func (im *Importer) importFeed(ctx context.Context, feed *gofeed.Feed) (*Result, error) {
	res := &Result{Feed: feed.Title, Created: []*model.Article{}, Skipped: []Skipped{}}
	for i, item := range feed.Items {
		if im.max > 0 && i >= im.max {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		form, err := im.formFor(item)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Title: item.Title, Reason: err.Error()})
			continue
		}

		a, err := form.Submit(ctx)
		if err != nil {
			if apperror.IsNetwork(err) {
				return res, err
			}
			res.Skipped = append(res.Skipped, Skipped{Title: form.Title, Reason: reason(err)})
			im.logger.Warn("feed entry skipped", "title", form.Title, "error", err)
			continue
		}
		res.Created = append(res.Created, a)
		im.logger.Info("feed entry imported", "title", a.Title, "id", a.ID)
	}
	return res, nil
}

// formFor fills an authoring form from one feed entry.
func (im *Importer) formFor(item *gofeed.Item) (*authoring.Form, error) {
	title := clamp(strings.TrimSpace(item.Title), validate.MaxTitleLength)
	if title == "" {
		return nil, errors.New("entry has no title")
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	paragraphs, err := im.paragraphs(body)
	if err != nil {
		return nil, fmt.Errorf("converting entry body: %w", err)
	}
	if item.Link != "" {
		paragraphs = append(paragraphs, "Originally published at "+item.Link)
	}
	if len(paragraphs) == 0 {
		return nil, errors.New("entry has no content")
	}

	summary := ""
	if item.Description != "" && item.Content != "" {
		if p, err := im.paragraphs(item.Description); err == nil {
			summary = strings.Join(p, " ")
		}
	} else {
		summary = paragraphs[0]
	}

	form := authoring.New(im.api, im.logger)
	form.Title = title
	form.Summary = clamp(summary, validate.MaxSummaryLength)
	form.Content = model.NewDocument(paragraphs...)
	for _, t := range Tags(item.Categories, title+"\n"+strings.Join(paragraphs, "\n")) {
		form.ToggleTag(t)
	}
	return form, nil
}

// paragraphs converts HTML to Markdown blocks.
func (im *Importer) paragraphs(html string) ([]string, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}
	markdown, err := im.converter.ConvertString(html)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, block := range strings.Split(markdown, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out, nil
}

// Tags picks up to five taxonomy tags: matching categories first, then
// keyword suggestions from text.
func Tags(categories []string, text string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(t string) {
		if len(out) < model.MaxArticleTags && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, c := range categories {
		if t, ok := model.CanonicalTag(c); ok {
			add(t)
		}
	}
	for _, t := range model.SuggestTags(text, model.MaxArticleTags) {
		add(t)
	}
	return out
}

// clamp cuts s to at most n runes, on a word boundary when one is close.
func clamp(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := string(r)
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

func reason(err error) string {
	var v apperror.ValidationErrors
	if errors.As(err, &v) {
		return v.Error()
	}
	var se *authoring.SubmitError
	if errors.As(err, &se) && se.Err != nil {
		return apperror.UserMessage(se.Err)
	}
	return err.Error()
}
