package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sakif/aic-hub/internal/authoring"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/pages"
	"github.com/sakif/aic-hub/internal/resource"
)

func articlesCommand() *cli.Command {
	return &cli.Command{
		Name:    "articles",
		Aliases: []string{"a"},
		Usage:   "Browse, write and publish articles",
		Subcommands: []*cli.Command{
			articlesListCommand(),
			articlesShowCommand(),
			articlesEditorCommand("new", "Write a new article"),
			articlesEditorCommand("edit", "Edit one of your articles"),
			articlesStatusCommand("publish", "Publish a draft"),
			articlesStatusCommand("unpublish", "Move a published article back to drafts"),
			articlesDeleteCommand(),
			articlesDraftsCommand(),
		},
	}
}

func articlesListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List published articles",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter by tag (repeatable)"},
			&cli.StringFlag{Name: "author", Usage: "Filter by author id"},
			&cli.StringFlag{Name: "q", Usage: "Search title, summary and content"},
			&cli.StringFlag{Name: "sort", Value: model.SortLatest, Usage: "latest, popular or trending"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Page size"},
			&cli.IntFlag{Name: "pages", Value: 1, Usage: "How many pages to load"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			limit := c.Int("limit")
			if limit <= 0 {
				limit = e.cfg.Output.PageSize
			}
			page := pages.NewArticlesPage(e.client, model.ArticleQuery{
				Tags:   c.StringSlice("tag"),
				Author: c.String("author"),
				Search: c.String("q"),
				Sort:   c.String("sort"),
				Limit:  limit,
			})
			defer page.Close()

			s := loadPages(c, page.Mount, page.LoadMore)
			if err := failState(s); err != nil {
				return err
			}
			return e.print(listJSON(s.Data), articleList(s.Data.Items, s.Data.Total))
		},
	}
}

// loadPages mounts a paginated page and loads up to --pages windows.
func loadPages[T any](c *cli.Context, mount, more func(context.Context) resource.State[pages.Listing[T]]) resource.State[pages.Listing[T]] {
	s := mount(c.Context)
	for i := 1; i < c.Int("pages") && s.Phase == resource.Success && s.Data.HasMore(); i++ {
		s = more(c.Context)
	}
	return s
}

type listing[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

func listJSON[T any](l pages.Listing[T]) listing[T] {
	items := l.Items
	if items == nil {
		items = []T{}
	}
	return listing[T]{Items: items, Total: l.Total, HasMore: l.HasMore()}
}

func articlesShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Read an article",
		ArgsUsage: "<slug|id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usage(c)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			page := pages.NewArticlePage(e.client, c.Args().First())
			defer page.Close()
			s := page.Mount(c.Context)
			if err := failState(s); err != nil {
				return err
			}
			text := articleDetail(s.Data)
			if page.CanEdit() {
				text += "\nEdit with: aichub articles edit " + s.Data.ID
			}
			return e.print(s.Data, text)
		},
	}
}

func articlesEditorCommand(name, usageText string) *cli.Command {
	cmd := &cli.Command{
		Name:  name,
		Usage: usageText,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Title"},
			&cli.StringFlag{Name: "summary", Usage: "Short summary"},
			&cli.StringFlag{Name: "body", Usage: "Content; blank lines separate paragraphs"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the content from a file (- for stdin)"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Toggle a tag (repeatable)"},
			&cli.BoolFlag{Name: "suggest-tags", Usage: "Add suggested tags for the text"},
			&cli.BoolFlag{Name: "publish", Usage: "Publish after saving"},
			&cli.BoolFlag{Name: "draft", Usage: "Keep or move the article to drafts"},
		},
	}
	if name == "edit" {
		cmd.ArgsUsage = "<slug|id>"
	}
	cmd.Action = func(c *cli.Context) error {
		key := ""
		if name == "edit" {
			if c.NArg() != 1 {
				return usage(c)
			}
			key = c.Args().First()
		}
		if c.Bool("publish") && c.Bool("draft") {
			return cli.Exit("--publish and --draft are mutually exclusive", ExitUsageError)
		}

		e, err := setup(c)
		if err != nil {
			return err
		}
		defer e.close()

		editor := pages.NewEditorPage(e.client, e.logger, key)
		defer editor.Close()
		if err := failState(editor.Mount(c.Context)); err != nil {
			return err
		}
		form := editor.Form()
		if err := fillForm(c, form); err != nil {
			return err
		}

		a, redirect, err := editor.Save(c.Context)
		if err != nil {
			return fail(err)
		}
		verb := "Saved draft"
		if a.IsPublished() {
			verb = "Published"
		}
		return e.print(struct {
			Article  *model.Article `json:"article"`
			Redirect string         `json:"redirect"`
		}{a, redirect}, fmt.Sprintf("%s %q (%s)\n%s", verb, a.Title, a.ID, redirect))
	}
	return cmd
}

// fillForm copies the flags onto the form. Unset flags keep the loaded values.
func fillForm(c *cli.Context, form *authoring.Form) error {
	if c.IsSet("title") {
		form.Title = c.String("title")
	}
	if c.IsSet("summary") {
		form.Summary = c.String("summary")
	}

	switch {
	case c.IsSet("file"):
		text, err := readContent(c.String("file"), c.App.Reader)
		if err != nil {
			return cli.Exit(err.Error(), ExitUsageError)
		}
		form.Content = model.NewDocument(paragraphs(text)...)
	case c.IsSet("body"):
		form.Content = model.NewDocument(paragraphs(c.String("body"))...)
	}

	for _, t := range c.StringSlice("tag") {
		if !form.ToggleTag(t) {
			return cli.Exit(fmt.Sprintf("tag %q is not in the taxonomy or the article already has %d tags (see: aichub tags)",
				t, model.MaxArticleTags), ExitDataError)
		}
	}
	if c.Bool("suggest-tags") {
		room := model.MaxArticleTags - len(form.Tags())
		for _, t := range form.SuggestTags(room) {
			form.ToggleTag(t)
		}
	}

	switch {
	case c.Bool("publish"):
		form.Publish = true
	case c.Bool("draft"):
		form.Publish = false
	}
	return nil
}

func readContent(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(b), nil
}

// paragraphs splits text on blank lines.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func articlesStatusCommand(name, usageText string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usageText,
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usage(c)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			id := c.Args().First()
			var a *model.Article
			if name == "publish" {
				a, err = e.client.PublishArticle(c.Context, id)
			} else {
				a, err = e.client.UnpublishArticle(c.Context, id)
			}
			if err != nil {
				return fail(err)
			}
			return e.print(a, fmt.Sprintf("%q is now %s (%s)", a.Title, a.Status, authoring.RedirectPath(a)))
		},
	}
}

func articlesDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete one of your articles",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usage(c)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			id := c.Args().First()
			if err := e.client.DeleteArticle(c.Context, id); err != nil {
				return fail(err)
			}
			return e.print(map[string]string{"deleted": id}, "Deleted "+id)
		},
	}
}

func articlesDraftsCommand() *cli.Command {
	return &cli.Command{
		Name:  "drafts",
		Usage: "List your drafts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "delete", Usage: "Delete this draft id and show the rest"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			page := pages.NewDraftsPage(e.client)
			defer page.Close()
			s := page.Mount(c.Context)
			if err := failState(s); err != nil {
				return err
			}
			if id := c.String("delete"); id != "" {
				if err := page.Delete(c.Context, id); err != nil {
					return fail(err)
				}
				s = page.State()
			}
			drafts := s.Data
			if drafts == nil {
				drafts = []model.ArticleSummary{}
			}
			text := "No drafts."
			if len(drafts) > 0 {
				text = articleList(drafts, len(drafts))
			}
			return e.print(drafts, text)
		},
	}
}
