package main

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/sakif/aic-hub/internal/importer"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/pages"
)

var timeRanges = []string{model.Range24h, model.Range7d, model.Range30d, model.RangeAll}

func oneOf(flag, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return cli.Exit(fmt.Sprintf("--%s must be one of %v, got %q", flag, allowed, value), ExitUsageError)
}

func feedCommand() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Show the feed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "view", Value: model.FeedLatest, Usage: "latest, trending or recommended"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter by tag (repeatable)"},
			&cli.StringFlag{Name: "range", Usage: "Time range for the trending view: 24h, 7d, 30d or all"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Page size"},
			&cli.IntFlag{Name: "pages", Value: 1, Usage: "How many pages to load"},
		},
		Action: func(c *cli.Context) error {
			if err := oneOf("view", c.String("view"), feedViews); err != nil {
				return err
			}
			if err := oneOf("range", c.String("range"), timeRanges); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			limit := c.Int("limit")
			if limit <= 0 {
				limit = e.cfg.Output.PageSize
			}
			page := pages.NewFeedPage(e.client, model.FeedQuery{
				View:      c.String("view"),
				Tags:      c.StringSlice("tag"),
				TimeRange: c.String("range"),
				Limit:     limit,
			})
			defer page.Close()

			s := loadPages(c, page.Mount, page.LoadMore)
			if err := failState(s); err != nil {
				return err
			}
			return e.print(listJSON(s.Data), feedList(page.Query().View, s.Data.Items, s.Data.Total))
		},
	}
}

func trendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "trending",
		Usage: "Show trending articles, spaces and tags",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Value: "all", Usage: "articles, spaces, tags or all"},
			&cli.StringFlag{Name: "range", Value: model.Range7d, Usage: "24h, 7d, 30d or all"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Items per section"},
		},
		Action: func(c *cli.Context) error {
			if err := oneOf("type", c.String("type"), []string{"articles", "spaces", "tags", "all"}); err != nil {
				return err
			}
			if err := oneOf("range", c.String("range"), timeRanges); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			page := pages.NewTrendingPage(e.client, c.String("type"), c.String("range"), c.Int("limit"))
			defer page.Close()
			s := page.Mount(c.Context)
			if err := failState(s); err != nil {
				return err
			}
			return e.print(s.Data, trendingView(s.Data))
		},
	}
}

func discoverCommand() *cli.Command {
	categories := []string{model.DiscoverRisingArticles, model.DiscoverActiveSpaces, model.DiscoverNewUsers}
	return &cli.Command{
		Name:  "discover",
		Usage: "Discover rising articles, active spaces and new people",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Value: model.DiscoverRisingArticles, Usage: "rising_articles, active_spaces or new_users"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Number of items"},
		},
		Action: func(c *cli.Context) error {
			if err := oneOf("category", c.String("category"), categories); err != nil {
				return err
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			page := pages.NewDiscoverPage(e.client, c.String("category"), c.Int("limit"))
			defer page.Close()
			s := page.Mount(c.Context)
			if err := failState(s); err != nil {
				return err
			}
			return e.print(s.Data, discoveryView(s.Data))
		},
	}
}

func interactCommand() *cli.Command {
	return &cli.Command{
		Name:      "interact",
		Usage:     "Record a view, click, share or save",
		ArgsUsage: "<view|click|share|save> <article|space|user> <id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "duration", Usage: "Seconds spent, for views"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return usage(c)
			}
			args := c.Args()
			in := model.Interaction{Type: args.Get(0), TargetType: args.Get(1), TargetID: args.Get(2)}
			kinds := []string{model.InteractionView, model.InteractionClick, model.InteractionShare, model.InteractionSave}
			if err := oneOf("type", in.Type, kinds); err != nil {
				return err
			}
			if err := oneOf("target-type", in.TargetType, []string{"article", "space", "user"}); err != nil {
				return err
			}
			if c.IsSet("duration") {
				d := c.Int("duration")
				in.Duration = &d
			}

			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.client.RecordInteraction(c.Context, in); err != nil {
				return fail(err)
			}
			return e.print(in, fmt.Sprintf("Recorded %s of %s %s", in.Type, in.TargetType, in.TargetID))
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List the tag taxonomy",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			tags, err := e.client.Tags(c.Context)
			if err != nil {
				return fail(err)
			}
			return e.print(tags, tagList(*tags))
		},
	}
}

func importFeedCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-feed",
		Usage:     "Import the entries of an RSS or Atom feed as drafts",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max", Usage: "Most entries to import (0 = config default)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usage(c)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			limit := c.Int("max")
			if limit <= 0 {
				limit = e.cfg.Import.MaxItems
			}
			// drafts need a session; fail early instead of once per entry
			if _, err := e.currentUser(c.Context, false); err != nil {
				return err
			}

			res, err := importer.New(e.client, e.logger, limit).ImportURL(c.Context, c.Args().First())
			if err != nil {
				if res == nil {
					return cli.Exit(err.Error(), ExitDataError)
				}
				return fail(err)
			}
			text := fmt.Sprintf("Imported %d drafts from %s", len(res.Created), res.Feed)
			for _, a := range res.Created {
				text += fmt.Sprintf("\n  + %s (%s)", a.Title, a.ID)
			}
			for _, s := range res.Skipped {
				text += fmt.Sprintf("\n  - %s: %s", s.Title, s.Reason)
			}
			return e.print(res, text)
		},
	}
}
