package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/pages"
	"github.com/sakif/aic-hub/internal/resource"
	"github.com/sakif/aic-hub/internal/validate"
)

func spacesCommand() *cli.Command {
	return &cli.Command{
		Name:    "spaces",
		Aliases: []string{"s"},
		Usage:   "Find, create and join spaces",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List spaces",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter by tag (repeatable)"},
					&cli.StringFlag{Name: "q", Usage: "Search name and description"},
					&cli.BoolFlag{Name: "mine", Usage: "Only spaces you belong to"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Page size"},
					&cli.IntFlag{Name: "pages", Value: 1, Usage: "How many pages to load"},
				},
				Action: spacesList,
			},
			{
				Name:      "show",
				Usage:     "Show a space and its members",
				ArgsUsage: "<slug|id>",
				Action:    spacesShow,
			},
			{
				Name:  "new",
				Usage: "Create a space",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true, Usage: "Space name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description"},
					&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag (repeatable)"},
					&cli.BoolFlag{Name: "private", Usage: "Only members can see the space"},
				},
				Action: spacesNew,
			},
			{
				Name:      "join",
				Usage:     "Join a public space",
				ArgsUsage: "<slug|id>",
				Action:    spacesMembership(true),
			},
			{
				Name:      "leave",
				Usage:     "Leave a space",
				ArgsUsage: "<slug|id>",
				Action:    spacesMembership(false),
			},
			{
				Name:      "members",
				Usage:     "List the members of a space",
				ArgsUsage: "<slug|id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "owner, moderator or member"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Page size"},
					&cli.IntFlag{Name: "skip", Usage: "Members to skip"},
				},
				Action: spacesMembers,
			},
			{
				Name:      "member",
				Usage:     "Show one member of a space",
				ArgsUsage: "<slug|id> <username>",
				Action:    spacesMember,
			},
			{
				Name:      "articles",
				Usage:     "List, share, pin or remove the articles of a space",
				ArgsUsage: "<slug|id>",
				Description: `Without flags the command lists the published articles shared to the
space, pinned ones first. --share needs a published article and membership;
--pin and --unpin are for owners and moderators; --remove is for whoever
shared the article, the owner or a moderator.`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "share", Usage: "Share the article with this id"},
					&cli.StringFlag{Name: "pin", Usage: "Pin the shared article with this id"},
					&cli.StringFlag{Name: "unpin", Usage: "Unpin the shared article with this id"},
					&cli.StringFlag{Name: "remove", Usage: "Remove the shared article with this id"},
					&cli.IntFlag{Name: "pages", Value: 1, Usage: "How many pages to load"},
				},
				Action: spacesArticles,
			},
			{
				Name:      "role",
				Usage:     "Change a member's role (owners and moderators only)",
				ArgsUsage: "<slug|id> <username> <moderator|member>",
				Action:    spacesRole,
			},
		},
	}
}

func spacesList(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	limit := c.Int("limit")
	if limit <= 0 {
		limit = e.cfg.Output.PageSize
	}
	page := pages.NewSpacesPage(e.client, model.SpaceQuery{
		Tags:     c.StringSlice("tag"),
		Search:   c.String("q"),
		MySpaces: c.Bool("mine"),
		Limit:    limit,
	})
	defer page.Close()

	s := loadPages(c, page.Mount, page.LoadMore)
	if err := failState(s); err != nil {
		return err
	}
	return e.print(listJSON(s.Data), spaceList(s.Data.Items, s.Data.Total))
}

func spacesShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return usage(c)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	page := pages.NewSpacePage(e.client, c.Args().First())
	defer page.Close()
	s := page.Mount(c.Context)
	if err := failState(s); err != nil {
		return err
	}
	members := page.Members()
	return e.print(struct {
		Space   *model.Space               `json:"space"`
		Members listing[model.SpaceMember] `json:"members"`
	}{s.Data, listJSON(members.Data)},
		spaceCard(s.Data.SpaceSummary)+"\n"+memberList(members.Data.Items, members.Data.Total))
}

func spacesNew(c *cli.Context) error {
	visibility := model.VisibilityPublic
	if c.Bool("private") {
		visibility = model.VisibilityPrivate
	}
	fields := validate.SpaceFields{
		Name:        strings.TrimSpace(c.String("name")),
		Description: strings.TrimSpace(c.String("description")),
		Tags:        canonicalTags(c.StringSlice("tag")),
		Visibility:  visibility,
	}
	if err := validate.Space(fields); err != nil {
		return fail(err)
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	sp, err := e.client.CreateSpace(c.Context, model.SpaceInput{
		Name:        fields.Name,
		Description: fields.Description,
		Tags:        fields.Tags,
		Visibility:  fields.Visibility,
	})
	if err != nil {
		return fail(err)
	}
	return e.print(sp, "Created space\n"+spaceCard(sp.SpaceSummary))
}

// canonicalTags maps known tags to their taxonomy spelling and keeps the
// rest as typed, so validation can name them.
func canonicalTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if canonical, ok := model.CanonicalTag(t); ok {
			t = canonical
		}
		out = append(out, t)
	}
	return out
}

func spacesMembership(join bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != 1 {
			return usage(c)
		}
		e, err := setup(c)
		if err != nil {
			return err
		}
		defer e.close()

		page := pages.NewSpacePage(e.client, c.Args().First())
		defer page.Close()
		s := page.Mount(c.Context)
		if err := failState(s); err != nil {
			return err
		}

		if join {
			res, err := page.Join(c.Context)
			if err != nil {
				return fail(err)
			}
			return e.print(res, fmt.Sprintf("Joined %s as %s", s.Data.Name, res.Role))
		}
		if err := page.Leave(c.Context); err != nil {
			return fail(err)
		}
		return e.print(map[string]string{"left": s.Data.ID}, "Left "+s.Data.Name)
	}
}

func spacesMembers(c *cli.Context) error {
	if c.NArg() != 1 {
		return usage(c)
	}
	role := model.Role(c.String("role"))
	switch role {
	case "", model.RoleOwner, model.RoleModerator, model.RoleMember:
	default:
		return cli.Exit(fmt.Sprintf("unknown role %q", role), ExitUsageError)
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	sp, err := e.client.Space(c.Context, c.Args().First())
	if err != nil {
		return fail(err)
	}
	limit := c.Int("limit")
	if limit <= 0 {
		limit = e.cfg.Output.PageSize
	}
	list, err := e.client.Members(c.Context, sp.ID, role, c.Int("skip"), limit)
	if err != nil {
		return fail(err)
	}
	return e.print(list, memberList(list.Members, list.Total))
}

func spacesRole(c *cli.Context) error {
	if c.NArg() != 3 {
		return usage(c)
	}
	args := c.Args()
	role := model.Role(args.Get(2))
	if role != model.RoleModerator && role != model.RoleMember {
		return cli.Exit("role must be moderator or member", ExitUsageError)
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	page := pages.NewSpacePage(e.client, args.Get(0))
	defer page.Close()
	s := page.Mount(c.Context)
	if err := failState(s); err != nil {
		return err
	}
	if s.Data.MemberRole == nil || !s.Data.MemberRole.CanManageMembers() {
		return cli.Exit("Only owners and moderators can change roles", ExitNotFound)
	}

	u, err := e.client.User(c.Context, strings.ToLower(args.Get(1)))
	if err != nil {
		return fail(err)
	}
	res, err := e.client.UpdateMemberRole(c.Context, s.Data.ID, u.ID, role)
	if err != nil {
		return fail(err)
	}
	return e.print(res, fmt.Sprintf("@%s is now %s in %s", u.Username, res.Role, s.Data.Name))
}

func spacesMember(c *cli.Context) error {
	if c.NArg() != 2 {
		return usage(c)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	sp, err := e.client.Space(c.Context, c.Args().Get(0))
	if err != nil {
		return fail(err)
	}
	u, err := e.client.User(c.Context, strings.ToLower(c.Args().Get(1)))
	if err != nil {
		return fail(err)
	}
	m, err := e.client.Member(c.Context, sp.ID, u.ID)
	if err != nil {
		return fail(err)
	}
	return e.print(m, memberList([]model.SpaceMember{*m}, 1))
}

func spacesArticles(c *cli.Context) error {
	if c.NArg() != 1 {
		return usage(c)
	}
	actions := 0
	for _, name := range []string{"share", "pin", "unpin", "remove"} {
		if c.IsSet(name) {
			actions++
		}
	}
	if actions > 1 {
		return cli.Exit("use only one of --share, --pin, --unpin and --remove", ExitUsageError)
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	page := pages.NewSpacePage(e.client, c.Args().First())
	defer page.Close()
	s := page.Mount(c.Context)
	if err := failState(s); err != nil {
		return err
	}

	var note string
	switch {
	case c.IsSet("share"):
		sa, err := page.ShareArticle(c.Context, c.String("share"))
		if err != nil {
			return fail(err)
		}
		note = fmt.Sprintf("Shared %q to %s", sa.Article.Title, s.Data.Name)
	case c.IsSet("pin"), c.IsSet("unpin"):
		id, pinned := c.String("pin"), true
		if c.IsSet("unpin") {
			id, pinned = c.String("unpin"), false
		}
		if err := page.SetPinned(c.Context, id, pinned); err != nil {
			return fail(err)
		}
		note = "Unpinned " + id
		if pinned {
			note = "Pinned " + id
		}
	case c.IsSet("remove"):
		if err := page.RemoveArticle(c.Context, c.String("remove")); err != nil {
			return fail(err)
		}
		note = fmt.Sprintf("Removed %s from %s", c.String("remove"), s.Data.Name)
	}

	list := loadPages(c, func(context.Context) resource.State[pages.Listing[model.SpaceArticle]] {
		return page.Articles()
	}, page.LoadMoreArticles)
	if err := failState(list); err != nil {
		return err
	}
	text := sharedArticleList(list.Data.Items, list.Data.Total)
	if note != "" {
		text = note + "\n" + text
	}
	return e.print(listJSON(list.Data), text)
}
