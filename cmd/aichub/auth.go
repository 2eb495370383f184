package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/pages"
	"github.com/sakif/aic-hub/internal/session"
)

func passwordFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "password",
		Aliases: []string{"p"},
		Usage:   "Account password",
		EnvVars: []string{"AICHUB_PASSWORD"},
	}
}

// signedIn prints the outcome of a successful session flow.
func (e *env) signedIn(res *session.Result) error {
	text := fmt.Sprintf("Signed in as %s", byline(model.UserSummary{
		ID: res.User.ID, Username: res.User.Username, DisplayName: res.User.DisplayName,
	}))
	if res.Redirect == session.PathWelcome {
		text += "\nWelcome! Pick your permanent username with: aichub profile edit --username <name>"
	}
	return e.print(struct {
		User     *model.PrivateProfile `json:"user"`
		Redirect string                `json:"redirect"`
	}{res.User, res.Redirect}, text)
}

func signupCommand() *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account with email and password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Email address"},
			passwordFlag(),
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			res, err := e.session.Signup(c.Context, c.String("email"), c.String("password"), c.String("name"))
			if err != nil {
				return fail(err)
			}
			return e.signedIn(res)
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with email and password, or with GitHub",
		Description: `With --github the command prints the GitHub authorization URL. After
approving, copy the code and state parameters from the callback URL and run
"aichub login --code <code> --state <state>" to finish.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address"},
			passwordFlag(),
			&cli.StringFlag{Name: "next", Usage: "Path to continue to after signing in"},
			&cli.BoolFlag{Name: "github", Usage: "Start a GitHub sign-in"},
			&cli.StringFlag{Name: "code", Usage: "GitHub callback code"},
			&cli.StringFlag{Name: "state", Usage: "GitHub callback state"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			switch {
			case c.Bool("github"):
				authorize, err := e.session.StartGitHub(c.Context)
				if err != nil {
					return fail(err)
				}
				return e.print(map[string]string{"authorizeUrl": authorize},
					"Open this URL to sign in with GitHub:\n  "+authorize+
						"\nThen run: aichub login --code <code> --state <state>")

			case c.IsSet("code") || c.IsSet("state"):
				res, err := e.session.CompleteGitHub(c.Context, c.String("code"), c.String("state"))
				if err != nil {
					return fail(err)
				}
				return e.signedIn(res)
			}

			if c.String("email") == "" {
				return cli.Exit("--email is required (or use --github)", ExitUsageError)
			}
			res, err := e.session.Login(c.Context, c.String("email"), c.String("password"), c.String("next"))
			if err != nil {
				return fail(err)
			}
			return e.signedIn(res)
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the session",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			_, err = e.session.Logout(c.Context)
			// the local cookie goes regardless
			if cerr := e.jar.Clear(); cerr != nil {
				return cli.Exit(cerr.Error(), ExitGeneralError)
			}
			if err != nil {
				e.logger.Warn("server logout failed", "error", err)
			}
			return e.print(map[string]bool{"signedOut": true}, "Signed out")
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			me, err := e.currentUser(c.Context, false)
			if err != nil {
				return err
			}
			return e.print(me, privateProfileCard(me))
		},
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show or edit your profile",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show your profile",
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.close()

					me, err := e.currentUser(c.Context, true)
					if err != nil {
						return err
					}
					return e.print(me, privateProfileCard(me))
				},
			},
			{
				Name:  "edit",
				Usage: "Change profile fields",
				Description: `The username can be chosen once. It is normalized to lowercase
letters, digits, hyphens and underscores, and cannot be changed afterwards.
Each --tag toggles one expertise tag.`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.StringFlag{Name: "username", Usage: "Permanent username"},
					&cli.StringFlag{Name: "bio", Usage: "Short bio"},
					&cli.StringFlag{Name: "company", Usage: "Company"},
					&cli.StringFlag{Name: "location", Usage: "Location"},
					&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Toggle an expertise tag"},
				},
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.close()

					editor := session.NewProfileEditor(e.client, e.hooks, e.logger)
					if _, err := editor.Load(c.Context); err != nil {
						return fail(err)
					}
					if c.IsSet("name") {
						editor.DisplayName = c.String("name")
					}
					if c.IsSet("username") {
						editor.SetUsername(c.String("username"))
					}
					if c.IsSet("bio") {
						editor.Bio = c.String("bio")
					}
					if c.IsSet("company") {
						editor.Company = c.String("company")
					}
					if c.IsSet("location") {
						editor.Location = c.String("location")
					}
					for _, t := range c.StringSlice("tag") {
						editor.ToggleExpertise(t)
					}

					saved, err := editor.Save(c.Context)
					if err != nil {
						return fail(err)
					}
					return e.print(saved, privateProfileCard(saved))
				},
			},
		},
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:      "user",
		Usage:     "Show a public profile and the user's articles",
		ArgsUsage: "<username>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usage(c)
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			page := pages.NewProfilePage(e.hooks, e.client, strings.ToLower(c.Args().First()))
			defer page.Close()
			s := page.Mount(c.Context)
			if err := failState(s); err != nil {
				return err
			}
			arts := page.Articles()
			text := profileCard(s.Data)
			if len(arts.Data.Items) > 0 {
				text += "\n" + articleList(arts.Data.Items, arts.Data.Total)
			}
			return e.print(struct {
				Profile  *model.PublicProfile   `json:"profile"`
				Articles []model.ArticleSummary `json:"articles"`
			}{s.Data, arts.Data.Items}, text)
		},
	}
}
