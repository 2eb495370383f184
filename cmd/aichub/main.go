// Command aichub is a terminal client for AIC HUB.
//
// Every command is one request cycle against the API: sign in once with
// "aichub login" and the session cookie is kept in the session file for the
// following runs. Output is styled text, or JSON with --json for scripting.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sakif/aic-hub/internal/config"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
	ExitNotFound     = 4
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the app and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	err := app.Run(args)
	if err == nil {
		return ExitSuccess
	}

	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(stderr, "Error: %s\n", msg)
		}
		return exit.ExitCode()
	}
	// flag parsing and unknown commands
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUsageError
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "aichub",
		Usage:     "Read, write and discuss AI articles on AIC HUB",
		Version:   "0.1.0",
		Writer:    stdout,
		ErrWriter: stderr,
		// run reports errors and picks the exit code
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "API origin, e.g. http://localhost:8080",
				EnvVars: []string{"AICHUB_API_URL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath(),
				Usage:   "Config file path",
				EnvVars: []string{"AICHUB_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Session cookie file",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of styled text",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			signupCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			profileCommand(),
			userCommand(),
			articlesCommand(),
			spacesCommand(),
			feedCommand(),
			trendingCommand(),
			discoverCommand(),
			interactCommand(),
			tagsCommand(),
			importFeedCommand(),
		},
	}
}
