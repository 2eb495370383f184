package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sakif/aic-hub/internal/api"
	"github.com/sakif/aic-hub/internal/apperror"
	"github.com/sakif/aic-hub/internal/authoring"
	"github.com/sakif/aic-hub/internal/config"
	"github.com/sakif/aic-hub/internal/hooks"
	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/resource"
	"github.com/sakif/aic-hub/internal/session"
)

// env is everything a command needs for one run.
type env struct {
	cfg     *config.Config
	out     io.Writer
	json    bool
	logger  *slog.Logger
	jar     *api.FileJar
	client  *api.Client
	hooks   *hooks.Hooks
	session *session.Service
}

// setup loads the config, applies the global flags and opens the session.
// Callers must defer close so cookie changes reach the session file.
func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitUsageError)
	}
	if c.IsSet("api") {
		cfg.API.URL = c.String("api")
	}
	if c.IsSet("session") {
		cfg.Session.File = c.String("session")
	}
	if c.IsSet("log-level") {
		cfg.Output.LogLevel = c.String("log-level")
	}
	if c.Bool("json") {
		cfg.Output.JSON = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(err.Error(), ExitUsageError)
	}

	level, _ := config.ParseLevel(cfg.Output.LogLevel)
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

	origin, err := url.Parse(cfg.API.URL)
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitUsageError)
	}
	jar, err := api.OpenFileJar(cfg.Session.File, origin)
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitGeneralError)
	}
	client, err := api.New(cfg.API.URL,
		api.WithJar(jar),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitUsageError)
	}

	h := hooks.New(client, logger)
	return &env{
		cfg:     cfg,
		out:     c.App.Writer,
		json:    cfg.Output.JSON,
		logger:  logger,
		jar:     jar,
		client:  client,
		hooks:   h,
		session: session.NewService(client, h, logger),
	}, nil
}

func (e *env) close() {
	if err := e.jar.Save(); err != nil {
		e.logger.Warn("saving session failed", slog.String("error", err.Error()))
	}
}

// currentUser returns the signed-in user; no session is exit code 4.
func (e *env) currentUser(ctx context.Context, fresh bool) (*model.PrivateProfile, error) {
	get := e.hooks.CurrentUser
	if fresh {
		get = e.hooks.RevalidateCurrentUser
	}
	me, err := get(ctx)
	if err != nil {
		return nil, fail(err)
	}
	if me == nil {
		return nil, cli.Exit("Not signed in (run: aichub login)", ExitNotFound)
	}
	return me, nil
}

// print writes v as indented JSON in --json mode, otherwise the text.
func (e *env) print(v any, text string) error {
	if e.json {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(e.out, text)
	return err
}

// fail maps a client error onto a message and an exit code.
func fail(err error) error {
	if err == nil {
		return nil
	}

	var submit *authoring.SubmitError
	if errors.As(err, &submit) {
		return cli.Exit(authoring.FailureMessage, ExitGeneralError)
	}

	var verrs apperror.ValidationErrors
	if errors.As(err, &verrs) {
		return cli.Exit(formatValidation(verrs), ExitDataError)
	}

	switch apperror.StatusOf(err) {
	case 0:
	case http.StatusBadRequest, http.StatusConflict:
		return cli.Exit(apperror.UserMessage(err), ExitDataError)
	case http.StatusUnauthorized:
		return cli.Exit(apperror.UserMessage(err)+" (run: aichub login)", ExitNotFound)
	case http.StatusForbidden, http.StatusNotFound:
		return cli.Exit(apperror.UserMessage(err), ExitNotFound)
	default:
		return cli.Exit(apperror.UserMessage(err), ExitGeneralError)
	}

	return cli.Exit(apperror.UserMessage(err), ExitGeneralError)
}

// failState reports a failed page load.
func failState[T any](s resource.State[T]) error {
	if s.Phase != resource.Failed {
		return nil
	}
	if s.Err != nil {
		return fail(s.Err)
	}
	return cli.Exit(s.Message, ExitGeneralError)
}

func formatValidation(v apperror.ValidationErrors) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("Please fix the following:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, v[k])
	}
	return b.String()
}

func usage(c *cli.Context) error {
	return cli.Exit(fmt.Sprintf("Usage: %s %s", c.Command.HelpName, c.Command.ArgsUsage), ExitUsageError)
}
