package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/99minutos/session-client/internal/api/guard"
	"github.com/99minutos/session-client/internal/app"
	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/infrastructure/config"
	"github.com/99minutos/session-client/pkg/logger"
)

const expiredNotice = "Your session has expired. Please log in again with `sessionctl login`."

// cli carries what every subcommand shares.
type cli struct {
	env      envconfig.Lookuper
	logLevel string
	surfaces guard.Surfaces
}

// NewRootCmd creates the root command reading configuration from the
// process environment.
func NewRootCmd() *cobra.Command {
	return newRootCmd(envconfig.OsLookuper())
}

func newRootCmd(env envconfig.Lookuper) *cobra.Command {
	c := &cli{
		env:      env,
		surfaces: guard.Public("login", "register", "status"),
	}

	cmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "Manage the local auth session",
		Long: `sessionctl signs in to the auth API and keeps the session on this
machine, restoring and revalidating it on every run.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(c.newLoginCmd())
	cmd.AddCommand(c.newRegisterCmd())
	cmd.AddCommand(c.newLogoutCmd())
	cmd.AddCommand(c.newWhoamiCmd())
	cmd.AddCommand(c.newProfileCmd())
	cmd.AddCommand(c.newPasswordCmd())
	cmd.AddCommand(c.newStatusCmd())

	return cmd
}

// withApp builds the client for one command run and closes it afterwards.
// With startSession the stored session is restored before fn runs.
func (c *cli) withApp(cmd *cobra.Command, startSession bool, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadFrom(ctx, c.env)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger.Init(logger.Options{Level: level, Pretty: cfg.IsDevelopment(), Output: cmd.ErrOrStderr()})

	name := cmd.Name()
	a, err := app.New(ctx, cfg, logger.For("sessionctl"), app.WithForcedLogoutHook(func(domain.Invalidation) {
		if !c.surfaces.IsPublic(name) {
			cmd.PrintErrln(expiredNotice)
		}
	}))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if startSession {
		a.Session.Start(ctx)
		select {
		case <-a.Session.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fn(ctx, a)
}

// guarded runs h behind mws and turns guard errors into instructions.
func guarded(ctx context.Context, h guard.Handler, mws ...guard.Middleware) error {
	err := guard.Chain(h, mws...)(ctx)
	if errors.Is(err, guard.ErrLoginRequired) {
		return fmt.Errorf("%w: run `sessionctl login`", err)
	}
	return err
}

func describe(u domain.User) string {
	return fmt.Sprintf("%s (%s)", u.DisplayName(), u.Role)
}
