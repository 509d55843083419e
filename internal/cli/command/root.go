package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regdesk-go/internal/cli/config"
	"github.com/yndnr/regdesk-go/internal/client/guard"
	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/infra/buildinfo"
)

const envKey = "env"

var (
	// ErrSessionExpired is shown when the stored session is missing or
	// rejected by the backend.
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "regdesk-cli",
		Usage:   "Registrar portal client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			SessionCommand(),
			CallCommand(),
			CheckCommand(),
			RegisterCommand(),
			ConfigCommand(),
		},
		Metadata: make(map[string]any),
		Before:   setup,
		After:    teardown,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Backend base URL (e.g., https://registrar.example.edu)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path",
			EnvVars: []string{config.EnvConfigPath},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write client metrics to this file on exit (Prometheus text format)",
		},
	}
}

// flagOverrides maps explicitly set global flags onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if c.IsSet("server") {
		overrides["server"] = c.String("server")
	}
	if c.IsSet("output") {
		overrides["output"] = c.String("output")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	if c.IsSet("timeout") {
		overrides["timeout"] = c.Duration("timeout").String()
	}
	return overrides
}

func setup(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, sources, err := config.LoadWithSources(path, flagOverrides(c))
	if err != nil {
		return err
	}

	env, err := NewEnv(cfg, Streams{In: c.App.Reader, Out: c.App.Writer, Err: c.App.ErrWriter})
	if err != nil {
		return err
	}
	env.ConfigPath = path
	env.Sources = sources
	env.MetricsFile = c.String("metrics-file")

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[envKey] = env
	return nil
}

func teardown(c *cli.Context) error {
	env, ok := c.App.Metadata[envKey].(*Env)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, envKey)
	return env.Close()
}

// GetEnv retrieves the per-run environment from context.
func GetEnv(c *cli.Context) (*Env, error) {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env, nil
	}
	return nil, errors.New("command environment not initialised")
}

// commandContext returns the context for backend calls.
func commandContext(c *cli.Context) context.Context {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if env, err := GetEnv(c); err == nil {
		ctx = env.Context(ctx)
	}
	return ctx
}

// sessionError turns guard verdicts into the messages users act on.
func sessionError(err error) error {
	switch {
	case err == nil:
		return nil
	case guard.IsExpired(err):
		return ErrSessionExpired
	case guard.IsInvalid(err):
		return fmt.Errorf("could not verify session: %w", err)
	default:
		return err
	}
}

// Exit statuses beyond 0 and 1.
const (
	ExitSessionExpired = 2
	ExitUsage          = 64
)

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrSessionExpired):
		return ExitSessionExpired
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidConfig):
		return ExitUsage
	default:
		return 1
	}
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
