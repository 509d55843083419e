package command

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/yndnr/regdesk-go/internal/cli/config"
	"github.com/yndnr/regdesk-go/internal/cli/output"
	"github.com/yndnr/regdesk-go/internal/client/guard"
	"github.com/yndnr/regdesk-go/internal/client/portal"
	"github.com/yndnr/regdesk-go/internal/client/sessionstore"
	"github.com/yndnr/regdesk-go/internal/client/transport"
	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/infra/buildinfo"
	"github.com/yndnr/regdesk-go/internal/infra/confloader"
	"github.com/yndnr/regdesk-go/internal/infra/shutdown"
	"github.com/yndnr/regdesk-go/internal/infra/tlsroots"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
	"github.com/yndnr/regdesk-go/internal/telemetry/metric"
)

// Streams are the process's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Env holds the dependencies of one CLI run. The session store and the
// portal client are built on first use so commands like "config path"
// never open the store.
type Env struct {
	Config      *config.Config
	ConfigPath  string
	Sources     map[string]confloader.Source
	MetricsFile string
	RunID       string
	Logger      logger.Logger
	Metrics     *metric.Registry
	Streams

	shutdown *shutdown.Handler
	started  time.Time

	mu    sync.Mutex
	store sessionstore.Store
	api   *portal.API
}

// NewEnv builds the logger and metrics for cfg.
func NewEnv(cfg *config.Config, streams Streams) (*Env, error) {
	if streams.In == nil {
		streams.In = os.Stdin
	}
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: streams.Err,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)

	runID, err := domain.NewRunID()
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:   cfg,
		RunID:    runID,
		Logger:   log,
		Metrics:  metric.NewRegistry(),
		Streams:  streams,
		shutdown: shutdown.NewHandler(shutdown.DefaultTimeout),
		started:  time.Now(),
	}
	env.shutdown.OnShutdown(func(context.Context) error {
		if env.MetricsFile == "" {
			return nil
		}
		return env.Metrics.WriteToTextfile(env.MetricsFile)
	})
	return env, nil
}

// API returns the portal client, opening the session store on first use.
func (e *Env) API(ctx context.Context) (*portal.API, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.api != nil {
		return e.api, nil
	}

	store, err := sessionstore.Open(ctx, e.Config.Session, logger.Component(e.Logger, "sessionstore"))
	if err != nil {
		return nil, err
	}
	// Hooks run in reverse order: the store closes before metrics are written.
	e.shutdown.OnShutdown(func(context.Context) error { return store.Close() })

	opts := []transport.Option{
		transport.WithUserAgent(buildinfo.UserAgent()),
		transport.WithLogger(logger.Component(e.Logger, "transport")),
		transport.WithMetrics(e.Metrics),
		transport.WithRateLimit(e.Config.RateLimit.RPS, e.Config.RateLimit.Burst),
	}
	if !e.Config.TLS.IsZero() {
		tr, err := tlsroots.HTTPTransport(e.Config.TLS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithHTTPClient(&http.Client{Transport: tr}))
	}
	// Timeout goes last so it applies to a replaced http.Client too.
	opts = append(opts, transport.WithTimeout(e.Config.Timeout))

	client := transport.New(e.Config.Server, store, opts...)
	g := guard.New(store, guard.NewHTTPValidator(client),
		guard.WithClearOnInvalid(true),
		guard.WithLogger(logger.Component(e.Logger, "guard")),
		guard.WithMetrics(e.Metrics),
	)

	e.store = store
	e.api = portal.New(client, store, g, logger.Component(e.Logger, "portal"))
	return e.api, nil
}

// Print writes data in the configured output format.
func (e *Env) Print(data any) error {
	format, err := output.ParseFormat(e.Config.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(e.Out, data)
}

// Table reports whether output is the human-readable table format.
func (e *Env) Table() bool {
	format, _ := output.ParseFormat(e.Config.Output)
	return format == output.FormatTable
}

// Spinner returns a spinner on stderr when it is a terminal, nil otherwise.
func (e *Env) Spinner(message string) *output.Spinner {
	f, ok := e.Err.(*os.File)
	if !ok || !output.IsTerminal(f) {
		return nil
	}
	return output.NewSpinner(f, message)
}

// withSpinner runs fn behind a terminal spinner when one is available.
func (e *Env) withSpinner(message string, fn func() error) error {
	s := e.Spinner(message)
	if s == nil {
		return fn()
	}
	s.Start()
	err := fn()
	s.Stop()
	return err
}

// Context tags ctx with the run's logger and ID.
func (e *Env) Context(ctx context.Context) context.Context {
	ctx = logger.WithLogger(ctx, e.Logger)
	return logger.WithRunID(ctx, e.RunID)
}

// Close runs the shutdown hooks once.
func (e *Env) Close() error {
	err := e.shutdown.Run()
	e.Logger.Debug("run finished", "run_id", e.RunID, "duration", time.Since(e.started), "error", err)
	return err
}
