package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
	"github.com/yndnr/regdesk-go/internal/telemetry/metric"
)

// Status is the backend's verdict on a token.
type Status string

// Validation statuses.
const (
	StatusValid     Status = "valid"
	StatusRefreshed Status = "refreshed"
	StatusInvalid   Status = "invalid"
)

// Verdict is the result of one validation round-trip.
// Token is set only when Status is StatusRefreshed.
type Verdict struct {
	Status Status
	Token  string
}

// Validator checks a token against the backend.
//
// A non-nil error means the token's state is unknown (network failure,
// unexpected response). An explicit rejection is a nil error with
// StatusInvalid.
type Validator interface {
	Validate(ctx context.Context, token string) (Verdict, error)
}

// Store is the subset of sessionstore.Store the guard needs.
type Store interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Check outcomes, as logged and counted.
const (
	OutcomeValid      = "valid"
	OutcomeRefreshed  = "refreshed"
	OutcomeAbsent     = "absent"
	OutcomeInvalid    = "invalid"
	OutcomeUnverified = "unverified"
)

// Guard validates the stored session before authenticated work.
type Guard struct {
	store          Store
	validator      Validator
	clearOnInvalid bool
	logger         logger.Logger
	metrics        *metric.Registry
}

// Option configures a Guard.
type Option func(*Guard)

// WithClearOnInvalid clears the store when the backend explicitly rejects
// the token. Network failures never clear it.
func WithClearOnInvalid(clear bool) Option {
	return func(g *Guard) {
		g.clearOnInvalid = clear
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Guard) {
		g.logger = l
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// New creates a Guard.
func New(store Store, validator Validator, opts ...Option) *Guard {
	g := &Guard{
		store:     store,
		validator: validator,
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EnsureValidSession returns nil when the stored session is usable.
//
// Any non-nil error means "do not proceed"; IsInvalid reports true for
// every error it returns. Exactly one validation round-trip is made per
// call, none when no token is stored.
func (g *Guard) EnsureValidSession(ctx context.Context) error {
	token, err := g.store.GetToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSessionAbsent) {
			return g.finish(ctx, OutcomeAbsent, domain.ErrSessionAbsent)
		}
		return g.finish(ctx, OutcomeUnverified, domain.ErrSessionUnverified.WithDetails("read token").WithCause(err))
	}
	if token == "" {
		return g.finish(ctx, OutcomeAbsent, domain.ErrSessionAbsent)
	}

	verdict, err := g.validator.Validate(ctx, token)
	if err != nil {
		return g.finish(ctx, OutcomeUnverified, domain.ErrSessionUnverified.WithCause(err))
	}

	switch verdict.Status {
	case StatusValid:
		return g.finish(ctx, OutcomeValid, nil)

	case StatusRefreshed:
		if verdict.Token == "" {
			return g.finish(ctx, OutcomeInvalid, domain.ErrSessionInvalid.WithDetails("refresh returned no token"))
		}
		if err := g.store.SetToken(ctx, verdict.Token); err != nil {
			return g.finish(ctx, OutcomeUnverified, domain.ErrSessionUnverified.WithDetails("store refreshed token").WithCause(err))
		}
		return g.finish(ctx, OutcomeRefreshed, nil)

	case StatusInvalid:
		if g.clearOnInvalid {
			if err := g.store.ClearToken(ctx); err != nil {
				g.logger.WithContext(ctx).Warn("failed to clear rejected token", "error", err)
			}
		}
		return g.finish(ctx, OutcomeInvalid, domain.ErrSessionInvalid)

	default:
		return g.finish(ctx, OutcomeUnverified,
			domain.ErrSessionUnverified.WithDetails(fmt.Sprintf("unknown validation status %q", verdict.Status)))
	}
}

func (g *Guard) finish(ctx context.Context, outcome string, err error) error {
	g.metrics.RecordSessionCheck(outcome)

	log := g.logger.WithContext(ctx)
	switch outcome {
	case OutcomeValid, OutcomeRefreshed:
		log.Debug("session check passed", "outcome", outcome)
	case OutcomeAbsent:
		log.Debug("session check skipped, no token stored")
	default:
		log.Info("session check failed", "outcome", outcome, "error", err)
	}
	return err
}

// IsInvalid reports whether err is a guard verdict of "do not proceed".
func IsInvalid(err error) bool {
	return errors.Is(err, domain.ErrSessionAbsent) ||
		errors.Is(err, domain.ErrSessionInvalid) ||
		errors.Is(err, domain.ErrSessionUnverified)
}

// IsExpired reports whether the backend explicitly rejected the session
// or none was stored, as opposed to a failed verification.
func IsExpired(err error) bool {
	return errors.Is(err, domain.ErrSessionAbsent) || errors.Is(err, domain.ErrSessionInvalid)
}
