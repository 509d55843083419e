package uniqcheck

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
	"github.com/yndnr/regdesk-go/internal/telemetry/metric"
)

// DefaultWindow is the quiet period before a lookup is issued.
const DefaultWindow = 500 * time.Millisecond

// DefaultQueryTimeout bounds one lookup.
const DefaultQueryTimeout = 10 * time.Second

// State is the checker's visible state.
type State int

const (
	StateIdle State = iota
	StatePending
	StateResolved
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Query reports whether a record matching input already exists.
type Query[T comparable] func(ctx context.Context, input T) (bool, error)

// View is a consistent copy of the checker's state.
// Result is meaningful only when State is StateResolved.
type View[T comparable] struct {
	State  State
	Input  T
	Result domain.CheckResult
}

// Config tunes a Checker. Zero values select the defaults.
type Config struct {
	Window       time.Duration
	QueryTimeout time.Duration
	Clock        Clock
	Logger       logger.Logger
	Metrics      *metric.Registry
}

// Checker debounces lookups for one field.
type Checker[T comparable] struct {
	kind    domain.FieldKind
	gate    func(T) bool
	query   Query[T]
	window  time.Duration
	timeout time.Duration
	clock   Clock
	logger  logger.Logger
	metrics *metric.Registry

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	gen    uint64
	seq    uint64
	view   View[T]
	timer  Timer
	closed bool

	// notifyMu serialises listener calls; lastSeq drops notifications
	// that were overtaken by a newer state. muted is set by Close.
	notifyMu sync.Mutex
	lastSeq  uint64
	muted    bool
	listener func(View[T])
}

// New creates a checker for kind. A nil gate accepts every input.
func New[T comparable](kind domain.FieldKind, gate func(T) bool, query Query[T], cfg Config) *Checker[T] {
	if gate == nil {
		gate = func(T) bool { return true }
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Checker[T]{
		kind:    kind,
		gate:    gate,
		query:   query,
		window:  cfg.Window,
		timeout: cfg.QueryTimeout,
		clock:   cfg.Clock,
		logger:  cfg.Logger.With("field", string(kind)),
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnChange registers fn to receive every visible state change.
// fn must not call back into the checker.
func (c *Checker[T]) OnChange(fn func(View[T])) {
	c.notifyMu.Lock()
	c.listener = fn
	c.notifyMu.Unlock()
}

// Kind returns the field this checker serves.
func (c *Checker[T]) Kind() domain.FieldKind {
	return c.kind
}

// Update records a new input value.
//
// Input that fails the gate moves the checker to Idle at once. Otherwise
// the checker becomes Pending and a lookup is scheduled for when no newer
// input has arrived for the window. Repeating the current input is a no-op.
func (c *Checker[T]) Update(input T) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrCheckerClosed
	}
	if c.view.Input == input && c.view.State != StateIdle {
		c.mu.Unlock()
		return nil
	}

	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if !c.gate(input) {
		wasIdle := c.view.State == StateIdle
		c.view = View[T]{State: StateIdle, Input: input}
		if wasIdle {
			c.mu.Unlock()
			return nil
		}
		view, seq := c.commitLocked()
		c.mu.Unlock()
		c.notify(view, seq)
		return nil
	}

	c.view = View[T]{State: StatePending, Input: input}
	c.timer = c.clock.AfterFunc(c.window, func() { c.fire(gen) })
	view, seq := c.commitLocked()
	c.mu.Unlock()

	c.notify(view, seq)
	return nil
}

// Current returns the checker's state.
func (c *Checker[T]) Current() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Close stops any pending timer and drops results that arrive later.
// Once Close returns the listener is not called again.
func (c *Checker[T]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
	c.mu.Unlock()

	// Waits for a listener call already in progress.
	c.notifyMu.Lock()
	c.muted = true
	c.notifyMu.Unlock()
	return nil
}

// fire runs the lookup for generation gen once its window has elapsed.
func (c *Checker[T]) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	input := c.view.Input
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	exists, err := c.query(ctx, input)
	cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if gen != c.gen {
		c.mu.Unlock()
		c.metrics.RecordStaleResult(string(c.kind))
		c.logger.Debug("discarding stale duplicate check result", "generation", gen)
		return
	}

	result := domain.CheckResult{Kind: c.kind, Exists: exists, Verified: true}
	outcome := "unique"
	if err != nil {
		result = domain.Unverified(c.kind)
		outcome = "failed"
	} else if exists {
		outcome = "exists"
	}

	c.view.State = StateResolved
	c.view.Result = result
	view, seq := c.commitLocked()
	c.mu.Unlock()

	c.metrics.RecordUniquenessQuery(string(c.kind), outcome)
	if err != nil {
		c.logger.Warn("duplicate check failed, allowing input", "error", err)
	} else {
		c.logger.Debug("duplicate check resolved", "exists", exists)
	}

	c.notify(view, seq)
}

// commitLocked stamps a state change. Caller holds c.mu.
func (c *Checker[T]) commitLocked() (View[T], uint64) {
	c.seq++
	return c.view, c.seq
}

func (c *Checker[T]) notify(view View[T], seq uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if c.muted {
		return
	}
	if seq <= c.lastSeq || c.listener == nil {
		if seq > c.lastSeq {
			c.lastSeq = seq
		}
		return
	}
	c.lastSeq = seq
	c.listener(view)
}
