package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regdesk-go/internal/cli/output"
	"github.com/yndnr/regdesk-go/internal/cli/repl"
	"github.com/yndnr/regdesk-go/internal/client/uniqcheck"
	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

// ErrRegistrationBlocked is returned when a verified duplicate was found.
var ErrRegistrationBlocked = errors.New("registration blocked by duplicate fields")

const registerHelp = `Enter one field per line:
  id <id number>
  first <name> | middle <name> | last <name>
  status      show the current checks
  submit      finish (also on end of input)
  history     show what you typed
`

// RegisterCommand returns the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Enter registration fields; duplicates are checked as you type",
		Description: "Reads lines like \"id 2024000123\" or \"first Ana\" from stdin. Each line is an\n" +
			"edit to the form; ID number and full name are checked against the backend once\n" +
			"input settles for the check window.",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "window",
				Usage: "Debounce window (overrides check.window)",
			},
		},
		Action: register,
	}
}

// fieldTracker records the last state printed per field.
type fieldTracker struct {
	mu      sync.Mutex
	states  map[domain.FieldKind]uniqcheck.State
	changed chan struct{}
}

func newFieldTracker() *fieldTracker {
	return &fieldTracker{
		states:  make(map[domain.FieldKind]uniqcheck.State),
		changed: make(chan struct{}, 1),
	}
}

func (t *fieldTracker) set(field domain.FieldKind, state uniqcheck.State) {
	t.mu.Lock()
	t.states[field] = state
	t.mu.Unlock()
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

func (t *fieldTracker) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.states {
		if s == uniqcheck.StatePending {
			return true
		}
	}
	return false
}

// wait blocks until no field is pending.
func (t *fieldTracker) wait(ctx context.Context, limit time.Duration) error {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	for t.pending() {
		select {
		case <-t.changed:
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.New("timed out waiting for duplicate checks")
		}
	}
	return nil
}

type registrationView struct {
	IDNumber   string                      `json:"id_number"`
	FullName   string                      `json:"full_name"`
	Errors     map[domain.FieldKind]string `json:"errors,omitempty"`
	Unverified []domain.FieldKind          `json:"unverified,omitempty"`
	Blocked    bool                        `json:"blocked"`
}

func register(c *cli.Context) error {
	env, err := GetEnv(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	api, err := env.API(ctx)
	if err != nil {
		return err
	}

	window := env.Config.Check.Window
	if c.IsSet("window") {
		window = c.Duration("window")
	}
	checkCfg := uniqcheck.Config{
		Window:  window,
		Logger:  logger.Component(env.Logger, "uniqcheck"),
		Metrics: env.Metrics,
	}
	form := uniqcheck.NewRegistrationForm(api, uniqcheck.FormConfig{
		Config:      checkCfg,
		MinIDLength: env.Config.Check.MinIDLength,
	})
	defer form.Close()

	prompt := ""
	if f, ok := env.In.(*os.File); ok && output.IsTerminal(f) {
		prompt = "register> "
		fmt.Fprint(env.Out, registerHelp)
	}

	tracker := newFieldTracker()
	var loop *repl.REPL
	loop = repl.New(env.In, env.Out, func(cmd, arg string) error {
		switch cmd {
		case "id":
			return form.SetIDNumber(arg)
		case "first":
			return form.SetFirstName(arg)
		case "middle":
			return form.SetMiddleName(arg)
		case "last":
			return form.SetLastName(arg)
		case "status":
			loop.Printf("%s", formStatus(form))
			return nil
		case "submit":
			return repl.ErrQuit
		case "help":
			loop.Printf("%s", registerHelp)
			return nil
		default:
			return repl.ErrUnknownCommand
		}
	}, repl.WithPrompt(prompt), repl.WithCommands("id", "first", "middle", "last", "status", "submit", "help"))

	form.OnFieldChange(func(ev uniqcheck.FieldEvent) {
		if ev.State == uniqcheck.StateResolved {
			if ev.Message != "" {
				loop.Printf("%s: %s\n", ev.Field, ev.Message)
			} else {
				loop.Printf("%s: ok\n", ev.Field)
			}
		}
		tracker.set(ev.Field, ev.State)
	})

	if err := loop.Run(); err != nil {
		return err
	}

	limit := window + uniqcheck.DefaultQueryTimeout + time.Second
	if err := tracker.wait(ctx, limit); err != nil {
		return err
	}

	// Every listener call has finished once nothing is pending, so the
	// summary can be written directly.
	view := summarize(form)
	logger.L(ctx).Debug("registration checks finished",
		"blocked", view.Blocked, "unverified", len(view.Unverified))
	if !env.Table() {
		if err := env.Print(view); err != nil {
			return err
		}
	} else {
		switch {
		case view.Blocked:
			for _, field := range []domain.FieldKind{domain.FieldIDNumber, domain.FieldFullName} {
				if msg, ok := view.Errors[field]; ok {
					fmt.Fprintf(env.Out, "error: %s: %s\n", field, msg)
				}
			}
		case len(view.Unverified) > 0:
			fmt.Fprintf(env.Out, "No duplicates found (not verified: %v)\n", view.Unverified)
		default:
			fmt.Fprintln(env.Out, "No duplicates found")
		}
	}

	if view.Blocked {
		return ErrRegistrationBlocked
	}
	return nil
}

func summarize(form *uniqcheck.RegistrationForm) registrationView {
	id := form.IDNumber()
	name := form.FullName()

	view := registrationView{
		IDNumber: domain.NormalizeIDNumber(id.Input),
		FullName: name.Input.String(),
		Errors:   form.Errors(),
		Blocked:  form.Blocked(),
	}
	if id.State == uniqcheck.StateResolved && !id.Result.Verified {
		view.Unverified = append(view.Unverified, domain.FieldIDNumber)
	}
	if name.State == uniqcheck.StateResolved && !name.Result.Verified {
		view.Unverified = append(view.Unverified, domain.FieldFullName)
	}
	return view
}

// formStatus renders both checkers as a table.
func formStatus(form *uniqcheck.RegistrationForm) string {
	errs := form.Errors()
	id := form.IDNumber()
	name := form.FullName()

	table := &output.Table{}
	table.SetHeaders("FIELD", "VALUE", "STATE", "MESSAGE")
	table.AddRow(string(domain.FieldIDNumber), orDash(domain.NormalizeIDNumber(id.Input)),
		stateLabel(id.State, id.Result), orDash(errs[domain.FieldIDNumber]))
	table.AddRow(string(domain.FieldFullName), orDash(name.Input.String()),
		stateLabel(name.State, name.Result), orDash(errs[domain.FieldFullName]))

	var buf bytes.Buffer
	table.Render(&buf)
	return buf.String()
}

func stateLabel(s uniqcheck.State, r domain.CheckResult) string {
	if s == uniqcheck.StateResolved && !r.Verified {
		return "unverified"
	}
	return s.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
