package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrQuit may be returned by a Handler to end the loop without error.
var ErrQuit = errors.New("quit")

// Handler executes one command line. cmd is the first word, arg the
// remainder with surrounding whitespace removed.
type Handler func(cmd, arg string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	handler   Handler
	completer *Completer
	history   *History

	// outMu serialises writes from the loop and from Printf, which
	// callers use from other goroutines (checker notifications).
	outMu sync.Mutex
}

// Option configures a REPL.
type Option func(*REPL)

// WithPrompt sets the prompt printed before each line. Empty disables it.
func WithPrompt(p string) Option {
	return func(r *REPL) { r.prompt = p }
}

// WithCommands sets the words offered by the completer.
func WithCommands(cmds ...string) Option {
	return func(r *REPL) { r.completer = NewCompleter(cmds...) }
}

// New creates a REPL reading from in and writing to out.
func New(in io.Reader, out io.Writer, handler Handler, opts ...Option) *REPL {
	r := &REPL{
		input:     in,
		output:    out,
		prompt:    "> ",
		handler:   handler,
		completer: NewCompleter(),
		history:   NewHistory(DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns the entered lines.
func (r *REPL) History() *History {
	return r.history
}

// Printf writes to the REPL output. Safe for concurrent use.
func (r *REPL) Printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.output, format, args...)
}

// Run starts the REPL loop. It returns nil on EOF, "exit" or "quit", or
// when the handler returns ErrQuit. Other handler errors are printed and
// the loop continues.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		if r.prompt != "" {
			r.Printf("%s", r.prompt)
		}

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				return nil
			}
			continue
		}
		r.history.Add(line)

		if done, err := r.execute(line); done || err != nil {
			return err
		}
		if eof {
			return nil
		}
	}
}

// execute reports done=true when the loop should stop.
func (r *REPL) execute(line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	cmd = strings.ToLower(cmd)
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "exit", "quit":
		return true, nil
	case "history":
		for i, entry := range r.history.Entries() {
			r.Printf("%4d  %s\n", i+1, entry)
		}
		return false, nil
	}

	if r.handler == nil {
		return false, nil
	}
	err := r.handler(cmd, arg)
	switch {
	case err == nil:
	case errors.Is(err, ErrQuit):
		return true, nil
	case errors.Is(err, ErrUnknownCommand):
		msg := fmt.Sprintf("unknown command %q", cmd)
		if s := r.completer.Complete(cmd); len(s) > 0 {
			msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(s, ", "))
		}
		r.Printf("Error: %s\n", msg)
	default:
		r.Printf("Error: %v\n", err)
	}
	return false, nil
}

// ErrUnknownCommand is returned by a Handler for words it does not know.
var ErrUnknownCommand = errors.New("unknown command")
