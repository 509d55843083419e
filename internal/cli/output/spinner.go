package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultSpinnerInterval is the delay between frames.
const DefaultSpinnerInterval = 100 * time.Millisecond

// Spinner displays a progress animation while a backend call runs.
type Spinner struct {
	w        io.Writer
	message  string
	frames   []string
	interval time.Duration

	mu       sync.Mutex
	done     chan struct{}
	exited   chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewSpinner creates a new spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		frames:   []string{"|", "/", "-", "\\"},
		interval: DefaultSpinnerInterval,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Start starts the spinner animation. Calling Start twice has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.exited)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		i := 0
		for {
			s.frame(i)
			i++
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) frame(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
}

// stop ends the animation and waits for the last frame to be written.
// It is safe to call more than once and before Start.
func (s *Spinner) stop() bool {
	first := false
	s.stopOnce.Do(func() {
		first = true
		close(s.done)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.exited
		}
	})
	return first
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	if s.stop() {
		s.write("\r\033[K")
	}
}

// Success stops the spinner with a success message.
func (s *Spinner) Success(message string) {
	if s.stop() {
		s.write(fmt.Sprintf("\r\033[Kok %s\n", message))
	}
}

// Fail stops the spinner with a failure message.
func (s *Spinner) Fail(message string) {
	if s.stop() {
		s.write(fmt.Sprintf("\r\033[Kfailed %s\n", message))
	}
}

func (s *Spinner) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.w, text)
}
