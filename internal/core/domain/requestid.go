package domain

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// RequestIDPrefix is the prefix for outgoing request IDs.
	RequestIDPrefix = "rdrq-"
	// RunIDPrefix is the prefix for CLI invocation IDs.
	RunIDPrefix = "rdrun-"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRequestID generates a correlation ID for an outgoing call.
// Format: rdrq-{ulid_lowercase}.
func NewRequestID() (string, error) {
	return newID(RequestIDPrefix)
}

// NewRunID generates the ID shared by every call of one CLI invocation.
func NewRunID() (string, error) {
	return newID(RunIDPrefix)
}

func newID(prefix string) (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return prefix + strings.ToLower(id.String()), nil
}

// IsRequestID reports whether s looks like an ID from NewRequestID.
func IsRequestID(s string) bool {
	if !strings.HasPrefix(s, RequestIDPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(s, RequestIDPrefix)))
	return err == nil
}
