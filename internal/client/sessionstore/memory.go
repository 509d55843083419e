package sessionstore

import (
	"context"
	"sync"

	"github.com/yndnr/regdesk-go/internal/core/domain"
)

// Memory is an in-process Store. It does not survive a restart.
type Memory struct {
	mu      sync.RWMutex
	token   string
	subject domain.Subject
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// SetToken replaces the stored token.
func (m *Memory) SetToken(_ context.Context, token string) error {
	if token == "" {
		return domain.ErrTokenEmpty
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// GetToken returns the stored token.
func (m *Memory) GetToken(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", domain.ErrSessionAbsent
	}
	return m.token, nil
}

// ClearToken removes the token and subject.
func (m *Memory) ClearToken(_ context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.subject = domain.Subject{}
	m.mu.Unlock()
	return nil
}

// HasToken reports whether a token is stored.
func (m *Memory) HasToken(ctx context.Context) (bool, error) {
	return hasToken(ctx, m)
}

// SetSubject stores the subject of the current session.
func (m *Memory) SetSubject(_ context.Context, subject domain.Subject) error {
	m.mu.Lock()
	m.subject = subject
	m.mu.Unlock()
	return nil
}

// GetSubject returns the subject of the current session.
func (m *Memory) GetSubject(_ context.Context) (domain.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.subject.IsZero() {
		return domain.Subject{}, domain.ErrSubjectAbsent
	}
	return m.subject, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
