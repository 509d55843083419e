// Package logger is the structured logger used by every regdesk component.
//
// It wraps log/slog behind the Logger interface. Attributes whose key or
// value looks like a credential (session tokens, passwords, seal keys) are
// masked before they reach the handler. Context helpers carry the run and
// request IDs so all lines of one CLI invocation can be correlated.
package logger
