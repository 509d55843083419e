// Package domain defines the core domain models for the RegDesk client.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Session: the login token and the subject it was issued for
//   - Check: duplicate-check field kinds, snapshots and results
//   - Errors: structured error codes shared by every client package
//   - Request IDs: ULID-based correlation IDs for outgoing calls
package domain
