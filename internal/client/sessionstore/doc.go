// Package sessionstore holds the client's current session token.
//
// It is the single source of truth for the token: every component reads
// it fresh at the point of use and never caches it across a network call.
//
//   - store.go: Store interface, Config and the Open factory
//   - memory.go: in-process store (tests, one-shot commands)
//   - badger.go: durable store that survives restarts (default)
//   - redis.go: shared store for kiosk deployments
//   - seal.go: token sealing at rest (ChaCha20-Poly1305)
//
// A token is always replaced with a single write, so a concurrent reader
// sees either the old token or the new one, never a partial value.
package sessionstore
