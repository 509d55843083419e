// Package transport is the single place where the client talks HTTP to
// the registrar backend.
//
// Every call reads the session token from the store at call time and sends
// it as X-Session-Token. Outcomes fall into three disjoint categories:
//
//   - 2xx: *Response
//   - non-2xx: *HTTPError (server reachable, request rejected)
//   - no response at all: *NetworkError (dial, DNS, TLS, reset, cancel)
//
// The transport never checks session freshness; callers run the session
// guard first for operations that need it.
package transport
