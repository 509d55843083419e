// Package guard gates authenticated operations behind a session check.
//
// Guard.EnsureValidSession asks the backend whether the stored token is
// still good, stores a rotated token when the backend hands one out, and
// fails closed otherwise. Callers branch on its result before issuing any
// state-mutating request.
package guard
