// Package portal is the registrar portal's view of the backend API.
//
// It composes the session store, the request wrapper and the session guard
// into the handful of calls the client needs: login and logout, the two
// duplicate-record lookups used during registration, and guarded access to
// any other endpoint.
package portal
