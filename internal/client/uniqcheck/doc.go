// Package uniqcheck debounces duplicate-record lookups while a user types.
//
// A Checker moves between three states:
//
//	Idle      input fails the gate (too short, incomplete name)
//	Pending   input passed the gate, waiting for the window to settle
//	Resolved  the lookup for the current input has answered
//
// Every input change bumps a generation counter. A lookup result is applied
// only if the generation it was issued under is still current, so the
// visible result always belongs to the latest input regardless of the order
// in which responses arrive.
//
// Lookup failures fail open: the result is Resolved with Exists=false and
// Verified=false, and no field error is shown.
package uniqcheck
