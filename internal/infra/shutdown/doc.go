// Package shutdown coordinates process exit for regdesk-cli.
//
// WithSignals cancels a context on SIGINT/SIGTERM so in-flight backend
// calls and pending duplicate checks stop promptly. A Handler runs
// cleanup hooks (flush metrics, close the session store) once, in reverse
// registration order, under a deadline.
package shutdown
