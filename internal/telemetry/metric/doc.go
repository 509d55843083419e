// Package metric provides Prometheus metrics for the RegDesk client.
//
// Metrics include:
//
//   - Backend request counts and latency, by outcome
//   - Session guard verdicts
//   - Duplicate-check queries and discarded stale results
//
// The CLI writes them to a textfile (node_exporter textfile collector
// format) when --metrics-file is set.
package metric
