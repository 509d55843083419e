// Package command provides CLI command definitions for regdesk-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, setup and teardown
//   - env.go: Per-run dependencies (config, logger, store, portal client)
//   - auth.go: login, logout, whoami
//   - session.go: Session subcommand group
//   - call.go: Guarded raw backend calls
//   - check.go: One-shot duplicate checks
//   - register.go: Interactive registration with debounced checks
//   - config.go: Configuration subcommand group
//
// Commands follow a consistent pattern of parsing flags, calling the
// portal client, and formatting output.
package command
