// Package main provides the entry point for regdesk-cli.
//
// The CLI is a registrar-office client for the student portal backend:
//
//   - Sign in and out, inspect or verify the stored session
//   - Send session-guarded requests to the portal API
//   - Check ID numbers and full names for existing registrations
//   - Enter a registration interactively with live duplicate checks
//
// Usage:
//
//	regdesk-cli login --id-number 2024000001
//	regdesk-cli check id 2024000123
//	regdesk-cli -o json call GET /courses
package main
