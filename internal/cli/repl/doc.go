// Package repl provides the line-oriented loop behind "regdesk-cli register".
//
// Each input line is one field edit ("id 2024000123", "first Ana"); the
// loop hands it to a Handler and keeps an in-memory history so "history"
// can echo what was typed. Unknown words get completion suggestions.
package repl
