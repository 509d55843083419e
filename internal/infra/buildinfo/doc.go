// Package buildinfo reports which regdesk-cli build is running.
//
// Version, Commit and BuildTime are injected via ldflags. When they are
// not, Get falls back to the module and VCS data the Go toolchain embeds
// in the binary.
//
// Usage:
//
//	go build -ldflags "-X github.com/yndnr/regdesk-go/internal/infra/buildinfo.Version=v1.2.0"
package buildinfo
