// Package config defines the regdesk-cli configuration.
//
//   - spec.go: Config struct, defaults and validation
//   - loader.go: Layered loading (defaults, ~/.regdesk/config.yaml,
//     REGDESK_* environment, flags) and saving
package config
