// Package output renders command results for regdesk-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: Key/value and row tables
//   - json.go: Indented JSON
//   - yaml.go: YAML via gopkg.in/yaml.v3
//   - spinner.go: Activity indicator for slow backend calls
//
// Backend payloads arrive as json.RawMessage; every formatter decodes
// them before rendering so table and YAML output show fields rather than
// raw bytes.
package output
