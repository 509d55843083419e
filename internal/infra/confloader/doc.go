// Package confloader layers regdesk configuration with koanf.
//
// Sources, lowest priority first: caller defaults, a YAML file,
// REGDESK_* environment variables, command-line flags. The loader keeps
// the source of every key so "config show" can say where a value came
// from.
package confloader
