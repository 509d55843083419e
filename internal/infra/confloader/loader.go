package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "REGDESK_"

// Source names the layer a key's effective value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Loader layers configuration sources and remembers where each key was
// last set.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	defaults  map[string]any
	origin    map[string]Source
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithDefaults sets the lowest-priority values. Keys may be nested maps
// or dotted paths.
func WithDefaults(defaults map[string]any) Option {
	return func(l *Loader) {
		l.defaults = defaults
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		origin:    make(map[string]Source),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges defaults, the YAML file and the environment, in that order,
// and unmarshals the result into target. Flags go on top through
// LoadFlags followed by Unmarshal.
func (l *Loader) Load(target any) error {
	if l.defaults != nil {
		if err := l.merge(SourceDefault, mapProvider(maps.Unflatten(l.defaults, ".")), nil); err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
	}
	if err := l.LoadFile(l.filePath); err != nil {
		return err
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.merge(SourceFile, file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges prefixed environment variables.
//
// REGDESK_SESSION_REDIS_ADDR maps to session.redis.addr. When a key
// already known to the loader contains underscores (session.seal_key),
// the variable REGDESK_SESSION_SEAL_KEY resolves to it rather than to
// session.seal.key.
func (l *Loader) LoadEnv() error {
	known := make(map[string]string)
	for _, key := range l.k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		if key, ok := known[s]; ok {
			return key
		}
		return strings.ReplaceAll(s, "_", ".")
	}

	if err := l.merge(SourceEnv, env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadFlags merges command-line values. Dotted keys are expanded into
// nested maps.
func (l *Loader) LoadFlags(data map[string]any) error {
	if err := l.merge(SourceFlag, mapProvider(maps.Unflatten(data, ".")), nil); err != nil {
		return fmt.Errorf("load flags: %w", err)
	}
	return nil
}

// merge loads one layer on its own and folds it into the result, so the
// keys it carried can be attributed to src.
func (l *Loader) merge(src Source, p koanf.Provider, parser koanf.Parser) error {
	layer := koanf.New(".")
	if err := layer.Load(p, parser); err != nil {
		return err
	}
	for _, key := range layer.Keys() {
		l.origin[key] = src
	}
	return l.k.Merge(layer)
}

// Unmarshal decodes the merged configuration into target using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Get returns the merged value for a dotted key.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// Sources returns the layer that set each leaf key.
func (l *Loader) Sources() map[string]Source {
	out := make(map[string]Source, len(l.origin))
	for k, v := range l.origin {
		out[k] = v
	}
	return out
}
