package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/infra/confloader"
)

// EnvConfigPath names the variable that overrides the config file location.
const EnvConfigPath = "REGDESK_CONFIG"

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".regdesk", "config.yaml")
}

// Load builds the configuration from defaults, the file at path (if it
// exists), REGDESK_* environment variables and finally flags.
//
// flags holds dotted keys set on the command line; nil means none.
// An empty path selects DefaultConfigPath.
func Load(path string, flags map[string]any) (*Config, error) {
	cfg, _, err := LoadWithSources(path, flags)
	return cfg, err
}

// LoadWithSources is Load that also reports which layer set each key.
func LoadWithSources(path string, flags map[string]any) (*Config, map[string]confloader.Source, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	opts := []confloader.Option{confloader.WithDefaults(Default().ToMap())}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, confloader.WithConfigFile(path))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("stat %s", path)).WithCause(err)
	}

	loader := confloader.NewLoader(opts...)
	cfg := &Config{}
	if err := loader.Load(cfg); err != nil {
		return nil, nil, domain.ErrInvalidConfig.WithCause(err)
	}

	if len(flags) > 0 {
		if err := loader.LoadFlags(flags); err != nil {
			return nil, nil, domain.ErrInvalidConfig.WithCause(err)
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, nil, domain.ErrInvalidConfig.WithCause(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, loader.Sources(), nil
}

// Save writes cfg to path as YAML with owner-only permissions.
// An empty path selects DefaultConfigPath.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.ToMap())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	// Write to a temp file first so a failed write never truncates the
	// existing config.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
