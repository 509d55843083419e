package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/regdesk-go/internal/client/sessionstore"
	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/infra/tlsroots"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

// Config is the configuration for regdesk-cli.
type Config struct {
	// Server is the backend base URL.
	Server string `koanf:"server"`

	// Output is the default output format: table, json, yaml.
	Output string `koanf:"output"`

	// Timeout bounds each backend call.
	Timeout time.Duration `koanf:"timeout"`

	Session   sessionstore.Config `koanf:"session"`
	Check     CheckConfig         `koanf:"check"`
	Log       LogConfig           `koanf:"log"`
	RateLimit RateLimitConfig     `koanf:"rate_limit"`
	TLS       tlsroots.Config     `koanf:"tls"`
}

// CheckConfig tunes the registration duplicate checks.
type CheckConfig struct {
	Window      time.Duration `koanf:"window"`
	MinIDLength int           `koanf:"min_id_length"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// RateLimitConfig throttles outgoing calls. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// Default returns the default CLI configuration.
func Default() *Config {
	return &Config{
		Server:  "http://localhost:8000",
		Output:  "table",
		Timeout: 30 * time.Second,
		Session: sessionstore.Config{
			Backend: sessionstore.BackendBadger,
			Dir:     sessionstore.DefaultSessionDir(),
			Redis: sessionstore.RedisConfig{
				Prefix: sessionstore.DefaultRedisPrefix,
			},
		},
		Check: CheckConfig{
			Window:      500 * time.Millisecond,
			MinIDLength: domain.DefaultMinIDLength,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			Burst: 1,
		},
	}
}

// ToMap returns the configuration as nested maps keyed like the YAML
// file. Durations are rendered as strings ("500ms").
func (c *Config) ToMap() map[string]any {
	return map[string]any{
		"server":  c.Server,
		"output":  c.Output,
		"timeout": c.Timeout.String(),
		"session": map[string]any{
			"backend":  c.Session.Backend,
			"dir":      c.Session.Dir,
			"seal_key": c.Session.SealKey,
			"redis": map[string]any{
				"addr":     c.Session.Redis.Addr,
				"password": c.Session.Redis.Password,
				"db":       c.Session.Redis.DB,
				"prefix":   c.Session.Redis.Prefix,
				"ttl":      c.Session.Redis.TTL.String(),
			},
		},
		"check": map[string]any{
			"window":        c.Check.Window.String(),
			"min_id_length": c.Check.MinIDLength,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
		"rate_limit": map[string]any{
			"rps":   c.RateLimit.RPS,
			"burst": c.RateLimit.Burst,
		},
		"tls": map[string]any{
			"ca_file":     c.TLS.CAFile,
			"cert_file":   c.TLS.CertFile,
			"key_file":    c.TLS.KeyFile,
			"server_name": c.TLS.ServerName,
		},
	}
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Session.SealKey != "" {
		out.Session.SealKey = "***"
	}
	if out.Session.Redis.Password != "" {
		out.Session.Redis.Password = "***"
	}
	return &out
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	raw := c.Server
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if c.Server == "" || err != nil || u.Host == "" {
		return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("server %q is not a valid URL", c.Server))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("server scheme %q not supported", u.Scheme))
	}

	switch strings.ToLower(c.Output) {
	case "table", "json", "yaml":
	default:
		return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("output %q must be table, json or yaml", c.Output))
	}

	switch strings.ToLower(c.Session.Backend) {
	case "", sessionstore.BackendMemory, sessionstore.BackendBadger:
	case sessionstore.BackendRedis:
		if c.Session.Redis.Addr == "" {
			return domain.ErrInvalidConfig.WithDetails("session.redis.addr is required for the redis backend")
		}
	default:
		return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("unknown session backend %q", c.Session.Backend))
	}

	if c.Timeout < 0 || c.Check.Window < 0 {
		return domain.ErrInvalidConfig.WithDetails("durations must not be negative")
	}
	if c.Check.MinIDLength < 1 {
		return domain.ErrInvalidConfig.WithDetails("check.min_id_length must be at least 1")
	}
	if c.RateLimit.RPS < 0 {
		return domain.ErrInvalidConfig.WithDetails("rate_limit.rps must not be negative")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return domain.ErrInvalidConfig.WithDetails("log.level").WithCause(err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return domain.ErrInvalidConfig.WithDetails("tls.cert_file and tls.key_file must be set together")
	}
	return nil
}
