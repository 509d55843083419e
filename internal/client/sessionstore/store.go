package sessionstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

// Store persists the current session token and the subject it belongs to.
//
// GetToken returns domain.ErrSessionAbsent when no token is stored.
// GetSubject returns domain.ErrSubjectAbsent when no subject is stored.
type Store interface {
	SetToken(ctx context.Context, token string) error
	GetToken(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
	HasToken(ctx context.Context) (bool, error)

	SetSubject(ctx context.Context, subject domain.Subject) error
	GetSubject(ctx context.Context) (domain.Subject, error)

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Config selects and configures a store backend.
type Config struct {
	// Backend is one of memory, badger, redis. Default: badger.
	Backend string `koanf:"backend" yaml:"backend"`

	// Dir is the badger data directory.
	Dir string `koanf:"dir" yaml:"dir"`

	// SealKey is a hex-encoded 32-byte key; when set, tokens are sealed
	// before they are written by durable backends.
	SealKey string `koanf:"seal_key" yaml:"seal_key,omitempty"`

	Redis RedisConfig `koanf:"redis" yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `koanf:"addr" yaml:"addr"`
	Password string        `koanf:"password" yaml:"password,omitempty"`
	DB       int           `koanf:"db" yaml:"db"`
	Prefix   string        `koanf:"prefix" yaml:"prefix"`
	TTL      time.Duration `koanf:"ttl" yaml:"ttl"`
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Default()
	}

	sealer, err := sealerFromHex(cfg.SealKey)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendBadger:
		return OpenBadger(BadgerOptions{Dir: cfg.Dir, Sealer: sealer}, log)
	case BackendRedis:
		return OpenRedis(ctx, cfg.Redis, sealer, log)
	default:
		return nil, domain.ErrInvalidConfig.WithDetails(fmt.Sprintf("unknown session backend %q", cfg.Backend))
	}
}

func sealerFromHex(key string) (*Sealer, error) {
	if key == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("session.seal_key is not hex").WithCause(err)
	}
	return NewSealer(raw)
}

// hasToken derives HasToken from GetToken.
func hasToken(ctx context.Context, s interface {
	GetToken(context.Context) (string, error)
}) (bool, error) {
	_, err := s.GetToken(ctx)
	if err == nil {
		return true, nil
	}
	if domain.IsDomainError(err, domain.ErrSessionAbsent.Code) {
		return false, nil
	}
	return false, err
}

func storageError(op string, err error) error {
	return domain.ErrStorageError.WithDetails(op).WithCause(err)
}
