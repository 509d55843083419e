package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

// DefaultRedisPrefix namespaces the store's keys.
const DefaultRedisPrefix = "regdesk:session"

// Redis is a Store shared by every client pointed at the same instance.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	sealer *Sealer
	logger logger.Logger
	owned  bool
}

// OpenRedis connects to cfg.Addr and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig, sealer *Sealer, log logger.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, domain.ErrInvalidConfig.WithDetails("session.redis.addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, storageError("ping redis", err)
	}

	r := NewRedis(rdb, cfg.Prefix, cfg.TTL, sealer, log)
	r.owned = true
	return r, nil
}

// NewRedis wraps an existing client. The caller keeps ownership of rdb.
// A zero ttl stores keys without expiry.
func NewRedis(rdb redis.UniversalClient, prefix string, ttl time.Duration, sealer *Sealer, log logger.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = logger.Default()
	}
	return &Redis{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		sealer: sealer,
		logger: log,
	}
}

func (r *Redis) tokenKey() string   { return r.prefix + ":token" }
func (r *Redis) subjectKey() string { return r.prefix + ":subject" }

// SetToken replaces the stored token with a single SET.
func (r *Redis) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrTokenEmpty
	}
	value, err := r.sealer.Seal([]byte(token), keyToken)
	if err != nil {
		return storageError("seal token", err)
	}
	if err := r.rdb.Set(ctx, r.tokenKey(), value, r.ttl).Err(); err != nil {
		return storageError("set token", err)
	}
	return nil
}

// GetToken returns the stored token.
func (r *Redis) GetToken(ctx context.Context) (string, error) {
	value, err := r.rdb.Get(ctx, r.tokenKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrSessionAbsent
		}
		return "", storageError("get token", err)
	}

	plain, err := r.sealer.Open(value, keyToken)
	if err != nil {
		r.logger.Warn("stored session token could not be unsealed", "error", err)
		return "", domain.ErrSessionAbsent.WithCause(err)
	}
	return string(plain), nil
}

// ClearToken removes the token and subject.
func (r *Redis) ClearToken(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.tokenKey(), r.subjectKey()).Err(); err != nil {
		return storageError("clear token", err)
	}
	return nil
}

// HasToken reports whether a usable token is stored.
func (r *Redis) HasToken(ctx context.Context) (bool, error) {
	return hasToken(ctx, r)
}

// SetSubject stores the subject as JSON.
func (r *Redis) SetSubject(ctx context.Context, subject domain.Subject) error {
	data, err := json.Marshal(subject)
	if err != nil {
		return storageError("encode subject", err)
	}
	if err := r.rdb.Set(ctx, r.subjectKey(), data, r.ttl).Err(); err != nil {
		return storageError("set subject", err)
	}
	return nil
}

// GetSubject returns the stored subject.
func (r *Redis) GetSubject(ctx context.Context) (domain.Subject, error) {
	data, err := r.rdb.Get(ctx, r.subjectKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Subject{}, domain.ErrSubjectAbsent
		}
		return domain.Subject{}, storageError("get subject", err)
	}

	var subject domain.Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return domain.Subject{}, storageError("decode subject", err)
	}
	return subject, nil
}

// Close closes the client if OpenRedis created it.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.rdb.Close()
}
