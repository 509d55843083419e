package sessionstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

func TestBadger_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenBadger(BadgerOptions{Dir: dir}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetToken(ctx, "persisted"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSubject(ctx, domain.Subject{ID: "1", Role: "admin"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBadger(BadgerOptions{Dir: dir}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if got, err := s.GetToken(ctx); err != nil || got != "persisted" {
		t.Errorf("GetToken() after reopen = %q, %v", got, err)
	}
	if got, err := s.GetSubject(ctx); err != nil || got.Role != "admin" {
		t.Errorf("GetSubject() after reopen = %+v, %v", got, err)
	}
}

func TestBadger_SealedAtRest(t *testing.T) {
	ctx := context.Background()
	sealer, err := NewSealer(testKey())
	if err != nil {
		t.Fatal(err)
	}

	s, err := OpenBadger(BadgerOptions{InMemory: true, Sealer: sealer}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SetToken(ctx, "plaintext-token"); err != nil {
		t.Fatal(err)
	}

	raw, err := s.get(keyToken)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("plaintext-token")) {
		t.Error("token stored in plaintext despite sealer")
	}
}

func TestBadger_WrongKeyIsAbsent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sealer1, _ := NewSealer(testKey())
	s, err := OpenBadger(BadgerOptions{Dir: dir, Sealer: sealer1}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetToken(ctx, "T1"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	sealer2, _ := NewSealer([]byte(strings.Repeat("x", SealKeySize)))
	s, err = OpenBadger(BadgerOptions{Dir: dir, Sealer: sealer2}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.GetToken(ctx); !errors.Is(err, domain.ErrSessionAbsent) {
		t.Errorf("GetToken() with rotated key error = %v, want ErrSessionAbsent", err)
	}
	if has, _ := s.HasToken(ctx); has {
		t.Error("HasToken() should be false when the token cannot be unsealed")
	}
}

func TestBadger_StorageErrorAfterClose(t *testing.T) {
	s, err := OpenBadger(BadgerOptions{InMemory: true}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	err = s.SetToken(context.Background(), "T1")
	if !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("SetToken() on closed db error = %v, want ErrStorageError", err)
	}
}

func TestRedis_TTLAndPrefix(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, "kiosk-3", time.Hour, nil, logger.Discard())
	if err := s.SetToken(ctx, "T1"); err != nil {
		t.Fatal(err)
	}

	if got := mr.TTL("kiosk-3:token"); got != time.Hour {
		t.Errorf("TTL = %v, want 1h", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := s.GetToken(ctx); !errors.Is(err, domain.ErrSessionAbsent) {
		t.Errorf("GetToken() after expiry error = %v, want ErrSessionAbsent", err)
	}

	// Close must not close a caller-owned client.
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Errorf("caller-owned client closed by store: %v", err)
	}
}

func TestRedis_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	s := NewRedis(rdb, "", 0, nil, logger.Discard())
	mr.Close()

	_, err = s.GetToken(context.Background())
	if !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("GetToken() with server down error = %v, want ErrStorageError", err)
	}
}

func TestSealer(t *testing.T) {
	s, err := NewSealer(testKey())
	if err != nil {
		t.Fatal(err)
	}

	sealed, err := s.Seal([]byte("token"), keyToken)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := s.Open(sealed, keyToken)
	if err != nil || string(plain) != "token" {
		t.Errorf("Open() = %q, %v", plain, err)
	}

	if _, err := s.Open(sealed, keySubject); err == nil {
		t.Error("Open() with a different label should fail")
	}
	if _, err := s.Open([]byte("short"), keyToken); err == nil {
		t.Error("Open() of a short value should fail")
	}

	if _, err := NewSealer([]byte("short")); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("NewSealer(short) error = %v", err)
	}

	var nilSealer *Sealer
	out, err := nilSealer.Seal([]byte("x"), keyToken)
	if err != nil || string(out) != "x" {
		t.Errorf("nil Sealer.Seal() = %q, %v", out, err)
	}
}
