package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/regdesk-go/internal/core/domain"
	"github.com/yndnr/regdesk-go/internal/telemetry/logger"
)

// Storage keys.
const (
	keyToken   = "session/token"
	keySubject = "session/subject"
)

// BadgerOptions configures the durable store.
type BadgerOptions struct {
	// Dir is the data directory. Default: ~/.regdesk/session.
	Dir string

	// Sealer encrypts the token at rest. Optional.
	Sealer *Sealer

	// InMemory keeps badger in memory (tests).
	InMemory bool
}

// DefaultSessionDir returns the default badger directory.
func DefaultSessionDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".regdesk", "session")
}

// Badger is a durable Store backed by Badger v3.
type Badger struct {
	db     *badger.DB
	sealer *Sealer
	logger logger.Logger
}

// OpenBadger opens (or creates) the durable store.
func OpenBadger(opts BadgerOptions, log logger.Logger) (*Badger, error) {
	if log == nil {
		log = logger.Default()
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = DefaultSessionDir()
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, storageError("create session dir", err)
		}
		bopts = badger.DefaultOptions(dir)
	}

	bopts = bopts.
		WithLogger(&badgerLogger{logger: log}).
		WithNumVersionsToKeep(1).
		WithSyncWrites(true)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, storageError("open badger", err)
	}

	log.Debug("session store opened", "backend", BackendBadger, "dir", bopts.Dir, "sealed", opts.Sealer != nil)

	return &Badger{db: db, sealer: opts.Sealer, logger: log}, nil
}

// SetToken replaces the stored token in a single transaction.
func (b *Badger) SetToken(_ context.Context, token string) error {
	if token == "" {
		return domain.ErrTokenEmpty
	}

	value, err := b.sealer.Seal([]byte(token), keyToken)
	if err != nil {
		return storageError("seal token", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyToken), value)
	})
	if err != nil {
		return storageError("set token", err)
	}
	return nil
}

// GetToken returns the stored token.
func (b *Badger) GetToken(_ context.Context) (string, error) {
	value, err := b.get(keyToken)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", domain.ErrSessionAbsent
		}
		return "", storageError("get token", err)
	}

	plain, err := b.sealer.Open(value, keyToken)
	if err != nil {
		// A token we cannot unseal (rotated key, tampering) is unusable.
		b.logger.Warn("stored session token could not be unsealed", "error", err)
		return "", domain.ErrSessionAbsent.WithCause(err)
	}
	return string(plain), nil
}

// ClearToken removes the token and subject in one transaction.
func (b *Badger) ClearToken(_ context.Context) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(keyToken)); err != nil {
			return err
		}
		return txn.Delete([]byte(keySubject))
	})
	if err != nil {
		return storageError("clear token", err)
	}
	return nil
}

// HasToken reports whether a usable token is stored.
func (b *Badger) HasToken(ctx context.Context) (bool, error) {
	return hasToken(ctx, b)
}

// SetSubject stores the subject as JSON.
func (b *Badger) SetSubject(_ context.Context, subject domain.Subject) error {
	data, err := json.Marshal(subject)
	if err != nil {
		return storageError("encode subject", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySubject), data)
	})
	if err != nil {
		return storageError("set subject", err)
	}
	return nil
}

// GetSubject returns the stored subject.
func (b *Badger) GetSubject(_ context.Context) (domain.Subject, error) {
	value, err := b.get(keySubject)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.Subject{}, domain.ErrSubjectAbsent
		}
		return domain.Subject{}, storageError("get subject", err)
	}

	var subject domain.Subject
	if err := json.Unmarshal(value, &subject); err != nil {
		return domain.Subject{}, storageError("decode subject", err)
	}
	return subject, nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	start := time.Now()
	err := b.db.Close()
	b.logger.Debug("session store closed", "backend", BackendBadger, "duration", time.Since(start))
	return err
}

func (b *Badger) get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
// Badger's info chatter is demoted to debug.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
