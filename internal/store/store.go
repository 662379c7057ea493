// Package store provides the persistence primitives for knowledge-base
// files: atomic rename writes and advisory marker-file locks. Every
// mutation of a file shared across process invocations goes through
// Update; no component writes such a file directly.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultStaleAfter is how old a lock marker must be before a waiter
	// may reclaim it from a presumed-crashed holder.
	DefaultStaleAfter = 30 * time.Second
	// DefaultWait bounds the total time Update polls for a lock.
	DefaultWait = 5 * time.Second
	// DefaultPoll is the lock acquisition retry interval.
	DefaultPoll = 100 * time.Millisecond
)

// Store performs locked read-modify-write cycles over JSON files.
type Store struct {
	locker     Locker
	staleAfter time.Duration
	wait       time.Duration
	poll       time.Duration
	log        *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLocker substitutes the lock implementation.
func WithLocker(l Locker) Option { return func(s *Store) { s.locker = l } }

// WithStaleAfter overrides the stale-lock reclaim threshold.
func WithStaleAfter(d time.Duration) Option { return func(s *Store) { s.staleAfter = d } }

// WithWait overrides the total lock wait bound.
func WithWait(d time.Duration) Option { return func(s *Store) { s.wait = d } }

// WithPoll overrides the lock retry interval.
func WithPoll(d time.Duration) Option { return func(s *Store) { s.poll = d } }

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// New creates a Store with marker-file locking and default timings.
func New(opts ...Option) *Store {
	s := &Store{
		locker:     FileLocker{},
		staleAfter: DefaultStaleAfter,
		wait:       DefaultWait,
		poll:       DefaultPoll,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update acquires the lock for path, reads its current content, applies
// transform, atomically writes the result, and releases the lock. A missing
// file is passed to transform as nil bytes; a present-but-unparseable file
// must be surfaced by transform (DecodeInto returns *CorruptError for that).
// The lock is released even when transform fails or panics. On lock timeout
// Update returns a *LockTimeoutError and no mutation is applied.
func (s *Store) Update(ctx context.Context, path string, transform func(data []byte) (any, error)) error {
	retries := 0
	deadline := time.Now().Add(s.wait)
	for {
		ok, err := s.locker.TryAcquire(path, s.staleAfter)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		retries++
		if time.Now().After(deadline) {
			s.log.Warn("lock wait exhausted",
				zap.String("path", path),
				zap.Int("retries", retries))
			return &LockTimeoutError{Path: path, Retries: retries}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.poll):
		}
	}
	defer func() {
		if err := s.locker.Release(path); err != nil {
			s.log.Warn("lock release failed", zap.String("path", path), zap.Error(err))
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		data = nil
	}

	out, err := transform(data)
	if err != nil {
		return err
	}
	return WriteAtomic(path, out)
}

// DecodeInto unmarshals existing store bytes into v. nil or empty data means
// the file was absent and v is left at its default; data that fails to parse
// is a *CorruptError so callers never mistake corruption for absence.
func DecodeInto(path string, data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CorruptError{Path: path, Err: err}
	}
	return nil
}

// UpdateJSON is a typed convenience over Store.Update: the current value is
// decoded into T (zero value when the file is absent), transformed, and
// written back.
func UpdateJSON[T any](ctx context.Context, s *Store, path string, transform func(T) (T, error)) error {
	return s.Update(ctx, path, func(data []byte) (any, error) {
		var cur T
		if err := DecodeInto(path, data, &cur); err != nil {
			return nil, err
		}
		next, err := transform(cur)
		if err != nil {
			return nil, err
		}
		return next, nil
	})
}
