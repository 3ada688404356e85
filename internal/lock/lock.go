// Package lock serialises bookings for one doctor and date across API
// instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotAcquired = errors.New("booking lock not acquired")

type Locker interface {
	// WithLock runs fn while holding key. fn receives a context bounded by the
	// lock TTL.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

func BookingKey(doctorID int64, date string) string {
	return fmt.Sprintf("lock:booking:%d:%s", doctorID, date)
}

// LocalLocker is an in-process Locker used when Redis is not configured.
type LocalLocker struct {
	ttl time.Duration

	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(ttl time.Duration) *LocalLocker {
	return &LocalLocker{ttl: ttl, locks: make(map[string]*localEntry)}
}

func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	wait, cancelWait := context.WithTimeout(ctx, l.ttl)
	defer cancelWait()

	select {
	case e.ch <- struct{}{}:
	case <-wait.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrNotAcquired
	}
	defer func() { <-e.ch }()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(lockCtx)
}
