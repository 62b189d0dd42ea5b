// Package lock serialises bulletin generation per class and period across
// goroutines and, with Redis, across processes.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock is still held after the wait budget.
var ErrNotAcquired = errors.New("lock not acquired")

// Release frees a held lock. Releasing an expired or foreign lock is a no-op.
type Release func(ctx context.Context) error

// Locker grants exclusive ownership of a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Options tunes lock lifetime and contention behaviour.
type Options struct {
	// TTL bounds how long a crashed holder can block others (Redis only).
	TTL time.Duration
	// Wait is how long Acquire keeps retrying; zero means a single attempt.
	Wait time.Duration
	// RetryInterval spaces Redis attempts while waiting.
	RetryInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 2 * time.Minute
	}
	if o.Wait < 0 {
		o.Wait = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 50 * time.Millisecond
	}
	return o
}

// ClassPeriodKey is the lock key guarding one class and period.
func ClassPeriodKey(classID, periodID string) string {
	return "bulletin:lock:" + classID + ":" + periodID
}
