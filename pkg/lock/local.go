package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker serialises holders inside a single process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewLocalLocker constructs an in-process locker. Only opts.Wait is used.
func NewLocalLocker(opts Options) *LocalLocker {
	opts = opts.withDefaults()
	return &LocalLocker{slots: make(map[string]chan struct{}), wait: opts.Wait}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Acquire blocks up to the configured wait for the key to become free.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	ch := l.slot(key)

	var once sync.Once
	release := func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}

	if l.wait == 0 {
		select {
		case ch <- struct{}{}:
			return release, nil
		default:
			return nil, ErrNotAcquired
		}
	}

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return release, nil
	case <-timer.C:
		return nil, ErrNotAcquired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
