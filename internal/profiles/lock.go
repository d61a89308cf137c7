package profiles

import (
	"context"
	"sync"
)

// Lock serializes profile-switch-and-restore sequences process-wide.
// Waiters acquire in strict arrival order. The lock carries no timeout: a
// wedged holder stalls all later distribution, which is the accepted
// trade-off against abandoning an half-switched backend.
//
// Not re-entrant. Share one instance between every component that can
// switch the backend's active profile.
type Lock struct {
	mu    sync.Mutex
	held  bool
	queue []chan struct{}
}

// NewLock returns an unheld lock.
func NewLock() *Lock {
	return &Lock{}
}

// Do runs fn while holding the lock. Cancelling ctx aborts a pending wait;
// once fn starts it always runs to completion and the lock is released on
// every exit path.
func (l *Lock) Do(ctx context.Context, fn func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return fn()
}

func (l *Lock) acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	ticket := make(chan struct{})
	l.queue = append(l.queue, ticket)
	l.mu.Unlock()

	select {
	case <-ticket:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, waiting := range l.queue {
			if waiting == ticket {
				l.queue = append(l.queue[:i], l.queue[i+1:]...)
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		l.mu.Unlock()
		// The ticket was granted while we were cancelling; ownership is
		// ours, so hand it straight to the next waiter.
		l.release()
		return ctx.Err()
	}
}

// release hands the lock to the oldest waiter, or marks it free.
func (l *Lock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) > 0 {
		next := l.queue[0]
		l.queue = l.queue[1:]
		close(next)
		return
	}
	l.held = false
}
