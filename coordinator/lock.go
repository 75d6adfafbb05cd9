package coordinator

import (
	"context"
	"sync"
	"time"
)

// Lock is the advisory refresh slot: whoever acquires it performs the
// network refresh while everyone else waits for the broadcast. The slot is
// time-boxed so a crashed holder frees it after TTL, and it is advisory
// only; a second refresh caused by a lost lock is wasteful but harmless.
type Lock interface {
	Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, owner string) error
}

// MemoryLock is the in-process Lock for participants sharing one runtime.
type MemoryLock struct {
	mu      sync.Mutex
	owner   string
	expires time.Time
}

// NewMemoryLock returns an unheld lock.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{}
}

// Acquire takes the slot when it is free, expired, or already held by the
// same owner. Re-acquiring extends the deadline.
func (l *MemoryLock) Acquire(_ context.Context, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if l.owner != "" && l.owner != owner && now.Before(l.expires) {
		return false, nil
	}
	l.owner = owner
	l.expires = now.Add(ttl)
	return true, nil
}

// Release frees the slot if the caller still owns it. Releasing a slot
// taken over by someone else is a no-op.
func (l *MemoryLock) Release(_ context.Context, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == owner {
		l.owner = ""
		l.expires = time.Time{}
	}
	return nil
}
