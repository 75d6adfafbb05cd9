package coordinator

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	lock := NewMemoryLock()

	if ok, err := lock.Acquire(ctx, "a", time.Minute); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := lock.Acquire(ctx, "b", time.Minute); err != nil || ok {
		t.Fatalf("contending acquire: ok=%v err=%v, want held", ok, err)
	}

	// Re-acquiring extends the holder's lease.
	if ok, err := lock.Acquire(ctx, "a", time.Minute); err != nil || !ok {
		t.Fatalf("re-acquire by holder: ok=%v err=%v", ok, err)
	}

	// A non-holder release is a no-op.
	if err := lock.Release(ctx, "b"); err != nil {
		t.Fatalf("non-holder release: %v", err)
	}
	if ok, _ := lock.Acquire(ctx, "b", time.Minute); ok {
		t.Fatal("lock freed by a non-holder release")
	}

	if err := lock.Release(ctx, "a"); err != nil {
		t.Fatalf("holder release: %v", err)
	}
	if ok, err := lock.Acquire(ctx, "b", time.Minute); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestMemoryLockExpires(t *testing.T) {
	ctx := context.Background()
	lock := NewMemoryLock()

	if ok, err := lock.Acquire(ctx, "a", 10*time.Millisecond); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	time.Sleep(20 * time.Millisecond)
	if ok, err := lock.Acquire(ctx, "b", time.Minute); err != nil || !ok {
		t.Fatalf("acquire after expiry: ok=%v err=%v", ok, err)
	}
}
