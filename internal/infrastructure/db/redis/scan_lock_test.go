package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fakeRedis implements LockClient over a map. Scripts are interpreted as the
// compare-and-delete release.
type fakeRedis struct {
	mu     sync.Mutex
	vals   map[string]string
	setErr error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{vals: make(map[string]string)} }

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	if _, held := f.vals[key]; held {
		cmd.SetVal(false)
		return cmd
	}
	f.vals[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) release(ctx context.Context, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewCmd(ctx)
	if f.vals[keys[0]] == args[0].(string) {
		delete(f.vals, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}
	cmd.SetVal(int64(0))
	return cmd
}

func (f *fakeRedis) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(ctx, keys, args...)
}

func (f *fakeRedis) EvalSha(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(ctx, keys, args...)
}

func (f *fakeRedis) EvalRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(ctx, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(ctx, keys, args...)
}

func (f *fakeRedis) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	cmd := redis.NewBoolSliceCmd(ctx)
	cmd.SetVal(make([]bool, len(hashes)))
	return cmd
}

func (f *fakeRedis) ScriptLoad(ctx context.Context, _ string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("sha")
	return cmd
}

func (f *fakeRedis) held(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.vals[key]
	return ok
}

func newTestLock(c LockClient) *ScanLock {
	l := NewScanLock(c, time.Minute, zerolog.Nop())
	l.retry = time.Millisecond
	return l
}

func TestScanLock_AcquireAndRelease(t *testing.T) {
	fake := newFakeRedis()
	l := newTestLock(fake)

	release, err := l.Lock(context.Background(), 7)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !fake.held("predict:lock:7") {
		t.Fatalf("lock key not set")
	}
	release()
	if fake.held("predict:lock:7") {
		t.Fatalf("lock key not released")
	}
}

func TestScanLock_WaitsForHolder(t *testing.T) {
	fake := newFakeRedis()
	l := newTestLock(fake)

	release, err := l.Lock(context.Background(), 7)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := l.Lock(context.Background(), 7)
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatalf("second Lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second Lock never acquired")
	}
}

func TestScanLock_ContextCancelled(t *testing.T) {
	fake := newFakeRedis()
	l := newTestLock(fake)

	release, _ := l.Lock(context.Background(), 1)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestScanLock_ReleaseDoesNotStealForeignLock(t *testing.T) {
	fake := newFakeRedis()
	l := newTestLock(fake)

	release, _ := l.Lock(context.Background(), 3)
	// Simulate expiry followed by another instance taking the key.
	fake.mu.Lock()
	fake.vals["predict:lock:3"] = "other-instance"
	fake.mu.Unlock()

	release()
	if !fake.held("predict:lock:3") {
		t.Fatalf("released a lock held by another instance")
	}
}

func TestScanLock_DegradesWhenRedisDown(t *testing.T) {
	fake := newFakeRedis()
	fake.setErr = errors.New("connection refused")
	l := newTestLock(fake)

	release, err := l.Lock(context.Background(), 9)
	if err != nil {
		t.Fatalf("expected degraded no-op lock, got %v", err)
	}
	release()
}
