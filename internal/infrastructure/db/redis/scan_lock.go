package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultLockTTL   = 2 * time.Minute
	defaultLockRetry = 100 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ScanLock serializes prediction computation per scan across instances.
// Key format: predict:lock:<scan_id>
//
// Redis is an optimisation here: when it is unreachable the lock degrades to
// a no-op and the database unique index still prevents duplicates.
type ScanLock struct {
	client LockClient
	ttl    time.Duration
	retry  time.Duration
	log    zerolog.Logger
}

// LockClient is the subset of *redis.Client used by ScanLock.
type LockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// NewScanLock wraps client. ttl bounds how long a crashed holder blocks others.
func NewScanLock(client LockClient, ttl time.Duration, log zerolog.Logger) *ScanLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &ScanLock{client: client, ttl: ttl, retry: defaultLockRetry, log: log}
}

// Lock blocks until the lock is held or ctx is done.
func (l *ScanLock) Lock(ctx context.Context, scanID uint) (func(), error) {
	key := l.key(scanID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("acquire %s: %w", key, err)
			}
			l.log.Warn().Err(err).Uint("scan_id", scanID).Msg("redis lock unavailable, continuing without it")
			return func() {}, nil
		}
		if acquired {
			return l.releaser(key, token, scanID), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *ScanLock) releaser(key, token string, scanID uint) func() {
	return func() {
		// The request context may already be cancelled; release on a short
		// independent deadline instead.
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.log.Warn().Err(err).Uint("scan_id", scanID).Msg("failed to release scan lock")
		}
	}
}

func (l *ScanLock) key(scanID uint) string {
	return fmt.Sprintf("predict:lock:%d", scanID)
}
