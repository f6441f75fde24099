// Package locking serializes work on a single order across concurrent requests.
package locking

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

var ErrLockTimeout = errors.New("timed out waiting for order lock")

// Locker hands out exclusive per-order locks.
//
// Lock blocks until the lock is acquired or ctx is done. The returned func releases the lock
// and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, orderID string) (unlock func(), err error)
}

// New builds a redis locker if an address is configured and falls back to process-local locks otherwise.
//
// A redis server that cannot be reached at startup also falls back, with a warning, so a single
// instance keeps working.
func New(addr string, password string, db int, ttl time.Duration, logger logging.Logger) Locker {
	if addr == "" {
		return NewMemoryLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis at %s not reachable, falling back to in-process order locks: %v", addr, err)
		_ = client.Close()
		return NewMemoryLocker()
	}

	return NewRedisLocker(client, ttl)
}
