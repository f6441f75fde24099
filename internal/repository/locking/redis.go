package locking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
)

const (
	keyPrefix    = "mia:order-lock:"
	pollInterval = 50 * time.Millisecond
)

// only delete the key if we still own it, the ttl may have handed it to someone else
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ Locker = (*redisLocker)(nil)

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &redisLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	key := keyPrefix + orderID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(pollInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the request context may already be cancelled, release must still happen
			rCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rCtx, l.client, []string{key}, token).Err(); err != nil {
				logging.LoggerFromContext(ctx).Warn("failed to release order lock %s: %v", key, err)
			}
		})
	}, nil
}
