package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
)

// WithLock gives mutually exclusive execution per key across the whole
// replicated service — the Go equivalent of the teacher's
// "SELECT … FOR UPDATE" row locks, which have no meaning against a KV
// store (spec.md §4.1's with_lock, §5's per-order/per-asset lock
// discipline). Implemented as a SET NX PX token lock with a Lua
// compare-and-delete on release, so a slow holder whose lease expired
// can never delete a lock that another caller has since acquired.
func (s *Store) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lockKey := "lock:" + key
	token := xidToken()

	acquired, err := s.acquireLock(ctx, lockKey, token, ttl)
	if err != nil {
		return err
	}
	if !acquired {
		return apperr.New("store.WithLock", apperr.Conflict, fmt.Errorf("key %q already locked", key))
	}
	defer s.releaseLock(context.Background(), lockKey, token)

	return fn(ctx)
}

// acquireLock retries with bounded backoff until ctx is done, mirroring
// the "never busy-wait" requirement of spec.md §5.
func (s *Store) acquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	backoff := 5 * time.Millisecond
	const maxBackoff = 100 * time.Millisecond

	for {
		ok, err := s.rdb.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return false, classify("store.acquireLock", err)
		}
		if ok {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

func (s *Store) releaseLock(ctx context.Context, lockKey, token string) {
	_ = releaseScript.Run(ctx, s.rdb, []string{lockKey}, token).Err()
}

var tokenSeq atomic.Uint64

// xidToken produces a unique-enough value to tell "this goroutine's
// lease" apart from anyone else's; it never needs to be sortable or
// persisted, only compared, so the current time, a per-process salt (the
// process start time) and a plain incrementing counter are enough.
func xidToken() string {
	n := tokenSeq.Add(1)
	return fmt.Sprintf("%d-%d-%d", time.Now().UnixNano(), processSalt, n)
}

var processSalt = time.Now().UnixNano()
