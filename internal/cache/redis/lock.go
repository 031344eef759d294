package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's unique
// token. This prevents one holder from accidentally releasing another
// holder's lock after a TTL expiry.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements domain.LockManager using Redis SETNX with a TTL and
// a Lua-based conditional unlock.
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

var _ domain.LockManager = (*LockManager)(nil)

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:      c.Underlying(),
		unlockSc: redis.NewScript(unlockLua),
	}
}

func lockKey(name string) string {
	return "lock:" + name
}

// Acquire attempts to obtain a distributed lock for name with the given TTL.
// On success it returns a release function that is safe to call more than
// once. Returns domain.ErrLockHeld if another holder has the lock.
func (lm *LockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	lk := lockKey(name)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	release := func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true

		if err := lm.unlockSc.Run(ctx, lm.rdb, []string{lk}, token).Err(); err != nil {
			return fmt.Errorf("redis: release lock %s: %w", name, err)
		}
		return nil
	}

	return release, nil
}
