package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to a session across supervisor replicas
// that share one document store.
type DistributedLocker interface {
	// Lock blocks until the lock on key is held or ctx is done. The lock
	// expires after ttl if it is never released.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
