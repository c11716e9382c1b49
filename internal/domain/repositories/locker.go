package repositories

import "context"

// Locker serializes work per key, across goroutines and, for distributed
// implementations, across instances.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
