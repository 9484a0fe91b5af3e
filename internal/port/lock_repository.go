package port

import "context"

// LockRepository provides the per-order mutual-exclusion scope and the
// request-idempotency keys that serialize concurrent administrative
// mutations of the same order.
type LockRepository interface {
	// WithOrderLock runs fn while holding an exclusive lock keyed by the
	// order number.
	WithOrderLock(ctx context.Context, orderNumber string, fn func(ctx context.Context) error) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
