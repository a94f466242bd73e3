// Package lock serializes check-and-commit per space. Two backends exist: a Mongo
// lock document guarded by a unique _id, and a Redis SET NX key. Both give a lease
// that only its holder can release and that expires on its own if the holder dies.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrBusy means the lock could not be obtained within the wait budget.
var ErrBusy = errors.New("space is locked by another request")

var errHeld = errors.New("lock held")

const keyPrefix = "reservation_lock_"

type Locker interface {
	// Acquire blocks until the space lock is obtained, the wait budget runs out or ctx is done.
	Acquire(ctx context.Context, spaceID string) (*Lease, error)
}

// Lease is a held space lock.
type Lease struct {
	SpaceID string
	Token   string
	release func(ctx context.Context) error
}

func NewLease(spaceID, token string, release func(ctx context.Context) error) *Lease {
	return &Lease{SpaceID: spaceID, Token: token, release: release}
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.release == nil {
		return nil
	}
	return l.release(ctx)
}

func Key(spaceID string) string {
	return keyPrefix + spaceID
}

// retryUntil calls attempt until it reports success, fails with a store error, or
// the wait budget expires. attempt returns (false, nil) while the lock is held.
func retryUntil(ctx context.Context, wait time.Duration, attempt func(ctx context.Context) (bool, error)) error {
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		ok, err := attempt(lockCtx)
		if err != nil {
			if lockCtx.Err() != nil {
				return backoff.Permanent(errHeld)
			}
			return backoff.Permanent(err)
		}
		if !ok {
			return errHeld
		}
		return nil
	}, backoff.WithContext(policy, lockCtx))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errHeld), lockCtx.Err() != nil:
		return ErrBusy
	default:
		return fmt.Errorf("lock store: %w", err)
	}
}
