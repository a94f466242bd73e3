package lock

import (
	"context"
	"errors"
	"time"

	reservationserrors "spacebook/internal/reservations/errors"
	"spacebook/internal/reservations/repository"
	"spacebook/pkg/model"

	"github.com/google/uuid"
)

type MongoLocker struct {
	repo repository.ReservationLockRepository
	ttl  time.Duration
	wait time.Duration
	now  func() time.Time
}

func NewMongoLocker(repo repository.ReservationLockRepository, ttl, wait time.Duration) *MongoLocker {
	return &MongoLocker{
		repo: repo,
		ttl:  ttl,
		wait: wait,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *MongoLocker) Acquire(ctx context.Context, spaceID string) (*Lease, error) {
	lockID := Key(spaceID)
	token := uuid.NewString()

	err := retryUntil(ctx, m.wait, func(ctx context.Context) (bool, error) {
		return m.tryInsert(ctx, lockID, spaceID, token)
	})
	if err != nil {
		return nil, err
	}

	return NewLease(spaceID, token, func(ctx context.Context) error {
		return m.repo.Release(ctx, lockID, token)
	}), nil
}

// tryInsert takes over a lock whose holder let it expire before the TTL monitor ran.
func (m *MongoLocker) tryInsert(ctx context.Context, lockID, spaceID, token string) (bool, error) {
	now := m.now()
	lock := &model.ReservationLock{
		ID:        lockID,
		SpaceID:   spaceID,
		Owner:     token,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}

	err := m.repo.Insert(ctx, lock)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, reservationserrors.ErrLockHeld) {
		return false, err
	}

	removed, err := m.repo.DeleteExpired(ctx, lockID, now)
	if err != nil || !removed {
		return false, err
	}

	err = m.repo.Insert(ctx, lock)
	if errors.Is(err, reservationserrors.ErrLockHeld) {
		return false, nil
	}
	return err == nil, err
}
