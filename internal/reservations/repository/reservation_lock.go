package repository

import (
	"context"
	"fmt"
	reservationserrors "spacebook/internal/reservations/errors"
	"spacebook/pkg/config"
	mongotx "spacebook/pkg/db/mongo"
	"spacebook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Reservation_locks"

// ReservationLockRepository stores one document per locked space. The unique _id makes
// Insert the acquire step; a TTL index on expires_at cleans up after crashed holders.
type ReservationLockRepository interface {
	Insert(ctx context.Context, lock *model.ReservationLock) error
	// DeleteExpired removes lockID only if it expired before now.
	DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error)
	// Release removes lockID only if it is still held by owner.
	Release(ctx context.Context, lockID string, owner string) error
}

type mongoReservationLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationLockRepository(cfg *config.Config) ReservationLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoReservationLockRepository) Insert(ctx context.Context, lock *model.ReservationLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if lock.CreatedAt.IsZero() {
		lock.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return reservationserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to insert reservation lock: %w", err)
	}
	return nil
}

func (r *mongoReservationLockRepository) DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lockID,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete expired reservation lock: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoReservationLockRepository) Release(ctx context.Context, lockID string, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner}); err != nil {
		return fmt.Errorf("failed to release reservation lock: %w", err)
	}
	return nil
}
