package repository

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "spacebook/internal/reservations/errors"
	"spacebook/pkg/config"
	mongotx "spacebook/pkg/db/mongo"
	"spacebook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Reservations"
	// FencesCollectionName holds one document per space, written by every booking transaction.
	FencesCollectionName = "Reservation_fences"
)

// ListFilter narrows Find and Count. Empty fields match everything.
type ListFilter struct {
	OwnerID string
	SpaceID string
	// EndsAfter keeps reservations that end after the given instant.
	EndsAfter time.Time
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	// FindBySpace returns every reservation of a space, skipping excludeID when set.
	FindBySpace(ctx context.Context, spaceID string, excludeID string) ([]*model.Reservation, error)
	// FindBySpaceInWindow returns reservations of a space that intersect [from, to).
	FindBySpaceInWindow(ctx context.Context, spaceID string, from, to time.Time) ([]*model.Reservation, error)
	Find(ctx context.Context, filter ListFilter, limit int, offset int64) ([]*model.Reservation, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	UpdateInterval(ctx context.Context, id string, start, end time.Time) error
	UpdateDetails(ctx context.Context, id string, eventName, notes *string) error
	Delete(ctx context.Context, id string) error
	// Fence bumps the space's fence document. Two transactions fencing the same
	// space cannot both commit; the loser gets ErrWriteConflict.
	Fence(ctx context.Context, spaceID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	fences     *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		fences:     db.Collection(FencesCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var reservation model.Reservation
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&reservation); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) FindBySpace(ctx context.Context, spaceID string, excludeID string) ([]*model.Reservation, error) {
	filter := bson.M{"space_id": spaceID}
	if excludeID != "" {
		objectID, err := objectIDFromHex(excludeID)
		if err != nil {
			return nil, err
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
}

func (r *mongoReservationRepository) FindBySpaceInWindow(ctx context.Context, spaceID string, from, to time.Time) ([]*model.Reservation, error) {
	filter := bson.M{
		"space_id":   spaceID,
		"start_time": bson.M{"$lt": to},
		"end_time":   bson.M{"$gt": from},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
}

func (r *mongoReservationRepository) Find(ctx context.Context, filter ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, buildListFilter(filter), opts)
}

func (r *mongoReservationRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildListFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) UpdateInterval(ctx context.Context, id string, start, end time.Time) error {
	return r.update(ctx, id, bson.M{
		"start_time": start,
		"end_time":   end,
	})
}

func (r *mongoReservationRepository) UpdateDetails(ctx context.Context, id string, eventName, notes *string) error {
	set := bson.M{}
	if eventName != nil {
		set["event_name"] = *eventName
	}
	if notes != nil {
		set["notes"] = *notes
	}
	return r.update(ctx, id, set)
}

func (r *mongoReservationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if result.DeletedCount == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) Fence(ctx context.Context, spaceID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$inc":         bson.M{"version": 1},
		"$currentDate": bson.M{"updated_at": true},
	}
	_, err := r.fences.UpdateOne(ctx, bson.M{"_id": spaceID}, update, options.Update().SetUpsert(true))
	if err != nil {
		// two first-time upserts of the same space race on _id
		if mongotx.IsWriteConflict(err) || mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %w", reservationserrors.ErrWriteConflict, err)
		}
		return fmt.Errorf("failed to fence space: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	reservations := []*model.Reservation{}
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) update(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func buildListFilter(f ListFilter) bson.M {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.SpaceID != "" {
		filter["space_id"] = f.SpaceID
	}
	if !f.EndsAfter.IsZero() {
		filter["end_time"] = bson.M{"$gt": f.EndsAfter}
	}
	return filter
}

func objectIDFromHex(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}
	return objectID, nil
}
