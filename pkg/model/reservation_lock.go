package model

import "time"

// ReservationLock is a space-scoped mutual exclusion record.
// Owner is a random token so only the holder can release the lock.
type ReservationLock struct {
	ID        string    `json:"id" bson:"_id"`
	SpaceID   string    `json:"space_id" bson:"space_id"`
	Owner     string    `json:"owner" bson:"owner"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
