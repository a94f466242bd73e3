package model

import (
	"spacebook/pkg/interval"
	"time"
)

type Reservation struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SpaceID   string    `json:"space_id" bson:"space_id" validate:"required,mongodb"`
	OwnerID   string    `json:"owner_id" bson:"owner_id" validate:"required,min=1,max=64"`
	EventName string    `json:"event_name" bson:"event_name" validate:"required,min=1,max=255"`
	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=2000"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// Interval returns the reservation's [start_time, end_time) range.
func (r *Reservation) Interval() (interval.Interval, error) {
	return interval.New(r.StartTime, r.EndTime)
}

// ReservationRequest is the client input for creating a reservation.
type ReservationRequest struct {
	SpaceID   string    `json:"space_id" validate:"required,mongodb"`
	OwnerID   string    `json:"owner_id" validate:"required,min=1,max=64"`
	EventName string    `json:"event_name" validate:"required,min=1,max=255"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Notes     string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type ReservationUpdate struct {
	EventName *string    `json:"event_name,omitempty" validate:"omitempty,min=1,max=255"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ChangesInterval reports whether applying the update could move the reservation.
func (u *ReservationUpdate) ChangesInterval() bool {
	return u.StartTime != nil || u.EndTime != nil
}
