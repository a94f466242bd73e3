package model

import "time"

type ReservationEventType string

const (
	ReservationCreated     ReservationEventType = "reservation.created"
	ReservationRescheduled ReservationEventType = "reservation.rescheduled"
	ReservationUpdated     ReservationEventType = "reservation.updated"
	ReservationCancelled   ReservationEventType = "reservation.cancelled"
)

// ReservationEvent is published after a reservation change is committed.
type ReservationEvent struct {
	Type          ReservationEventType `json:"type"`
	ReservationID string               `json:"reservation_id"`
	SpaceID       string               `json:"space_id"`
	OwnerID       string               `json:"owner_id"`
	StartTime     time.Time            `json:"start_time"`
	EndTime       time.Time            `json:"end_time"`
	PreviousStart *time.Time           `json:"previous_start_time,omitempty"`
	PreviousEnd   *time.Time           `json:"previous_end_time,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func (t ReservationEventType) Valid() bool {
	switch t {
	case ReservationCreated, ReservationRescheduled, ReservationUpdated, ReservationCancelled:
		return true
	}
	return false
}
