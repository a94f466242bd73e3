package model

import (
	"fmt"
	"slices"
	"spacebook/pkg/interval"
	"time"
)

const ClockLayout = "15:04"

type SpaceType string

const (
	SpaceTypeRoom       SpaceType = "sala"
	SpaceTypeAuditorium SpaceType = "auditorio"
	SpaceTypeConference SpaceType = "conferencia"
	SpaceTypeWorkshop   SpaceType = "taller"
)

// SpaceTypes lists every accepted space type.
func SpaceTypes() []SpaceType {
	return []SpaceType{SpaceTypeRoom, SpaceTypeAuditorium, SpaceTypeConference, SpaceTypeWorkshop}
}

func (t SpaceType) Valid() bool {
	return slices.Contains(SpaceTypes(), t)
}

type Space struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name        string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Type        SpaceType `json:"type" bson:"type" validate:"required,oneof=sala auditorio conferencia taller"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=1000"`
	Location    string    `json:"location" bson:"location" validate:"required,min=2,max=200"`
	Capacity    int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=10000"`
	HourlyRate  float64   `json:"hourly_rate" bson:"hourly_rate" validate:"omitempty,min=0"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty" validate:"omitempty,url"`
	OpenTime    string    `json:"open_time" bson:"open_time" validate:"required,clock"`
	CloseTime   string    `json:"close_time" bson:"close_time" validate:"required,clock"`
	SlotMinutes int       `json:"slot_minutes" bson:"slot_minutes" validate:"required,min=5,max=1440"`
	TimeZone    string    `json:"time_zone" bson:"time_zone" validate:"required,timezone"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// SpaceUpdate is a partial update. Nil fields keep their stored value.
type SpaceUpdate struct {
	Name        *string    `json:"name,omitempty"`
	Type        *SpaceType `json:"type,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Capacity    *int       `json:"capacity,omitempty"`
	HourlyRate  *float64   `json:"hourly_rate,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	OpenTime    *string    `json:"open_time,omitempty"`
	CloseTime   *string    `json:"close_time,omitempty"`
	SlotMinutes *int       `json:"slot_minutes,omitempty"`
	TimeZone    *string    `json:"time_zone,omitempty"`
}

func (u *SpaceUpdate) Empty() bool {
	return u.Name == nil && u.Type == nil && u.Description == nil && u.Location == nil &&
		u.Capacity == nil && u.HourlyRate == nil && u.ImageURL == nil &&
		u.OpenTime == nil && u.CloseTime == nil && u.SlotMinutes == nil && u.TimeZone == nil
}

// Apply copies every set field onto space.
func (u *SpaceUpdate) Apply(space *Space) {
	set(&space.Name, u.Name)
	set(&space.Type, u.Type)
	set(&space.Description, u.Description)
	set(&space.Location, u.Location)
	set(&space.Capacity, u.Capacity)
	set(&space.HourlyRate, u.HourlyRate)
	set(&space.ImageURL, u.ImageURL)
	set(&space.OpenTime, u.OpenTime)
	set(&space.CloseTime, u.CloseTime)
	set(&space.SlotMinutes, u.SlotMinutes)
	set(&space.TimeZone, u.TimeZone)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// SpaceFilter narrows space listings. Zero fields match everything.
type SpaceFilter struct {
	MinCapacity int
	MaxCapacity int
	// Search matches name or description, case-insensitively.
	Search string
	Type   SpaceType
}

// BusinessHours is the resolved daily booking window of a space.
type BusinessHours struct {
	Open        time.Duration // offset from local midnight
	Close       time.Duration
	Granularity time.Duration
	Location    *time.Location
}

func (s *Space) BusinessHours() (BusinessHours, error) {
	open, err := parseClock(s.OpenTime)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("invalid open_time %q: %w", s.OpenTime, err)
	}
	closing, err := parseClock(s.CloseTime)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("invalid close_time %q: %w", s.CloseTime, err)
	}
	if closing <= open {
		return BusinessHours{}, fmt.Errorf("close_time %s must be after open_time %s", s.CloseTime, s.OpenTime)
	}
	if s.SlotMinutes <= 0 {
		return BusinessHours{}, fmt.Errorf("slot_minutes must be positive, got %d", s.SlotMinutes)
	}
	loc := time.UTC
	if s.TimeZone != "" {
		loc, err = time.LoadLocation(s.TimeZone)
		if err != nil {
			return BusinessHours{}, fmt.Errorf("invalid time_zone %q: %w", s.TimeZone, err)
		}
	}
	return BusinessHours{
		Open:        open,
		Close:       closing,
		Granularity: time.Duration(s.SlotMinutes) * time.Minute,
		Location:    loc,
	}, nil
}

// Window returns the business-day window for the calendar day of date.
func (h BusinessHours) Window(date time.Time) (interval.Interval, error) {
	y, m, d := date.Date()
	open := h.clockOn(y, m, d, h.Open)
	closing := h.clockOn(y, m, d, h.Close)
	return interval.New(open, closing)
}

// clockOn builds the wall clock time on the given day, so DST shifts do not move slots.
func (h BusinessHours) clockOn(y int, m time.Month, d int, offset time.Duration) time.Time {
	hours := int(offset / time.Hour)
	minutes := int((offset % time.Hour) / time.Minute)
	return time.Date(y, m, d, hours, minutes, 0, 0, h.Location)
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
