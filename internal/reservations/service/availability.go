package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"spacebook/internal/reservations/repository"
	spaceserrors "spacebook/internal/spaces/errors"
	spacesrepository "spacebook/internal/spaces/repository"
	"spacebook/pkg/config"
	apperrors "spacebook/pkg/errors"
	"spacebook/pkg/interval"
	"spacebook/pkg/model"
)

type AvailabilityService interface {
	// Availability returns the slots of one business day, earliest first. A
	// granularityMinutes of zero uses the space's own slot size.
	Availability(ctx context.Context, spaceID string, date string, granularityMinutes int) (iter.Seq[model.AvailabilitySlot], error)
}

type availabilityService struct {
	spaces spacesrepository.SpaceRepository
	repo   repository.ReservationRepository
	cfg    *config.Config
}

func NewAvailabilityService(spaces spacesrepository.SpaceRepository, repo repository.ReservationRepository, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		spaces: spaces,
		repo:   repo,
		cfg:    cfg,
	}
}

func (s *availabilityService) Availability(ctx context.Context, spaceID string, date string, granularityMinutes int) (iter.Seq[model.AvailabilitySlot], error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, apperrors.InvalidDate(date)
	}
	if granularityMinutes < 0 {
		return nil, apperrors.InvalidInput("granularity must be a positive number of minutes")
	}

	space, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) || errors.Is(err, spaceserrors.ErrInvalidID) {
			return nil, apperrors.ResourceNotFound(spaceID)
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to resolve space", "space_id", spaceID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	hours, err := space.BusinessHours()
	if err != nil {
		s.cfg.Log.ErrorContext(ctx, "Space has invalid business hours", "space_id", spaceID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	day, _ := time.ParseInLocation(time.DateOnly, date, hours.Location)

	window, err := hours.Window(day)
	if err != nil {
		// a DST gap can swallow the whole window
		return nil, apperrors.InvalidDate(date)
	}

	granularity := hours.Granularity
	if granularityMinutes != 0 {
		// bound before multiplying so large values cannot wrap around
		maxMinutes := int(window.Duration() / time.Minute)
		if granularityMinutes > maxMinutes {
			return nil, apperrors.InvalidInput(fmt.Sprintf(
				"granularity must be between 1 and %d minutes", maxMinutes))
		}
		granularity = time.Duration(granularityMinutes) * time.Minute
	}

	reservations, err := s.repo.FindBySpaceInWindow(ctx, spaceID, window.Start(), window.End())
	if err != nil {
		s.cfg.Log.ErrorContext(ctx, "Failed to load reservations for availability", "space_id", spaceID, "date", date, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	booked := make([]interval.Interval, 0, len(reservations))
	for _, r := range reservations {
		iv, err := r.Interval()
		if err != nil {
			s.cfg.Log.ErrorContext(ctx, "Stored reservation has an invalid interval", "reservation_id", r.ID, "error", err)
			return nil, apperrors.StoreUnavailable(err)
		}
		booked = append(booked, iv)
	}

	return Slots(window, granularity, booked), nil
}

// Slots cuts window into granularity-wide slots. A slot is unavailable when it
// conflicts with any booked interval; a trailing remainder shorter than granularity
// is not emitted. The sequence can be ranged over any number of times.
func Slots(window interval.Interval, granularity time.Duration, booked []interval.Interval) iter.Seq[model.AvailabilitySlot] {
	return func(yield func(model.AvailabilitySlot) bool) {
		if granularity <= 0 {
			return
		}
		for start := window.Start(); !start.Add(granularity).After(window.End()); start = start.Add(granularity) {
			slot := interval.MustNew(start, start.Add(granularity))
			_, taken := interval.FirstConflict(slot, booked)
			if !yield(model.AvailabilitySlot{
				Start:     slot.Start(),
				End:       slot.End(),
				Available: !taken,
			}) {
				return
			}
		}
	}
}
