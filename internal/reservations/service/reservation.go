package service

import (
	"context"
	"errors"
	"time"

	reservationserrors "spacebook/internal/reservations/errors"
	"spacebook/internal/reservations/events"
	"spacebook/internal/reservations/repository"
	"spacebook/internal/reservations/validator"
	"spacebook/pkg/config"
	apperrors "spacebook/pkg/errors"
	"spacebook/pkg/model"
	"spacebook/pkg/sanitizer"
	"spacebook/pkg/validation"

	"golang.org/x/sync/errgroup"
)

type ReservationService interface {
	Create(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	ListBySpace(ctx context.Context, spaceID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	Reschedule(ctx context.Context, id string, start, end time.Time) (*model.Reservation, error)
	Update(ctx context.Context, id string, update *model.ReservationUpdate) (*model.Reservation, error)
	// Cancel is idempotent: cancelling a missing reservation succeeds.
	Cancel(ctx context.Context, id string) error
}

type reservationService struct {
	repo        repository.ReservationRepository
	coordinator *Coordinator
	validator   *validator.ReservationValidator
	publisher   events.Publisher
	cfg         *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	coordinator *Coordinator,
	validator *validator.ReservationValidator,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:        repo,
		coordinator: coordinator,
		validator:   validator,
		publisher:   publisher,
		cfg:         cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error) {
	s.sanitizeRequest(req)

	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.WarnContext(ctx, "Reservation validation failed", "space_id", req.SpaceID, "error", err)
		return nil, validationError(err)
	}

	reservation, err := s.coordinator.CheckAndBook(ctx, BookingRequest{
		SpaceID:   req.SpaceID,
		OwnerID:   req.OwnerID,
		EventName: req.EventName,
		Notes:     req.Notes,
		Start:     normalize(req.StartTime),
		End:       normalize(req.EndTime),
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.InfoContext(ctx, "Reservation created successfully",
		"id", reservation.ID,
		"space_id", reservation.SpaceID,
		"owner_id", reservation.OwnerID,
		"start_time", reservation.StartTime,
		"end_time", reservation.EndTime,
	)
	s.publish(ctx, model.ReservationCreated, reservation, nil)
	return reservation, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.ReservationNotFound(id)
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to retrieve reservation", "id", id, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}
	return reservation, nil
}

func (s *reservationService) ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	ownerID = sanitizer.SanitizeID(ownerID)
	if ownerID == "" {
		return nil, 0, apperrors.InvalidInput("owner_id is required")
	}
	return s.list(ctx, repository.ListFilter{OwnerID: ownerID}, limit, offset)
}

func (s *reservationService) ListBySpace(ctx context.Context, spaceID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	spaceID = sanitizer.SanitizeID(spaceID)
	if spaceID == "" {
		return nil, 0, apperrors.InvalidInput("space_id is required")
	}
	return s.list(ctx, repository.ListFilter{SpaceID: spaceID}, limit, offset)
}

func (s *reservationService) list(ctx context.Context, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, int64, error) {
	var (
		count        int64
		reservations []*model.Reservation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		reservations, err = s.repo.Find(gctx, filter, limit, offset)
		return err
	})

	if err := g.Wait(); err != nil {
		s.cfg.Log.ErrorContext(ctx, "Failed to list reservations",
			"owner_id", filter.OwnerID,
			"space_id", filter.SpaceID,
			"error", err,
		)
		return nil, 0, apperrors.StoreUnavailable(err)
	}

	return reservations, count, nil
}

// Reschedule moves a reservation. On any failure the stored reservation is unchanged.
func (s *reservationService) Reschedule(ctx context.Context, id string, start, end time.Time) (*model.Reservation, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reschedule(ctx, current, start, end, nil)
}

// reschedule moves current and, when details is set, writes its event_name and notes
// in the same transaction.
func (s *reservationService) reschedule(ctx context.Context, current *model.Reservation, start, end time.Time, details *model.ReservationUpdate) (*model.Reservation, error) {
	previous := *current

	req := BookingRequest{
		SpaceID:   current.SpaceID,
		OwnerID:   current.OwnerID,
		EventName: current.EventName,
		Notes:     current.Notes,
		Start:     normalize(start),
		End:       normalize(end),
		ExcludeID: current.ID,
	}
	if details != nil {
		req.NewEventName = details.EventName
		req.NewNotes = details.Notes
	}

	updated, err := s.coordinator.CheckAndBook(ctx, req)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.InfoContext(ctx, "Reservation rescheduled successfully",
		"id", updated.ID,
		"space_id", updated.SpaceID,
		"start_time", updated.StartTime,
		"end_time", updated.EndTime,
	)
	s.publish(ctx, model.ReservationRescheduled, updated, &previous)
	return updated, nil
}

// Update applies event_name and notes, and goes through the coordinator only when
// the interval changes. A moved reservation gets its field changes in the same
// transaction as the new interval.
func (s *reservationService) Update(ctx context.Context, id string, update *model.ReservationUpdate) (*model.Reservation, error) {
	if update == nil || (update.EventName == nil && update.Notes == nil && !update.ChangesInterval()) {
		return nil, apperrors.InvalidInput("No fields to update")
	}

	sanitizer.SanitizePtr(update.EventName, sanitizer.SanitizeText)
	sanitizer.SanitizePtr(update.Notes, sanitizer.SanitizeNotes)
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.WarnContext(ctx, "Reservation update validation failed", "id", id, "error", err)
		return nil, validationError(err)
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changesDetails := update.EventName != nil || update.Notes != nil

	if update.ChangesInterval() {
		start, end := current.StartTime, current.EndTime
		if update.StartTime != nil {
			start = *update.StartTime
		}
		if update.EndTime != nil {
			end = *update.EndTime
		}
		if !normalize(start).Equal(current.StartTime) || !normalize(end).Equal(current.EndTime) {
			updated, err := s.reschedule(ctx, current, start, end, update)
			if err != nil {
				return nil, err
			}
			if changesDetails {
				s.publish(ctx, model.ReservationUpdated, updated, nil)
			}
			return updated, nil
		}
	}

	if !changesDetails {
		return current, nil
	}

	if err := s.repo.UpdateDetails(ctx, id, update.EventName, update.Notes); err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.ReservationNotFound(id)
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to update reservation", "id", id, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	if update.EventName != nil {
		current.EventName = *update.EventName
	}
	if update.Notes != nil {
		current.Notes = *update.Notes
	}

	s.cfg.Log.InfoContext(ctx, "Reservation updated successfully", "id", id)
	s.publish(ctx, model.ReservationUpdated, current, nil)
	return current, nil
}

func (s *reservationService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			s.cfg.Log.InfoContext(ctx, "Reservation already cancelled", "id", id)
			return nil
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to retrieve reservation for cancellation", "id", id, "error", err)
		return apperrors.StoreUnavailable(err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to cancel reservation", "id", id, "error", err)
		return apperrors.StoreUnavailable(err)
	}

	s.cfg.Log.InfoContext(ctx, "Reservation cancelled successfully", "id", id, "space_id", current.SpaceID)
	s.publish(ctx, model.ReservationCancelled, current, nil)
	return nil
}

// publish never fails the caller: the change is already committed.
func (s *reservationService) publish(ctx context.Context, eventType model.ReservationEventType, r *model.Reservation, previous *model.Reservation) {
	event := model.ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
		OwnerID:       r.OwnerID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		OccurredAt:    time.Now().UTC(),
	}
	if previous != nil {
		event.PreviousStart = &previous.StartTime
		event.PreviousEnd = &previous.EndTime
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.WarnContext(ctx, "Failed to publish reservation event",
			"type", eventType,
			"reservation_id", r.ID,
			"error", err,
		)
	}
}

func (s *reservationService) sanitizeRequest(req *model.ReservationRequest) {
	req.SpaceID = sanitizer.SanitizeID(req.SpaceID)
	req.OwnerID = sanitizer.SanitizeID(req.OwnerID)
	req.EventName = sanitizer.SanitizeText(req.EventName)
	req.Notes = sanitizer.SanitizeNotes(req.Notes)
}

// normalize matches the precision Mongo stores, so equality checks after a
// round trip hold.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid reservation input", verrs.Details())
	}
	return apperrors.Validation("Invalid reservation input", map[string]any{"error": err.Error()})
}
