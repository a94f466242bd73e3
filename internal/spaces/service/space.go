package service

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "spacebook/internal/reservations/errors"
	"spacebook/internal/reservations/lock"
	reservationsrepository "spacebook/internal/reservations/repository"
	spaceserrors "spacebook/internal/spaces/errors"
	"spacebook/internal/spaces/repository"
	"spacebook/internal/spaces/validator"
	"spacebook/pkg/config"
	mongotx "spacebook/pkg/db/mongo"
	apperrors "spacebook/pkg/errors"
	"spacebook/pkg/model"
	"spacebook/pkg/sanitizer"
	"spacebook/pkg/validation"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const lockReleaseTimeout = 5 * time.Second

type SpaceService interface {
	Create(ctx context.Context, space *model.Space) error
	GetByID(ctx context.Context, id string) (*model.Space, error)
	GetAll(ctx context.Context, filter model.SpaceFilter, limit int, offset int64) ([]*model.Space, int64, error)
	Update(ctx context.Context, id string, update *model.SpaceUpdate) (*model.Space, error)
	// Delete refuses while the space has reservations that have not ended yet.
	Delete(ctx context.Context, id string) error
}

// ReservationStore is the part of the reservation store a space delete has to consult.
type ReservationStore interface {
	Count(ctx context.Context, filter reservationsrepository.ListFilter) (int64, error)
	Fence(ctx context.Context, spaceID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type spaceService struct {
	repo         repository.SpaceRepository
	reservations ReservationStore
	locker       lock.Locker
	validator    *validator.SpaceValidator
	cfg          *config.Config
}

func NewSpaceService(
	repo repository.SpaceRepository,
	reservations ReservationStore,
	locker lock.Locker,
	validator *validator.SpaceValidator,
	cfg *config.Config,
) SpaceService {
	return &spaceService{
		repo:         repo,
		reservations: reservations,
		locker:       locker,
		validator:    validator,
		cfg:          cfg,
	}
}

func (s *spaceService) Create(ctx context.Context, space *model.Space) error {
	s.applyDefaults(space)
	s.sanitize(space)

	if err := s.validator.Validate(space); err != nil {
		s.cfg.Log.WarnContext(ctx, "Space validation failed", "name", space.Name, "error", err)
		return validationError(err)
	}

	if err := s.repo.Create(ctx, space); err != nil {
		s.cfg.Log.ErrorContext(ctx, "Failed to create space", "error", err)
		return apperrors.StoreUnavailable(err)
	}

	s.cfg.Log.InfoContext(ctx, "Space created successfully",
		"id", space.ID,
		"name", space.Name,
		"open_time", space.OpenTime,
		"close_time", space.CloseTime,
	)
	return nil
}

func (s *spaceService) GetByID(ctx context.Context, id string) (*model.Space, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Space ID cannot be empty")
	}

	space, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) || errors.Is(err, spaceserrors.ErrInvalidID) {
			return nil, apperrors.ResourceNotFound(id)
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to retrieve space", "id", id, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	return space, nil
}

func (s *spaceService) GetAll(ctx context.Context, filter model.SpaceFilter, limit int, offset int64) ([]*model.Space, int64, error) {
	filter.Search = sanitizer.SanitizeText(filter.Search)
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}

	var (
		count  int64
		spaces []*model.Space
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		spaces, err = s.repo.FindAll(gctx, filter, limit, offset)
		return err
	})

	if err := g.Wait(); err != nil {
		s.cfg.Log.ErrorContext(ctx, "Failed to list spaces", "error", err)
		return nil, 0, apperrors.StoreUnavailable(err)
	}

	return spaces, count, nil
}

// Update applies the set fields and validates the result as a whole, so new business
// hours are checked against the fields that were left alone.
func (s *spaceService) Update(ctx context.Context, id string, update *model.SpaceUpdate) (*model.Space, error) {
	if update == nil || update.Empty() {
		return nil, apperrors.InvalidInput("No fields to update")
	}

	space, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(space)
	s.sanitize(space)
	if err := s.validator.Validate(space); err != nil {
		s.cfg.Log.WarnContext(ctx, "Space update validation failed", "id", id, "error", err)
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, space); err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) {
			return nil, apperrors.ResourceNotFound(id)
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to update space", "id", id, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	s.cfg.Log.InfoContext(ctx, "Space updated successfully", "id", id)
	return space, nil
}

// Delete holds the space lock and fences the space, so no booking can commit between
// the upcoming reservation count and the delete.
func (s *spaceService) Delete(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	lease, err := s.locker.Acquire(ctx, id)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			s.cfg.Log.WarnContext(ctx, "Space lock wait exceeded", "space_id", id)
			return apperrors.Busy(id)
		}
		s.cfg.Log.ErrorContext(ctx, "Failed to acquire space lock", "space_id", id, "error", err)
		return apperrors.StoreUnavailable(err)
	}
	defer s.release(ctx, lease)

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TransactionTimeout)
	defer cancel()

	err = s.reservations.ExecuteTransaction(txCtx, func(sc mongo.SessionContext) error {
		if err := s.reservations.Fence(sc, id); err != nil {
			return err
		}

		upcoming, err := s.reservations.Count(sc, reservationsrepository.ListFilter{
			SpaceID:   id,
			EndsAfter: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if upcoming > 0 {
			return apperrors.Conflict("space has upcoming reservations").WithDetails(map[string]any{
				"upcoming_reservations": upcoming,
			})
		}

		if err := s.repo.Delete(sc, id); err != nil {
			if errors.Is(err, spaceserrors.ErrNotFound) {
				return apperrors.ResourceNotFound(id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		switch {
		case apperrors.IsAppError(err):
			return err
		case errors.Is(err, reservationserrors.ErrWriteConflict), mongotx.IsWriteConflict(err):
			s.cfg.Log.WarnContext(ctx, "Concurrent write on space fence", "space_id", id, "error", err)
			return apperrors.Busy(id)
		default:
			s.cfg.Log.ErrorContext(ctx, "Failed to delete space", "id", id, "error", err)
			return apperrors.StoreUnavailable(err)
		}
	}

	s.cfg.Log.InfoContext(ctx, "Space deleted successfully", "id", id)
	return nil
}

func (s *spaceService) release(ctx context.Context, lease *lock.Lease) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
	defer cancel()

	if err := lease.Release(releaseCtx); err != nil {
		s.cfg.Log.WarnContext(ctx, "Failed to release space lock", "space_id", lease.SpaceID, "error", err)
	}
}

func validateFilter(f model.SpaceFilter) error {
	switch {
	case f.MinCapacity < 0:
		return apperrors.InvalidInput(fmt.Sprintf("min_capacity cannot be negative, got %d", f.MinCapacity))
	case f.MaxCapacity < 0:
		return apperrors.InvalidInput(fmt.Sprintf("max_capacity cannot be negative, got %d", f.MaxCapacity))
	case f.MaxCapacity > 0 && f.MinCapacity > f.MaxCapacity:
		return apperrors.InvalidInput("min_capacity cannot be greater than max_capacity")
	case f.Type != "" && !f.Type.Valid():
		return apperrors.InvalidInput(fmt.Sprintf("unknown space type %q", f.Type))
	}
	return nil
}

func (s *spaceService) applyDefaults(space *model.Space) {
	defaults := s.cfg.DefaultSpaceHours()
	if space.OpenTime == "" {
		space.OpenTime = defaults.OpenTime
	}
	if space.CloseTime == "" {
		space.CloseTime = defaults.CloseTime
	}
	if space.SlotMinutes == 0 {
		space.SlotMinutes = defaults.SlotMinutes
	}
	if space.TimeZone == "" {
		space.TimeZone = defaults.TimeZone
	}
	if space.Capacity == 0 {
		space.Capacity = 1
	}
	if space.Type == "" {
		space.Type = model.SpaceTypeRoom
	}
}

func (s *spaceService) sanitize(space *model.Space) {
	space.Name = sanitizer.SanitizeText(space.Name)
	space.Type = model.SpaceType(sanitizer.SanitizeID(string(space.Type)))
	space.Description = sanitizer.SanitizeNotes(space.Description)
	space.Location = sanitizer.SanitizeText(space.Location)
	space.ImageURL = sanitizer.SanitizeURL(space.ImageURL)
	space.OpenTime = sanitizer.SanitizeID(space.OpenTime)
	space.CloseTime = sanitizer.SanitizeID(space.CloseTime)
	space.TimeZone = sanitizer.SanitizeID(space.TimeZone)
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid space input", verrs.Details())
	}
	return apperrors.Validation("Invalid space input", map[string]any{"error": err.Error()})
}
