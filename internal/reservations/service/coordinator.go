package service

import (
	"context"
	"errors"
	"time"

	reservationserrors "spacebook/internal/reservations/errors"
	"spacebook/internal/reservations/lock"
	"spacebook/internal/reservations/repository"
	spaceserrors "spacebook/internal/spaces/errors"
	spacesrepository "spacebook/internal/spaces/repository"
	"spacebook/pkg/config"
	mongotx "spacebook/pkg/db/mongo"
	apperrors "spacebook/pkg/errors"
	"spacebook/pkg/interval"
	"spacebook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const lockReleaseTimeout = 5 * time.Second

// BookingRequest asks the coordinator to commit [Start, End) on SpaceID. When ExcludeID
// is set the existing reservation with that id is moved instead of a new one created.
type BookingRequest struct {
	SpaceID   string
	OwnerID   string
	EventName string
	Notes     string
	Start     time.Time
	End       time.Time
	ExcludeID string

	// NewEventName and NewNotes are written with the moved interval when ExcludeID is set.
	NewEventName *string
	NewNotes     *string
}

// Coordinator is the only writer of reservation intervals. It validates the interval,
// serializes per space through a Locker and runs check-then-commit in one transaction.
type Coordinator struct {
	spaces spacesrepository.SpaceRepository
	repo   repository.ReservationRepository
	locker lock.Locker
	cfg    *config.Config
}

func NewCoordinator(
	spaces spacesrepository.SpaceRepository,
	repo repository.ReservationRepository,
	locker lock.Locker,
	cfg *config.Config,
) *Coordinator {
	return &Coordinator{
		spaces: spaces,
		repo:   repo,
		locker: locker,
		cfg:    cfg,
	}
}

func (c *Coordinator) CheckAndBook(ctx context.Context, req BookingRequest) (*model.Reservation, error) {
	requested, err := interval.New(req.Start, req.End)
	if err != nil {
		return nil, apperrors.InvalidInterval(err.Error())
	}

	if _, err := c.spaces.FindByID(ctx, req.SpaceID); err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) || errors.Is(err, spaceserrors.ErrInvalidID) {
			return nil, apperrors.ResourceNotFound(req.SpaceID)
		}
		c.cfg.Log.ErrorContext(ctx, "Failed to resolve space", "space_id", req.SpaceID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	lease, err := c.locker.Acquire(ctx, req.SpaceID)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			if ctx.Err() != nil {
				c.cfg.Log.WarnContext(ctx, "Caller stopped waiting for space lock", "space_id", req.SpaceID, "reason", ctx.Err())
			} else {
				c.cfg.Log.WarnContext(ctx, "Space lock wait exceeded", "space_id", req.SpaceID)
			}
			return nil, apperrors.Busy(req.SpaceID)
		}
		c.cfg.Log.ErrorContext(ctx, "Failed to acquire space lock", "space_id", req.SpaceID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}
	defer c.release(ctx, lease)

	// The transaction has to end before the lease can expire.
	txCtx, cancel := context.WithTimeout(ctx, c.cfg.TransactionTimeout)
	defer cancel()

	var committed *model.Reservation
	err = c.repo.ExecuteTransaction(txCtx, func(sc mongo.SessionContext) error {
		// Fencing makes a second writer on this space abort even if our lease has lapsed.
		if err := c.repo.Fence(sc, req.SpaceID); err != nil {
			return err
		}
		if err := c.ensureSpace(sc, req.SpaceID); err != nil {
			return err
		}
		if err := c.check(sc, req, requested); err != nil {
			return err
		}

		var err error
		committed, err = c.commit(sc, req, requested)
		return err
	})
	if err != nil {
		return nil, c.transactionError(ctx, req.SpaceID, err)
	}

	return committed, nil
}

func (c *Coordinator) transactionError(ctx context.Context, spaceID string, err error) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, reservationserrors.ErrWriteConflict), mongotx.IsWriteConflict(err):
		c.cfg.Log.WarnContext(ctx, "Concurrent write on space fence", "space_id", spaceID, "error", err)
		return apperrors.Busy(spaceID)
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		c.cfg.Log.ErrorContext(ctx, "Booking transaction exceeded its budget",
			"space_id", spaceID,
			"budget", c.cfg.TransactionTimeout,
			"error", err,
		)
		return apperrors.StoreUnavailable(err)
	default:
		c.cfg.Log.ErrorContext(ctx, "Booking transaction failed", "space_id", spaceID, "error", err)
		return apperrors.StoreUnavailable(err)
	}
}

// ensureSpace re-reads the space inside the transaction so a space deleted while we
// waited for the lock is not booked.
func (c *Coordinator) ensureSpace(ctx context.Context, spaceID string) error {
	if _, err := c.spaces.FindByID(ctx, spaceID); err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) || errors.Is(err, spaceserrors.ErrInvalidID) {
			return apperrors.ResourceNotFound(spaceID)
		}
		return err
	}
	return nil
}

// check compares the request against every stored reservation of the space. A stored
// record with an unusable interval aborts the booking rather than being skipped.
func (c *Coordinator) check(ctx context.Context, req BookingRequest, requested interval.Interval) error {
	existing, err := c.repo.FindBySpace(ctx, req.SpaceID, req.ExcludeID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return apperrors.ReservationNotFound(req.ExcludeID)
		}
		return err
	}

	for _, r := range existing {
		stored, err := r.Interval()
		if err != nil {
			c.cfg.Log.ErrorContext(ctx, "Stored reservation has an invalid interval", "reservation_id", r.ID, "error", err)
			return apperrors.StoreUnavailable(err)
		}
		if interval.Conflicts(requested, stored) {
			c.cfg.Log.WarnContext(ctx, "Reservation conflict",
				"space_id", req.SpaceID,
				"requested", requested.String(),
				"existing", stored.String(),
			)
			return apperrors.Conflict("requested interval overlaps an existing reservation").WithDetails(map[string]any{
				"conflicting_start_time": stored.Start(),
				"conflicting_end_time":   stored.End(),
			})
		}
	}
	return nil
}

func (c *Coordinator) commit(ctx context.Context, req BookingRequest, requested interval.Interval) (*model.Reservation, error) {
	if req.ExcludeID == "" {
		reservation := &model.Reservation{
			SpaceID:   req.SpaceID,
			OwnerID:   req.OwnerID,
			EventName: req.EventName,
			Notes:     req.Notes,
			StartTime: requested.Start(),
			EndTime:   requested.End(),
		}
		if err := c.repo.Create(ctx, reservation); err != nil {
			return nil, err
		}
		return reservation, nil
	}

	if err := c.repo.UpdateInterval(ctx, req.ExcludeID, requested.Start(), requested.End()); err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.ReservationNotFound(req.ExcludeID)
		}
		return nil, err
	}

	if req.NewEventName != nil || req.NewNotes != nil {
		if err := c.repo.UpdateDetails(ctx, req.ExcludeID, req.NewEventName, req.NewNotes); err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) {
				return nil, apperrors.ReservationNotFound(req.ExcludeID)
			}
			return nil, err
		}
	}

	updated, err := c.repo.FindByID(ctx, req.ExcludeID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.ReservationNotFound(req.ExcludeID)
		}
		return nil, err
	}
	return updated, nil
}

// release runs on every exit path, including caller cancellation.
func (c *Coordinator) release(ctx context.Context, lease *lock.Lease) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
	defer cancel()

	if err := lease.Release(releaseCtx); err != nil {
		c.cfg.Log.WarnContext(ctx, "Failed to release space lock", "space_id", lease.SpaceID, "error", err)
	}
}
