package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	reservationserrors "spacebook/internal/reservations/errors"
	"spacebook/internal/reservations/lock"
	"spacebook/internal/reservations/repository"
	"spacebook/internal/reservations/validator"
	spaceserrors "spacebook/internal/spaces/errors"
	"spacebook/pkg/config"
	mongotx "spacebook/pkg/db/mongo"
	"spacebook/pkg/logger"
	"spacebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeSpaceRepository struct {
	mu      sync.Mutex
	spaces  map[string]*model.Space
	failErr error
	reads   int
}

func (f *fakeSpaceRepository) Create(_ context.Context, space *model.Space) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	space.ID = primitive.NewObjectID().Hex()
	cp := *space
	f.spaces[space.ID] = &cp
	return nil
}

func (f *fakeSpaceRepository) FindByID(_ context.Context, id string) (*model.Space, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failErr != nil {
		return nil, f.failErr
	}
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", spaceserrors.ErrInvalidID, id)
	}
	space, ok := f.spaces[id]
	if !ok {
		return nil, spaceserrors.ErrNotFound
	}
	cp := *space
	return &cp, nil
}

func (f *fakeSpaceRepository) FindAll(context.Context, model.SpaceFilter, int, int64) ([]*model.Space, error) {
	return nil, nil
}

func (f *fakeSpaceRepository) Count(context.Context, model.SpaceFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.spaces)), nil
}

func (f *fakeSpaceRepository) Update(_ context.Context, space *model.Space) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.spaces[space.ID]; !ok {
		return spaceserrors.ErrNotFound
	}
	cp := *space
	f.spaces[space.ID] = &cp
	return nil
}

func (f *fakeSpaceRepository) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.spaces[id]; !ok {
		return spaceserrors.ErrNotFound
	}
	delete(f.spaces, id)
	return nil
}

type fakeTxKey struct{}

// fakeTx tracks what one ExecuteTransaction call wrote so it can be undone.
type fakeTx struct {
	fences map[string]int
	undo   []func()
}

// fakeReservationRepository keeps reservations in memory. Writes are visible at once,
// but a failed transaction undoes its own writes, and fences follow Mongo's write
// conflict rules: a fence held by another open transaction, or bumped since this
// transaction started, fails with ErrWriteConflict.
type fakeReservationRepository struct {
	mu           sync.Mutex
	reservations map[string]*model.Reservation
	fences       map[string]int
	fenceHolders map[string]*fakeTx
	failErr      error
	txErr        error
	detailsErr   error
	fenceErr     error
	calls        int
	// checkDelay widens the window between the conflict check and the commit.
	checkDelay time.Duration
}

func newFakeReservationRepository() *fakeReservationRepository {
	return &fakeReservationRepository{
		reservations: map[string]*model.Reservation{},
		fences:       map[string]int{},
		fenceHolders: map[string]*fakeTx{},
	}
}

func (f *fakeReservationRepository) enter() error {
	f.mu.Lock()
	f.calls++
	return f.failErr
}

// record must be called with f.mu held.
func (f *fakeReservationRepository) record(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(fakeTxKey{}).(*fakeTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

func (f *fakeReservationRepository) Create(ctx context.Context, r *model.Reservation) error {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	r.ID = primitive.NewObjectID().Hex()
	r.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.UpdatedAt = r.CreatedAt
	cp := *r
	f.reservations[r.ID] = &cp
	f.record(ctx, func() { delete(f.reservations, cp.ID) })
	return nil
}

func (f *fakeReservationRepository) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}
	r, ok := f.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReservationRepository) FindBySpace(ctx context.Context, spaceID string, excludeID string) ([]*model.Reservation, error) {
	f.mu.Lock()
	f.calls++
	if f.failErr != nil {
		f.mu.Unlock()
		return nil, f.failErr
	}
	out := f.matching(func(r *model.Reservation) bool {
		return r.SpaceID == spaceID && r.ID != excludeID
	})
	delay := f.checkDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

func (f *fakeReservationRepository) FindBySpaceInWindow(_ context.Context, spaceID string, from, to time.Time) ([]*model.Reservation, error) {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.matching(func(r *model.Reservation) bool {
		return r.SpaceID == spaceID && r.StartTime.Before(to) && r.EndTime.After(from)
	}), nil
}

func (f *fakeReservationRepository) Find(_ context.Context, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	all := f.matching(listFilterMatch(filter))
	if offset >= int64(len(all)) {
		return []*model.Reservation{}, nil
	}
	end := min(int(offset)+limit, len(all))
	return all[offset:end], nil
}

func (f *fakeReservationRepository) Count(_ context.Context, filter repository.ListFilter) (int64, error) {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return 0, err
	}
	return int64(len(f.matching(listFilterMatch(filter)))), nil
}

func listFilterMatch(filter repository.ListFilter) func(*model.Reservation) bool {
	return func(r *model.Reservation) bool {
		return (filter.OwnerID == "" || r.OwnerID == filter.OwnerID) &&
			(filter.SpaceID == "" || r.SpaceID == filter.SpaceID) &&
			(filter.EndsAfter.IsZero() || r.EndTime.After(filter.EndsAfter))
	}
}

func (f *fakeReservationRepository) UpdateInterval(ctx context.Context, id string, start, end time.Time) error {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	r, ok := f.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	oldStart, oldEnd := r.StartTime, r.EndTime
	r.StartTime, r.EndTime = start, end
	f.record(ctx, func() { r.StartTime, r.EndTime = oldStart, oldEnd })
	return nil
}

func (f *fakeReservationRepository) UpdateDetails(ctx context.Context, id string, eventName, notes *string) error {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	if f.detailsErr != nil {
		return f.detailsErr
	}
	r, ok := f.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	oldName, oldNotes := r.EventName, r.Notes
	if eventName != nil {
		r.EventName = *eventName
	}
	if notes != nil {
		r.Notes = *notes
	}
	f.record(ctx, func() { r.EventName, r.Notes = oldName, oldNotes })
	return nil
}

func (f *fakeReservationRepository) Delete(ctx context.Context, id string) error {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	r, ok := f.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	delete(f.reservations, id)
	f.record(ctx, func() { f.reservations[id] = r })
	return nil
}

func (f *fakeReservationRepository) Fence(ctx context.Context, spaceID string) error {
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	if f.fenceErr != nil {
		return f.fenceErr
	}
	tx, ok := ctx.Value(fakeTxKey{}).(*fakeTx)
	if !ok {
		f.fences[spaceID]++
		return nil
	}
	if holder, held := f.fenceHolders[spaceID]; held && holder != tx {
		return fmt.Errorf("%w: fence of %s held by another transaction", reservationserrors.ErrWriteConflict, spaceID)
	}
	if f.fences[spaceID] != tx.fences[spaceID] {
		return fmt.Errorf("%w: fence of %s moved since the transaction started", reservationserrors.ErrWriteConflict, spaceID)
	}
	f.fenceHolders[spaceID] = tx
	f.fences[spaceID]++
	tx.fences[spaceID] = f.fences[spaceID]
	f.record(ctx, func() { f.fences[spaceID]-- })
	return nil
}

func (f *fakeReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	f.mu.Lock()
	txErr := f.txErr
	tx := &fakeTx{fences: maps.Clone(f.fences)}
	f.mu.Unlock()
	if txErr != nil {
		return txErr
	}

	err := fn(mongo.NewSessionContext(context.WithValue(ctx, fakeTxKey{}, tx), nil))

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	for spaceID, holder := range f.fenceHolders {
		if holder == tx {
			delete(f.fenceHolders, spaceID)
		}
	}
	return err
}

// fenceHeld reports whether an open transaction holds the fence of spaceID.
func (f *fakeReservationRepository) fenceHeld(spaceID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.fenceHolders[spaceID]
	return ok
}

// matching must be called with f.mu held.
func (f *fakeReservationRepository) matching(keep func(*model.Reservation) bool) []*model.Reservation {
	out := []*model.Reservation{}
	for _, r := range f.reservations {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.Reservation) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (f *fakeReservationRepository) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeReservationRepository) put(r *model.Reservation) *model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = primitive.NewObjectID().Hex()
	}
	cp := *r
	f.reservations[r.ID] = &cp
	return r
}

func (f *fakeReservationRepository) all() []*model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matching(func(*model.Reservation) bool { return true })
}

// stubLocker hands out leases immediately unless err is set.
type stubLocker struct {
	mu       sync.Mutex
	err      error
	acquired int
	released int
}

func (s *stubLocker) Acquire(_ context.Context, spaceID string) (*lock.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.acquired++
	return lock.NewLease(spaceID, "stub", func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.released++
		return nil
	}), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []model.ReservationEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.ReservationEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		LockTTL:            config.DefaultLockTTL,
		LockWaitTimeout:    config.DefaultLockWaitTimeout,
		TransactionTimeout: config.DefaultTransactionTimeout,
		Log:                logger.Nop(),
	}
}

type fixture struct {
	cfg          *config.Config
	spaces       *fakeSpaceRepository
	repo         *fakeReservationRepository
	locker       *stubLocker
	publisher    *recordingPublisher
	coordinator  *Coordinator
	reservations ReservationService
	availability AvailabilityService
	space        *model.Space
}

// newFixture creates one space open 08:00-18:00 UTC with 60 minute slots.
func newFixture() *fixture {
	return newFixtureWithLocker(&stubLocker{})
}

func newFixtureWithLocker(locker lock.Locker) *fixture {
	f := &fixture{
		cfg:       testConfig(),
		spaces:    &fakeSpaceRepository{spaces: map[string]*model.Space{}},
		repo:      newFakeReservationRepository(),
		publisher: &recordingPublisher{},
	}
	if stub, ok := locker.(*stubLocker); ok {
		f.locker = stub
	}

	f.space = &model.Space{
		Name:        "Board Room",
		Location:    "HQ",
		Capacity:    1,
		OpenTime:    "08:00",
		CloseTime:   "18:00",
		SlotMinutes: 60,
		TimeZone:    "UTC",
	}
	_ = f.spaces.Create(context.Background(), f.space)

	f.coordinator = NewCoordinator(f.spaces, f.repo, locker, f.cfg)
	f.reservations = NewReservationService(f.repo, f.coordinator, validator.NewReservationValidator(f.cfg.Log), f.publisher, f.cfg)
	f.availability = NewAvailabilityService(f.spaces, f.repo, f.cfg)
	return f
}

func day(hour, minute int) time.Time {
	return time.Date(2025, 12, 25, hour, minute, 0, 0, time.UTC)
}

func (f *fixture) request(start, end time.Time) *model.ReservationRequest {
	return &model.ReservationRequest{
		SpaceID:   f.space.ID,
		OwnerID:   "user-1",
		EventName: "Planning",
		StartTime: start,
		EndTime:   end,
	}
}

func (f *fixture) booking(start, end time.Time) BookingRequest {
	return BookingRequest{
		SpaceID:   f.space.ID,
		OwnerID:   "user-1",
		EventName: "Planning",
		Start:     start,
		End:       end,
	}
}
