package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	apperrors "spacebook/pkg/errors"
	"spacebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate(t *testing.T) {
	f := newFixture()

	req := f.request(day(10, 0).In(time.FixedZone("CET", 3600)), day(11, 0))
	req.EventName = "  Sprint \t planning "
	r, err := f.reservations.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.EventName != "Sprint planning" {
		t.Errorf("expected sanitized event name, got %q", r.EventName)
	}
	if r.StartTime.Location() != time.UTC {
		t.Errorf("expected times normalized to UTC, got %s", r.StartTime.Location())
	}
	if got := f.publisher.types(); !slices.Equal(got, []model.ReservationEventType{model.ReservationCreated}) {
		t.Errorf("expected one created event, got %v", got)
	}
}

func TestCreate_ValidationError(t *testing.T) {
	f := newFixture()

	req := f.request(day(10, 0), day(11, 0))
	req.OwnerID = ""
	_, err := f.reservations.Create(context.Background(), req)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.repo.callCount() != 0 {
		t.Error("invalid request must not reach the store")
	}
}

func TestCreate_MissingTimesIsInvalidInterval(t *testing.T) {
	f := newFixture()

	_, err := f.reservations.Create(context.Background(), f.request(time.Time{}, time.Time{}))
	if !apperrors.HasCode(err, apperrors.CodeInvalidInterval) {
		t.Fatalf("expected invalid interval, got %v", err)
	}
}

func TestCreate_PublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	if _, err := f.reservations.Create(context.Background(), f.request(day(10, 0), day(11, 0))); err != nil {
		t.Fatalf("booking must succeed even if the event is lost: %v", err)
	}
	if len(f.repo.all()) != 1 {
		t.Error("expected reservation to be stored")
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	r, err := f.reservations.Create(ctx, f.request(day(10, 0), day(12, 0)))
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	other, err := f.reservations.Create(ctx, f.request(day(14, 0), day(15, 0)))
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	moved, err := f.reservations.Reschedule(ctx, r.ID, day(11, 0), day(13, 0))
	if err != nil {
		t.Fatalf("overlapping only itself should succeed: %v", err)
	}
	if !moved.StartTime.Equal(day(11, 0)) {
		t.Errorf("expected new start 11:00, got %s", moved.StartTime)
	}

	_, err = f.reservations.Reschedule(ctx, r.ID, day(13, 0), day(14, 30))
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict with %s, got %v", other.ID, err)
	}

	stored, _ := f.reservations.GetByID(ctx, r.ID)
	if !stored.StartTime.Equal(day(11, 0)) || !stored.EndTime.Equal(day(13, 0)) {
		t.Errorf("failed reschedule must leave the reservation unchanged, got [%s, %s)", stored.StartTime, stored.EndTime)
	}

	f.publisher.mu.Lock()
	last := f.publisher.events[len(f.publisher.events)-1]
	f.publisher.mu.Unlock()
	if last.Type != model.ReservationRescheduled || last.PreviousStart == nil || !last.PreviousStart.Equal(day(10, 0)) {
		t.Errorf("unexpected rescheduled event: %+v", last)
	}
}

func TestReschedule_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.reservations.Reschedule(ctx, primitive.NewObjectID().Hex(), day(10, 0), day(11, 0))
	if !apperrors.HasCode(err, apperrors.CodeReservationNotFound) {
		t.Errorf("expected reservation not found, got %v", err)
	}

	r, _ := f.reservations.Create(ctx, f.request(day(10, 0), day(11, 0)))
	_, err = f.reservations.Reschedule(ctx, r.ID, day(11, 0), day(11, 0))
	if !apperrors.HasCode(err, apperrors.CodeInvalidInterval) {
		t.Errorf("expected invalid interval, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	r, _ := f.reservations.Create(ctx, f.request(day(10, 0), day(11, 0)))
	if _, err := f.reservations.Create(ctx, f.request(day(12, 0), day(13, 0))); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	name := " Retro "
	updated, err := f.reservations.Update(ctx, r.ID, &model.ReservationUpdate{EventName: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.EventName != "Retro" || !updated.StartTime.Equal(day(10, 0)) {
		t.Errorf("unexpected update result: %+v", updated)
	}

	end := day(12, 30)
	notes := "bring snacks"
	_, err = f.reservations.Update(ctx, r.ID, &model.ReservationUpdate{EndTime: &end, Notes: &notes})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict when extending into 12:00, got %v", err)
	}
	stored, _ := f.reservations.GetByID(ctx, r.ID)
	if stored.Notes != "" {
		t.Error("fields must not change when the interval change is rejected")
	}

	end = day(12, 0)
	updated, err = f.reservations.Update(ctx, r.ID, &model.ReservationUpdate{EndTime: &end, Notes: &notes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.EndTime.Equal(day(12, 0)) || updated.Notes != "bring snacks" {
		t.Errorf("unexpected update result: %+v", updated)
	}
}

func TestUpdate_IntervalAndDetailsCommitTogether(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	r, err := f.reservations.Create(ctx, f.request(day(10, 0), day(11, 0)))
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	f.repo.detailsErr = errors.New("connection reset by peer")
	end := day(12, 0)
	notes := "bring snacks"
	_, err = f.reservations.Update(ctx, r.ID, &model.ReservationUpdate{EndTime: &end, Notes: &notes})
	if !apperrors.HasCode(err, apperrors.CodeStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}

	stored, _ := f.reservations.GetByID(ctx, r.ID)
	if !stored.EndTime.Equal(day(11, 0)) || stored.Notes != "" {
		t.Errorf("a failed update must leave the reservation unchanged, got %+v", stored)
	}
	if got := f.publisher.types(); len(got) != 1 || got[0] != model.ReservationCreated {
		t.Errorf("expected only the created event, got %v", got)
	}

	f.repo.detailsErr = nil
	updated, err := f.reservations.Update(ctx, r.ID, &model.ReservationUpdate{EndTime: &end, Notes: &notes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.EndTime.Equal(day(12, 0)) || updated.Notes != "bring snacks" {
		t.Errorf("unexpected update result: %+v", updated)
	}
	want := []model.ReservationEventType{model.ReservationCreated, model.ReservationRescheduled, model.ReservationUpdated}
	if got := f.publisher.types(); !slices.Equal(got, want) {
		t.Errorf("expected events %v, got %v", want, got)
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.reservations.Update(ctx, primitive.NewObjectID().Hex(), &model.ReservationUpdate{}); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for an empty update, got %v", err)
	}

	name := "Retro"
	if _, err := f.reservations.Update(ctx, primitive.NewObjectID().Hex(), &model.ReservationUpdate{EventName: &name}); !apperrors.HasCode(err, apperrors.CodeReservationNotFound) {
		t.Errorf("expected reservation not found, got %v", err)
	}

	empty := "   "
	if _, err := f.reservations.Update(ctx, primitive.NewObjectID().Hex(), &model.ReservationUpdate{EventName: &empty}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	r, _ := f.reservations.Create(ctx, f.request(day(10, 0), day(11, 0)))

	for i := range 2 {
		if err := f.reservations.Cancel(ctx, r.ID); err != nil {
			t.Fatalf("cancel #%d: unexpected error: %v", i+1, err)
		}
	}
	if err := f.reservations.Cancel(ctx, "not-an-id"); err != nil {
		t.Errorf("cancelling an unknown id should succeed, got %v", err)
	}

	if got := f.publisher.types(); !slices.Equal(got, []model.ReservationEventType{model.ReservationCreated, model.ReservationCancelled}) {
		t.Errorf("expected one cancelled event, got %v", got)
	}

	if _, err := f.reservations.Create(ctx, f.request(day(10, 0), day(11, 0))); err != nil {
		t.Errorf("cancelled interval should be bookable again: %v", err)
	}
}

func TestCancel_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.failErr = errors.New("connection reset")

	if err := f.reservations.Cancel(context.Background(), primitive.NewObjectID().Hex()); !apperrors.HasCode(err, apperrors.CodeStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestListByOwnerAndSpace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i, owner := range []string{"alice", "bob", "alice"} {
		req := f.request(day(9+i, 0), day(10+i, 0))
		req.OwnerID = owner
		if _, err := f.reservations.Create(ctx, req); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	mine, total, err := f.reservations.ListByOwner(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(mine) != 2 || !mine[0].StartTime.Before(mine[1].StartTime) {
		t.Errorf("expected alice's 2 reservations in order, got total=%d %+v", total, mine)
	}

	page, total, err := f.reservations.ListBySpace(ctx, f.space.ID, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Errorf("expected last page of 1 out of 3, got %d of %d", len(page), total)
	}

	if _, _, err := f.reservations.ListByOwner(ctx, " ", 10, 0); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for blank owner, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	f := newFixture()

	for _, id := range []string{primitive.NewObjectID().Hex(), "garbage"} {
		if _, err := f.reservations.GetByID(context.Background(), id); !apperrors.HasCode(err, apperrors.CodeReservationNotFound) {
			t.Errorf("id %q: expected reservation not found, got %v", id, err)
		}
	}
	if _, err := f.reservations.GetByID(context.Background(), ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for empty id, got %v", err)
	}
}
