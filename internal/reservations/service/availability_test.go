package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	apperrors "spacebook/pkg/errors"
	"spacebook/pkg/interval"
	"spacebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func collect(t *testing.T, f *fixture, date string, granularity int) []model.AvailabilitySlot {
	t.Helper()
	seq, err := f.availability.Availability(context.Background(), f.space.ID, date, granularity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return slices.Collect(seq)
}

func TestAvailability_EmptyDay(t *testing.T) {
	f := newFixture()

	slots := collect(t, f, "2025-12-25", 0)
	if len(slots) != 10 {
		t.Fatalf("expected 10 slots between 08:00 and 18:00, got %d", len(slots))
	}
	for i, s := range slots {
		if !s.Available {
			t.Errorf("slot %d should be available", i)
		}
		if !s.Start.Equal(day(8+i, 0)) || !s.End.Equal(day(9+i, 0)) {
			t.Errorf("slot %d = [%s, %s)", i, s.Start, s.End)
		}
	}
}

func TestAvailability_MarksOverlappingSlots(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.coordinator.CheckAndBook(ctx, f.booking(day(10, 30), day(12, 0))); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	slots := collect(t, f, "2025-12-25", 0)
	var taken []int
	for _, s := range slots {
		if !s.Available {
			taken = append(taken, s.Start.Hour())
		}
	}
	// a partial overlap takes the whole 10:00 slot; 12:00 only touches the end
	if !slices.Equal(taken, []int{10, 11}) {
		t.Errorf("expected 10:00 and 11:00 unavailable, got %v", taken)
	}
}

func TestAvailability_SlotsAgreeWithCoordinator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, iv := range [][2]time.Time{
		{day(8, 15), day(9, 0)},
		{day(11, 0), day(11, 30)},
		{day(16, 45), day(19, 0)},
	} {
		if _, err := f.coordinator.CheckAndBook(ctx, f.booking(iv[0], iv[1])); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	for _, s := range collect(t, f, "2025-12-25", 30) {
		_, err := f.coordinator.CheckAndBook(ctx, f.booking(s.Start, s.End))
		switch {
		case s.Available && err != nil:
			t.Errorf("slot [%s, %s) reported available but booking failed: %v", s.Start, s.End, err)
		case !s.Available && !apperrors.HasCode(err, apperrors.CodeConflict):
			t.Errorf("slot [%s, %s) reported unavailable but booking returned %v", s.Start, s.End, err)
		}
	}
}

func TestAvailability_ReservationSpanningMidnight(t *testing.T) {
	f := newFixture()
	f.space.OpenTime, f.space.CloseTime = "00:00", "04:00"
	_ = f.spaces.Create(context.Background(), f.space)

	f.repo.put(&model.Reservation{
		SpaceID:   f.space.ID,
		OwnerID:   "night-owl",
		EventName: "Overnight",
		StartTime: time.Date(2025, 12, 24, 22, 0, 0, 0, time.UTC),
		EndTime:   day(1, 0),
	})

	slots := collect(t, f, "2025-12-25", 0)
	if len(slots) != 4 || slots[0].Available || !slots[1].Available {
		t.Errorf("expected only the 00:00 slot taken, got %+v", slots)
	}
}

func TestAvailability_GranularityOverride(t *testing.T) {
	f := newFixture()

	if got := len(collect(t, f, "2025-12-25", 30)); got != 20 {
		t.Errorf("expected 20 half-hour slots, got %d", got)
	}
	// 600 minutes / 45 leaves a 15 minute remainder that is not emitted
	slots := collect(t, f, "2025-12-25", 45)
	if len(slots) != 13 {
		t.Fatalf("expected 13 slots, got %d", len(slots))
	}
	if last := slots[len(slots)-1]; !last.End.Equal(day(17, 45)) {
		t.Errorf("expected last slot to end at 17:45, got %s", last.End)
	}
}

func TestAvailability_TimeZone(t *testing.T) {
	f := newFixture()
	f.space.TimeZone = "America/New_York"
	_ = f.spaces.Create(context.Background(), f.space)

	slots := collect(t, f, "2025-12-25", 0)
	if len(slots) != 10 {
		t.Fatalf("expected 10 slots, got %d", len(slots))
	}
	// 08:00 EST is 13:00 UTC
	if want := day(13, 0); !slots[0].Start.Equal(want) {
		t.Errorf("expected first slot at %s, got %s", want, slots[0].Start.UTC())
	}
}

func TestAvailability_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name        string
		spaceID     string
		date        string
		granularity int
		wantCode    string
	}{
		{"malformed date", f.space.ID, "25/12/2025", 0, apperrors.CodeInvalidDate},
		{"impossible date", f.space.ID, "2025-02-30", 0, apperrors.CodeInvalidDate},
		{"unknown space", primitive.NewObjectID().Hex(), "2025-12-25", 0, apperrors.CodeResourceNotFound},
		{"negative granularity", f.space.ID, "2025-12-25", -15, apperrors.CodeInvalidInput},
		{"granularity wider than the day", f.space.ID, "2025-12-25", 601, apperrors.CodeInvalidInput},
		{"granularity that overflows a duration", f.space.ID, "2025-12-25", 3749353613647811, apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.availability.Availability(ctx, tt.spaceID, tt.date, tt.granularity)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestAvailability_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.failErr = errors.New("server selection timeout")

	_, err := f.availability.Availability(context.Background(), f.space.ID, "2025-12-25", 0)
	if !apperrors.HasCode(err, apperrors.CodeStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestSlots_Restartable(t *testing.T) {
	window := interval.MustNew(day(8, 0), day(10, 0))
	booked := []interval.Interval{interval.MustNew(day(8, 0), day(9, 0))}
	seq := Slots(window, time.Hour, booked)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) || len(first) != 2 {
		t.Errorf("expected identical 2-slot runs, got %v and %v", first, second)
	}

	count := 0
	for range seq {
		count++
		break
	}
	if count != 1 {
		t.Error("early break must stop the sequence")
	}
}

func TestSlots_ZeroGranularity(t *testing.T) {
	window := interval.MustNew(day(8, 0), day(10, 0))
	if got := slices.Collect(Slots(window, 0, nil)); len(got) != 0 {
		t.Errorf("expected no slots, got %d", len(got))
	}
}
