package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
	"github.com/Chromeox/CourseScout-sub004/internal/events"
)

func fixedNow() time.Time {
	return time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
}

func testCourse() *domain.Course {
	return &domain.Course{
		ID:                 "course-1",
		Name:               "Pebble Creek",
		Status:             domain.CourseOpen,
		FreeCancelHours:    48,
		PartialCancelHours: 24,
		RefundPercent:      50,
		CancelFlatFeeCents: 500,
	}
}

func testSlot(id string, capacity, booked int32, start time.Time) *domain.AvailabilitySlot {
	return &domain.AvailabilitySlot{
		ID:        id,
		CourseID:  "course-1",
		Date:      "2026-07-14",
		StartTime: start,
		EndTime:   start.Add(10 * time.Minute),
		Capacity:  capacity,
		Booked:    booked,
	}
}

type countPromoter struct {
	calls int32
}

func (p *countPromoter) PromoteForSlot(_ context.Context, _ *domain.AvailabilitySlot) error {
	atomic.AddInt32(&p.calls, 1)
	return nil
}

func newBookingFixture(t *testing.T, slots *memSlots) (*BookingSvc, *memBookings, *recordingPub) {
	t.Helper()
	bookings := newMemBookings()
	pub := &recordingPub{}
	svc := NewBookingSvc(slots, bookings, newMemCourses(testCourse()), pub, BookingConfig{})
	svc.now = fixedNow
	return svc, bookings, pub
}

func TestCreateConfirmsAndClaimsSeats(t *testing.T) {
	tee := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, _, pub := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != domain.BookingConfirmed {
		t.Fatalf("status = %s, want %s", b.Status, domain.BookingConfirmed)
	}
	if b.ConfirmationCode == "" || len(b.ConfirmationCode) != 8 {
		t.Fatalf("confirmation code %q", b.ConfirmationCode)
	}
	if got := slots.booked("slot-1"); got != 2 {
		t.Fatalf("booked = %d, want 2", got)
	}
	if pub.count(events.RKAvailabilityChanged) != 1 || pub.count(events.RKBookingUpdated) != 1 {
		t.Fatalf("events = %v", pub.keys)
	}
}

func TestCreateRejectsBadRequest(t *testing.T) {
	svc, _, _ := newBookingFixture(t, newMemSlots())
	_, err := svc.Create(context.Background(), CreateRequest{UserID: "user-1", CourseID: "course-1"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestCreateNoOverbookingUnderContention(t *testing.T) {
	tee := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, bookings, _ := newBookingFixture(t, slots)
	svc.cfg.RetryBound = 10

	var wg sync.WaitGroup
	var confirmed int32
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateRequest{
				UserID: "user-" + string(rune('a'+n)), CourseID: "course-1",
				Date: "2026-07-14", TeeTime: tee, Players: 1,
			})
			if err == nil {
				atomic.AddInt32(&confirmed, 1)
			} else if !errors.Is(err, ErrSlotUnavailable) && !errors.Is(err, ErrSlotNoLongerAvailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := slots.booked("slot-1"); got > 4 {
		t.Fatalf("overbooked: booked = %d, capacity 4", got)
	}
	if int32(bookings.confirmedOnSlot("slot-1")) != confirmed {
		t.Fatalf("confirmed bookings %d != successful creates %d",
			bookings.confirmedOnSlot("slot-1"), confirmed)
	}
	if slots.booked("slot-1") != confirmed {
		t.Fatalf("booked %d != confirmed %d: a claim leaked", slots.booked("slot-1"), confirmed)
	}
}

func TestCreateLastOpeningExactlyOneWins(t *testing.T) {
	tee := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	slots := newMemSlots(testSlot("slot-1", 1, 0, tee))
	svc, _, _ := newBookingFixture(t, slots)
	svc.cfg.RetryBound = 10

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateRequest{
				UserID: "user-" + string(rune('a'+n)), CourseID: "course-1",
				Date: "2026-07-14", TeeTime: tee, Players: 1,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins, losses := 0, 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		if !errors.Is(err, ErrSlotUnavailable) && !errors.Is(err, ErrSlotNoLongerAvailable) {
			t.Fatalf("loser got %v, want a slot-unavailable error", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d, want exactly one of each", wins, losses)
	}
	if slots.booked("slot-1") != 1 {
		t.Fatalf("booked = %d, want 1", slots.booked("slot-1"))
	}
}

// alwaysLosingSlots reports a free slot but never lets a conditional
// write land, to drive the retry loop to its bound.
type alwaysLosingSlots struct {
	*memSlots
	writes int32
}

func (a *alwaysLosingSlots) WriteSlotIfBooked(context.Context, string, int32, int32) (bool, error) {
	atomic.AddInt32(&a.writes, 1)
	return false, nil
}

func TestCreateRetryBoundExhausted(t *testing.T) {
	tee := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	losing := &alwaysLosingSlots{memSlots: newMemSlots(testSlot("slot-1", 4, 0, tee))}
	bookings := newMemBookings()
	svc := NewBookingSvc(losing, bookings, newMemCourses(testCourse()), &recordingPub{}, BookingConfig{RetryBound: 3})
	svc.now = fixedNow

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
	})
	if !errors.Is(err, ErrSlotNoLongerAvailable) {
		t.Fatalf("err = %v, want ErrSlotNoLongerAvailable", err)
	}
	if losing.writes != 3 {
		t.Fatalf("write attempts = %d, want 3", losing.writes)
	}
	if len(bookings.rows) != 0 {
		t.Fatalf("no booking should exist after exhausted retries")
	}
}

func TestCreateStoreFailure(t *testing.T) {
	svc, _, _ := newBookingFixture(t, newMemSlots())
	svc.slots = &failingSlots{err: errStoreDown}
	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14",
		TeeTime: fixedNow(), Players: 1,
	})
	if !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("err = %v, want ErrStoreFailure", err)
	}
}

func TestCancelReleasesSeatsAndPromotesOnce(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour) // well inside the free window
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, _, pub := newBookingFixture(t, slots)
	promoter := &countPromoter{}
	svc.AttachPromoter(promoter)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := svc.Cancel(context.Background(), b.ID, "user-1", ReasonPlayer)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.RefundPercent != 100 || res.FeeCents != 0 {
		t.Fatalf("refund = %d%% fee %d, want full refund", res.RefundPercent, res.FeeCents)
	}
	if res.Booking.Status != domain.BookingCancelled || res.Booking.PaymentStatus != domain.PaymentRefunded {
		t.Fatalf("booking = %s/%s", res.Booking.Status, res.Booking.PaymentStatus)
	}
	if slots.booked("slot-1") != 0 {
		t.Fatalf("booked = %d after cancel, want 0", slots.booked("slot-1"))
	}
	if atomic.LoadInt32(&promoter.calls) != 1 {
		t.Fatalf("promoter calls = %d, want exactly 1", promoter.calls)
	}
	if pub.count(events.RKAvailabilityChanged) != 2 {
		t.Fatalf("availability events = %d, want 2 (book + release)", pub.count(events.RKAvailabilityChanged))
	}
}

func TestCancelPolicyWindows(t *testing.T) {
	cases := []struct {
		name        string
		hoursBefore time.Duration
		wantPercent int32
		wantFee     int64
		wantPolicy  bool
	}{
		{"free window", 72 * time.Hour, 100, 0, false},
		{"partial window", 30 * time.Hour, 50, 500, false},
		{"inside cutoff", 2 * time.Hour, 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tee := fixedNow().Add(tc.hoursBefore)
			slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
			svc, _, _ := newBookingFixture(t, slots)

			b, err := svc.Create(context.Background(), CreateRequest{
				UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
			})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			res, err := svc.Cancel(context.Background(), b.ID, "user-1", ReasonPlayer)
			if tc.wantPolicy {
				var pe *PolicyError
				if !errors.As(err, &pe) {
					t.Fatalf("err = %v, want PolicyError", err)
				}
				if !errors.Is(err, ErrNotEligible) {
					t.Fatalf("PolicyError should unwrap to ErrNotEligible")
				}
				if slots.booked("slot-1") != 1 {
					t.Fatalf("rejected cancel must not release seats")
				}
				return
			}
			if err != nil {
				t.Fatalf("Cancel: %v", err)
			}
			if res.RefundPercent != tc.wantPercent || res.FeeCents != tc.wantFee {
				t.Fatalf("refund = %d%%/%d, want %d%%/%d",
					res.RefundPercent, res.FeeCents, tc.wantPercent, tc.wantFee)
			}
		})
	}
}

func TestCancelWeatherRefundsInFull(t *testing.T) {
	tee := fixedNow().Add(1 * time.Hour) // inside the no-refund cutoff
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, _, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	res, err := svc.Cancel(context.Background(), b.ID, "user-1", ReasonWeather)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.RefundPercent != 100 {
		t.Fatalf("weather cancel refund = %d%%, want 100", res.RefundPercent)
	}
}

func TestCancelRejectsWrongOwner(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour)
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, _, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), b.ID, "user-2", ReasonPlayer); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
}

// stumblingBookings fails UpdateStatus a set number of times before
// delegating, to exercise cancellation against a flaky store.
type stumblingBookings struct {
	*memBookings
	failures int32
}

func (s *stumblingBookings) UpdateStatus(ctx context.Context, id, status, paymentStatus string) (*domain.Booking, error) {
	if atomic.AddInt32(&s.failures, -1) >= 0 {
		return nil, errStoreDown
	}
	return s.memBookings.UpdateStatus(ctx, id, status, paymentStatus)
}

func TestCancelStatusFailureKeepsSeatsClaimed(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour)
	slots := newMemSlots(testSlot("slot-1", 1, 0, tee))
	svc, bookings, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.bookings = &stumblingBookings{memBookings: bookings, failures: 1}

	if _, err := svc.Cancel(context.Background(), b.ID, "user-1", ReasonPlayer); !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("err = %v, want ErrStoreFailure", err)
	}
	after, _ := bookings.ByID(context.Background(), b.ID)
	if after.Status != domain.BookingConfirmed {
		t.Fatalf("status = %s after failed cancel, want CONFIRMED", after.Status)
	}
	if slots.booked("slot-1") != 1 {
		t.Fatalf("booked = %d after failed cancel, want the claim kept", slots.booked("slot-1"))
	}

	// The retry must release the seat exactly once.
	if _, err := svc.Cancel(context.Background(), b.ID, "user-1", ReasonPlayer); err != nil {
		t.Fatalf("Cancel retry: %v", err)
	}
	if slots.booked("slot-1") != 0 {
		t.Fatalf("booked = %d after retry, want 0", slots.booked("slot-1"))
	}

	// The freed seat admits exactly one new booking on the
	// capacity-1 slot; a double release would have admitted two.
	if _, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-2", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
	}); err != nil {
		t.Fatalf("Create after cancel: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-3", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
	}); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable on the full slot", err)
	}
	if slots.booked("slot-1") != 1 || bookings.confirmedOnSlot("slot-1") != 1 {
		t.Fatalf("booked=%d confirmed=%d, want 1/1 on capacity 1",
			slots.booked("slot-1"), bookings.confirmedOnSlot("slot-1"))
	}
}

func TestModifyUnavailableTargetLeavesBookingWhole(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour)
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, bookings, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Modify(context.Background(), b.ID, "user-1", tee.Add(3*time.Hour), 2)
	if !errors.Is(err, ErrNewTimeUnavailable) {
		t.Fatalf("err = %v, want ErrNewTimeUnavailable", err)
	}
	after, _ := bookings.ByID(context.Background(), b.ID)
	if after.SlotID != "slot-1" || after.Players != 2 || !after.TeeTime.Equal(tee) {
		t.Fatalf("booking mutated on failed modify: %+v", after)
	}
	if slots.booked("slot-1") != 2 {
		t.Fatalf("booked = %d, want 2 untouched", slots.booked("slot-1"))
	}
}

func TestModifyMovesBetweenSlots(t *testing.T) {
	tee1 := fixedNow().Add(72 * time.Hour)
	tee2 := tee1.Add(2 * time.Hour)
	slots := newMemSlots(
		testSlot("slot-1", 4, 0, tee1),
		testSlot("slot-2", 4, 0, tee2),
	)
	svc, _, _ := newBookingFixture(t, slots)
	promoter := &countPromoter{}
	svc.AttachPromoter(promoter)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee1, Players: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Modify(context.Background(), b.ID, "user-1", tee2, 3)
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if updated.SlotID != "slot-2" || updated.Players != 3 {
		t.Fatalf("updated = %+v", updated)
	}
	if slots.booked("slot-1") != 0 || slots.booked("slot-2") != 3 {
		t.Fatalf("booked slot-1=%d slot-2=%d, want 0 and 3",
			slots.booked("slot-1"), slots.booked("slot-2"))
	}
	if atomic.LoadInt32(&promoter.calls) != 1 {
		t.Fatalf("promoter calls = %d, want 1 for the freed slot", promoter.calls)
	}
}

func TestModifySameSlotPartyChange(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour)
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, _, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := svc.Modify(context.Background(), b.ID, "user-1", tee, 4)
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if updated.Players != 4 || slots.booked("slot-1") != 4 {
		t.Fatalf("players=%d booked=%d, want 4/4", updated.Players, slots.booked("slot-1"))
	}
	if _, err := svc.Modify(context.Background(), b.ID, "user-1", tee, 5); !errors.Is(err, ErrNewTimeUnavailable) {
		t.Fatalf("err = %v, want ErrNewTimeUnavailable on over-capacity", err)
	}
}

// rebookFailingBookings fails Rebook a set number of times before
// delegating, to exercise the seat compensation paths in Modify.
type rebookFailingBookings struct {
	*memBookings
	failures int32
}

func (s *rebookFailingBookings) Rebook(ctx context.Context, id, slotID string, teeTime time.Time, players int32) (*domain.Booking, error) {
	if atomic.AddInt32(&s.failures, -1) >= 0 {
		return nil, errStoreDown
	}
	return s.memBookings.Rebook(ctx, id, slotID, teeTime, players)
}

func TestModifyRebookFailureRestoresSameSlot(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour)
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, bookings, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.bookings = &rebookFailingBookings{memBookings: bookings, failures: 1}

	if _, err := svc.Modify(context.Background(), b.ID, "user-1", tee, 4); !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("err = %v, want ErrStoreFailure", err)
	}
	if slots.booked("slot-1") != 2 {
		t.Fatalf("booked = %d after failed modify, want the old count 2", slots.booked("slot-1"))
	}
	after, _ := bookings.ByID(context.Background(), b.ID)
	if after.Players != 2 || after.SlotID != "slot-1" {
		t.Fatalf("booking mutated on failed modify: %+v", after)
	}

	// The counts are consistent again, so the retry goes through.
	updated, err := svc.Modify(context.Background(), b.ID, "user-1", tee, 4)
	if err != nil {
		t.Fatalf("Modify retry: %v", err)
	}
	if updated.Players != 4 || slots.booked("slot-1") != 4 {
		t.Fatalf("players=%d booked=%d after retry, want 4/4", updated.Players, slots.booked("slot-1"))
	}
}

func TestModifyRebookFailureRestoresBothSlots(t *testing.T) {
	tee1 := fixedNow().Add(72 * time.Hour)
	tee2 := tee1.Add(2 * time.Hour)
	slots := newMemSlots(
		testSlot("slot-1", 4, 0, tee1),
		testSlot("slot-2", 4, 0, tee2),
	)
	svc, bookings, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee1, Players: 2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc.bookings = &rebookFailingBookings{memBookings: bookings, failures: 1}

	if _, err := svc.Modify(context.Background(), b.ID, "user-1", tee2, 3); !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("err = %v, want ErrStoreFailure", err)
	}
	if slots.booked("slot-2") != 0 {
		t.Fatalf("slot-2 booked = %d after failed modify, want the claim given back", slots.booked("slot-2"))
	}
	if slots.booked("slot-1") != 2 {
		t.Fatalf("slot-1 booked = %d after failed modify, want the old claim restored", slots.booked("slot-1"))
	}
	after, _ := bookings.ByID(context.Background(), b.ID)
	if after.SlotID != "slot-1" || after.Players != 2 || !after.TeeTime.Equal(tee1) {
		t.Fatalf("booking mutated on failed modify: %+v", after)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour)
	slots := newMemSlots(testSlot("slot-1", 4, 0, tee))
	svc, _, _ := newBookingFixture(t, slots)

	b, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1", CourseID: "course-1", Date: "2026-07-14", TeeTime: tee, Players: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Complete(context.Background(), b.ID); err == nil {
		t.Fatalf("CONFIRMED -> COMPLETED must be rejected")
	}
	if _, err := svc.CheckIn(context.Background(), b.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	done, err := svc.Complete(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != domain.BookingCompleted {
		t.Fatalf("status = %s", done.Status)
	}
	var pe *PolicyError
	if _, err := svc.NoShow(context.Background(), b.ID); !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PolicyError for COMPLETED -> NO_SHOW", err)
	}
}

func TestAdjustCapacity(t *testing.T) {
	tee := fixedNow().Add(72 * time.Hour)
	slots := newMemSlots(testSlot("slot-1", 2, 2, tee))
	svc, _, pub := newBookingFixture(t, slots)
	promoter := &countPromoter{}
	svc.AttachPromoter(promoter)

	if _, err := svc.AdjustCapacity(context.Background(), "slot-1", 1); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest below booked", err)
	}
	slot, err := svc.AdjustCapacity(context.Background(), "slot-1", 4)
	if err != nil {
		t.Fatalf("AdjustCapacity: %v", err)
	}
	if slot.Capacity != 4 {
		t.Fatalf("capacity = %d, want 4", slot.Capacity)
	}
	if atomic.LoadInt32(&promoter.calls) != 1 {
		t.Fatalf("capacity increase should trigger one promotion attempt")
	}
	if pub.count(events.RKAvailabilityChanged) != 1 {
		t.Fatalf("events = %v", pub.keys)
	}
}
