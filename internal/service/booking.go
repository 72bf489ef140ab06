package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
	"github.com/Chromeox/CourseScout-sub004/internal/events"
)

// Cancellation reason classes. Player cancellations go through the
// course policy windows; the rest are operator/coordinator initiated
// and refund in full.
const (
	ReasonPlayer         = "player"
	ReasonWeather        = "weather"
	ReasonCourseClosed   = "course_closed"
	ReasonGroupCancelled = "group_cancelled"
)

// Promoter is notified once per released slot so the wait list can
// make exactly one promotion attempt.
type Promoter interface {
	PromoteForSlot(ctx context.Context, slot *domain.AvailabilitySlot) error
}

type BookingConfig struct {
	RetryBound int           // optimistic-concurrency retry bound
	Tolerance  time.Duration // tee-time match window, ± around the request
	Timeout    time.Duration // per-operation processing deadline
}

// BookingSvc is the only path that turns a request into a confirmed
// booking or moves one through its lifecycle. Every booked-count
// change goes through the slot CAS.
type BookingSvc struct {
	slots    SlotStore
	bookings BookingStore
	courses  CourseStore
	pub      Publisher
	promoter Promoter
	cfg      BookingConfig
	now      func() time.Time
}

func NewBookingSvc(slots SlotStore, bookings BookingStore, courses CourseStore, pub Publisher, cfg BookingConfig) *BookingSvc {
	if cfg.RetryBound <= 0 {
		cfg.RetryBound = 3
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &BookingSvc{
		slots:    slots,
		bookings: bookings,
		courses:  courses,
		pub:      pub,
		cfg:      cfg,
		now:      time.Now,
	}
}

// AttachPromoter breaks the construction cycle with the wait list
// coordinator; cancellations need it, it needs Create.
func (s *BookingSvc) AttachPromoter(p Promoter) { s.promoter = p }

type CreateRequest struct {
	UserID   string
	CourseID string
	Date     string // YYYY-MM-DD
	TeeTime  time.Time
	Players  int32
	GroupID  string // set for group-member bookings
}

// Create books the requested tee time. Availability is re-read
// directly from the store (never the cache), then claimed with the
// slot CAS; on conflict the read-validate-write cycle retries up to
// the configured bound before failing.
func (s *BookingSvc) Create(ctx context.Context, req CreateRequest) (*domain.Booking, error) {
	if req.Players < 1 || req.UserID == "" || req.CourseID == "" {
		return nil, fmt.Errorf("%w: user, course and players are required", ErrInvalidRequest)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	for attempt := 0; attempt < s.cfg.RetryBound; attempt++ {
		slot, err := s.matchSlot(ctx, req.CourseID, req.Date, req.TeeTime, req.Players)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			return nil, fmt.Errorf("%w: course=%s date=%s tee=%s players=%d",
				ErrSlotUnavailable, req.CourseID, req.Date, req.TeeTime.Format("15:04"), req.Players)
		}

		ok, err := s.slots.WriteSlotIfBooked(ctx, slot.ID, slot.Booked, slot.Booked+req.Players)
		if err != nil {
			return nil, wrapStore(err)
		}
		if !ok {
			continue // lost the race, re-read and try again
		}

		b := &domain.Booking{
			CourseID:         req.CourseID,
			SlotID:           slot.ID,
			UserID:           req.UserID,
			Date:             req.Date,
			TeeTime:          slot.StartTime,
			Players:          req.Players,
			Status:           domain.BookingConfirmed,
			PaymentStatus:    domain.PaymentPending,
			ConfirmationCode: confirmationCode(),
			GroupID:          req.GroupID,
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			// Give the seats back; the slot must not leak a claim that
			// has no booking behind it.
			s.releaseSeats(ctx, slot.ID, req.Players)
			return nil, wrapStore(err)
		}

		s.emitAvailability(ctx, slot.CourseID, slot.Date, slot.ID, events.ChangeBooked, slot.Booked+req.Players, slot.Capacity)
		s.emitBooking(ctx, b)
		return b, nil
	}
	return nil, fmt.Errorf("%w: lost %d optimistic write races for course=%s tee=%s",
		ErrSlotNoLongerAvailable, s.cfg.RetryBound, req.CourseID, req.TeeTime.Format("15:04"))
}

type CancelResult struct {
	Booking       *domain.Booking
	RefundPercent int32
	FeeCents      int64
}

// Cancel validates the cancellation against the course policy,
// releases the seats and triggers one wait-list promotion attempt for
// the freed slot.
func (s *BookingSvc) Cancel(ctx context.Context, bookingID, actorID, reason string) (*CancelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if actorID != "" && b.UserID != actorID && reason != ReasonGroupCancelled {
		return nil, fmt.Errorf("%w: booking %s does not belong to caller", ErrNotEligible, bookingID)
	}
	if b.Status != domain.BookingPending && b.Status != domain.BookingConfirmed {
		return nil, &PolicyError{Clause: "status", Detail: fmt.Sprintf("booking is %s", b.Status)}
	}

	refundPercent, feeCents, err := s.refundTerms(ctx, b, reason)
	if err != nil {
		return nil, err
	}

	// Transition first, release second. A failed transition leaves the
	// claim whole and the cancel cleanly retryable; releasing first
	// would double-free the seats on retry.
	payment := domain.PaymentRefunded
	if refundPercent < 100 {
		payment = domain.PaymentPartial
	}
	updated, err := s.bookings.UpdateStatus(ctx, b.ID, domain.BookingCancelled, payment)
	if err != nil {
		return nil, wrapStore(err)
	}

	slot, err := s.releaseSeats(ctx, b.SlotID, b.Players)
	if err != nil {
		return nil, err
	}

	s.emitAvailability(ctx, slot.CourseID, slot.Date, slot.ID, events.ChangeReleased, slot.Booked, slot.Capacity)
	s.emitBooking(ctx, updated)

	if s.promoter != nil {
		// A promotion failure must not undo a committed cancellation.
		if err := s.promoter.PromoteForSlot(context.WithoutCancel(ctx), slot); err != nil {
			log.Printf("[booking] promotion after cancel %s failed: %v", b.ID, err)
		}
	}
	return &CancelResult{Booking: updated, RefundPercent: refundPercent, FeeCents: feeCents}, nil
}

// Modify revalidates the target exactly as Create does; if the new
// time cannot be claimed the original booking is left untouched.
func (s *BookingSvc) Modify(ctx context.Context, bookingID, actorID string, newTee time.Time, newPlayers int32) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if b.UserID != actorID {
		return nil, fmt.Errorf("%w: booking %s does not belong to caller", ErrNotEligible, bookingID)
	}
	if b.Status != domain.BookingPending && b.Status != domain.BookingConfirmed {
		return nil, &PolicyError{Clause: "status", Detail: fmt.Sprintf("booking is %s", b.Status)}
	}
	if newPlayers <= 0 {
		newPlayers = b.Players
	}
	if newTee.IsZero() {
		newTee = b.TeeTime
	}

	for attempt := 0; attempt < s.cfg.RetryBound; attempt++ {
		target, err := s.matchSlot(ctx, b.CourseID, b.Date, newTee, 0)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, fmt.Errorf("%w: course=%s date=%s tee=%s",
				ErrNewTimeUnavailable, b.CourseID, b.Date, newTee.Format("15:04"))
		}

		if target.ID == b.SlotID {
			// Same slot, party size change: one delta CAS.
			next := target.Booked - b.Players + newPlayers
			if next > target.Capacity {
				return nil, fmt.Errorf("%w: slot %s cannot fit %d players",
					ErrNewTimeUnavailable, target.ID, newPlayers)
			}
			ok, err := s.slots.WriteSlotIfBooked(ctx, target.ID, target.Booked, next)
			if err != nil {
				return nil, wrapStore(err)
			}
			if !ok {
				continue
			}
			updated, err := s.bookings.Rebook(ctx, b.ID, target.ID, target.StartTime, newPlayers)
			if err != nil {
				// Undo the delta; the booking row still records the old
				// party size.
				if _, cerr := s.adjustSeats(ctx, target.ID, b.Players-newPlayers); cerr != nil {
					log.Printf("[booking] seat compensation on slot %s failed: %v", target.ID, cerr)
				}
				return nil, wrapStore(err)
			}
			s.emitAvailability(ctx, target.CourseID, target.Date, target.ID, events.ChangeBooked, next, target.Capacity)
			s.emitBooking(ctx, updated)
			return updated, nil
		}

		if target.Open() < newPlayers {
			return nil, fmt.Errorf("%w: slot %s has %d open of %d requested",
				ErrNewTimeUnavailable, target.ID, target.Open(), newPlayers)
		}
		// Claim the new slot first; only then release the old one, so a
		// failure at any point leaves the booking valid somewhere.
		ok, err := s.slots.WriteSlotIfBooked(ctx, target.ID, target.Booked, target.Booked+newPlayers)
		if err != nil {
			return nil, wrapStore(err)
		}
		if !ok {
			continue
		}
		released, err := s.releaseSeats(ctx, b.SlotID, b.Players)
		if err != nil {
			// Undo the claim on the new slot; the original stays whole.
			s.releaseSeats(ctx, target.ID, newPlayers)
			return nil, err
		}
		updated, err := s.bookings.Rebook(ctx, b.ID, target.ID, target.StartTime, newPlayers)
		if err != nil {
			// Give back the new claim and restore the old one; the
			// booking row still points at the old slot.
			if _, cerr := s.releaseSeats(ctx, target.ID, newPlayers); cerr != nil {
				log.Printf("[booking] seat compensation on slot %s failed: %v", target.ID, cerr)
			}
			if _, cerr := s.adjustSeats(ctx, b.SlotID, b.Players); cerr != nil {
				log.Printf("[booking] seat compensation on slot %s failed: %v", b.SlotID, cerr)
			}
			return nil, wrapStore(err)
		}
		s.emitAvailability(ctx, target.CourseID, target.Date, target.ID, events.ChangeBooked, target.Booked+newPlayers, target.Capacity)
		s.emitAvailability(ctx, released.CourseID, released.Date, released.ID, events.ChangeReleased, released.Booked, released.Capacity)
		s.emitBooking(ctx, updated)

		if s.promoter != nil {
			_ = s.promoter.PromoteForSlot(context.WithoutCancel(ctx), released)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: lost %d optimistic write races", ErrSlotNoLongerAvailable, s.cfg.RetryBound)
}

// CheckIn, Complete and NoShow are the remaining lifecycle
// transitions; anything not in the table below is rejected.
func (s *BookingSvc) CheckIn(ctx context.Context, id string) (*domain.Booking, error) {
	return s.advance(ctx, id, domain.BookingCheckedIn)
}

func (s *BookingSvc) Complete(ctx context.Context, id string) (*domain.Booking, error) {
	return s.advance(ctx, id, domain.BookingCompleted)
}

func (s *BookingSvc) NoShow(ctx context.Context, id string) (*domain.Booking, error) {
	return s.advance(ctx, id, domain.BookingNoShow)
}

var transitions = map[string][]string{
	domain.BookingPending:   {domain.BookingConfirmed, domain.BookingCancelled},
	domain.BookingConfirmed: {domain.BookingCheckedIn, domain.BookingCancelled, domain.BookingNoShow},
	domain.BookingCheckedIn: {domain.BookingCompleted},
}

func (s *BookingSvc) advance(ctx context.Context, id, to string) (*domain.Booking, error) {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return nil, wrapStore(err)
	}
	allowed := false
	for _, next := range transitions[b.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &PolicyError{Clause: "status", Detail: fmt.Sprintf("%s -> %s not permitted", b.Status, to)}
	}
	updated, err := s.bookings.UpdateStatus(ctx, id, to, "")
	if err != nil {
		return nil, wrapStore(err)
	}
	s.emitBooking(ctx, updated)
	return updated, nil
}

func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return nil, wrapStore(err)
	}
	return b, nil
}

func (s *BookingSvc) List(ctx context.Context, page, size int32, userID, courseID, date string) ([]domain.Booking, int64, error) {
	out, total, err := s.bookings.List(ctx, page, size, userID, courseID, date)
	if err != nil {
		return nil, 0, wrapStore(err)
	}
	return out, total, nil
}

// AdjustCapacity is an operator action. A capacity increase frees
// seats, so it emits a change event and triggers promotion just like a
// cancellation.
func (s *BookingSvc) AdjustCapacity(ctx context.Context, slotID string, capacity int32) (*domain.AvailabilitySlot, error) {
	before, err := s.slots.ByID(ctx, slotID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if capacity < before.Booked {
		return nil, fmt.Errorf("%w: capacity %d below booked %d", ErrInvalidRequest, capacity, before.Booked)
	}
	slot, err := s.slots.SetCapacity(ctx, slotID, capacity)
	if err != nil {
		return nil, wrapStore(err)
	}
	s.emitAvailability(ctx, slot.CourseID, slot.Date, slot.ID, events.ChangeCapacity, slot.Booked, slot.Capacity)
	if capacity > before.Capacity && slot.IsAvailable() && s.promoter != nil {
		_ = s.promoter.PromoteForSlot(context.WithoutCancel(ctx), slot)
	}
	return slot, nil
}

// matchSlot reads current availability straight from the store and
// picks the first slot within the tolerance window that fits players
// (players == 0 matches regardless of room, for same-slot modifies).
func (s *BookingSvc) matchSlot(ctx context.Context, courseID, date string, tee time.Time, players int32) (*domain.AvailabilitySlot, error) {
	from := tee.Add(-s.cfg.Tolerance)
	to := tee.Add(s.cfg.Tolerance)
	slots, err := s.slots.Slots(ctx, courseID, date, from, to)
	if err != nil {
		return nil, wrapStore(err)
	}
	for i := range slots {
		if players == 0 || slots[i].Open() >= players {
			return &slots[i], nil
		}
	}
	return nil, nil
}

// releaseSeats decrements booked via the CAS, retrying transient
// races. Decrements cannot starve forever under the bound in practice;
// exhaustion means the store is misbehaving.
func (s *BookingSvc) releaseSeats(ctx context.Context, slotID string, players int32) (*domain.AvailabilitySlot, error) {
	return s.adjustSeats(ctx, slotID, -players)
}

// adjustSeats moves booked by delta through the CAS, clamped at zero.
// Positive deltas restore a claim after a failed write and are still
// bounded by capacity via the conditional write.
func (s *BookingSvc) adjustSeats(ctx context.Context, slotID string, delta int32) (*domain.AvailabilitySlot, error) {
	for attempt := 0; attempt < s.cfg.RetryBound; attempt++ {
		slot, err := s.slots.ByID(ctx, slotID)
		if err != nil {
			return nil, wrapStore(err)
		}
		next := slot.Booked + delta
		if next < 0 {
			next = 0
		}
		ok, err := s.slots.WriteSlotIfBooked(ctx, slotID, slot.Booked, next)
		if err != nil {
			return nil, wrapStore(err)
		}
		if ok {
			slot.Booked = next
			return slot, nil
		}
	}
	return nil, fmt.Errorf("%w: could not adjust seats on slot %s", ErrStoreFailure, slotID)
}

func (s *BookingSvc) refundTerms(ctx context.Context, b *domain.Booking, reason string) (int32, int64, error) {
	if reason == ReasonWeather || reason == ReasonCourseClosed || reason == ReasonGroupCancelled {
		return 100, 0, nil
	}
	course, err := s.courses.ByID(ctx, b.CourseID)
	if err != nil {
		return 0, 0, wrapStore(err)
	}
	hours := b.TeeTime.Sub(s.now()).Hours()
	switch {
	case hours >= float64(course.FreeCancelHours):
		return 100, 0, nil
	case hours >= float64(course.PartialCancelHours):
		return course.RefundPercent, course.CancelFlatFeeCents, nil
	default:
		return 0, 0, &PolicyError{
			Clause:      "cancel_window",
			HoursBefore: hours,
			Detail: fmt.Sprintf("cancellations need %dh notice (partial until %dh)",
				course.FreeCancelHours, course.PartialCancelHours),
		}
	}
}

func (s *BookingSvc) emitAvailability(ctx context.Context, courseID, date, slotID, change string, booked, capacity int32) {
	_ = s.pub.PublishJSON(context.WithoutCancel(ctx), events.RKAvailabilityChanged, events.AvailabilityChanged{
		CourseID: courseID,
		Date:     date,
		SlotID:   slotID,
		Change:   change,
		Booked:   booked,
		Capacity: capacity,
		At:       s.now().Unix(),
	})
}

func (s *BookingSvc) emitBooking(ctx context.Context, b *domain.Booking) {
	_ = s.pub.PublishJSON(context.WithoutCancel(ctx), events.RKBookingUpdated, events.BookingUpdated{
		BookingID: b.ID,
		CourseID:  b.CourseID,
		UserID:    b.UserID,
		Status:    b.Status,
		At:        s.now().Unix(),
	})
}

func confirmationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
