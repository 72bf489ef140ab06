package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
	"github.com/Chromeox/CourseScout-sub004/internal/events"
)

// Booker is the slice of the transaction processor the wait list needs
// to turn a claimed offer into a real booking.
type Booker interface {
	Create(ctx context.Context, req CreateRequest) (*domain.Booking, error)
}

type WaitlistConfig struct {
	GracePeriod time.Duration // how long an offer stays claimable
	Turnover    time.Duration // average time for one position to clear
}

// WaitlistSvc manages queued demand for full slots and promotes
// entries when seats free up.
type WaitlistSvc struct {
	entries WaitlistStore
	slots   SlotStore
	booker  Booker
	pub     Publisher
	cfg     WaitlistConfig
	now     func() time.Time
}

func NewWaitlistSvc(entries WaitlistStore, slots SlotStore, booker Booker, pub Publisher, cfg WaitlistConfig) *WaitlistSvc {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 10 * time.Minute
	}
	if cfg.Turnover <= 0 {
		cfg.Turnover = 12 * time.Minute
	}
	return &WaitlistSvc{
		entries: entries,
		slots:   slots,
		booker:  booker,
		pub:     pub,
		cfg:     cfg,
		now:     time.Now,
	}
}

type JoinRequest struct {
	UserID     string
	CourseID   string
	Date       string
	Earliest   time.Time
	Latest     time.Time
	Players    int32
	NotifyPref string
}

// JoinResult either points the caller at a slot that is already free
// (book now, no waiting) or carries the queued entry.
type JoinResult struct {
	SlotAvailable bool
	Slot          *domain.AvailabilitySlot
	Entry         *domain.WaitListEntry
	EstimatedWait time.Duration
}

// Join re-checks live availability first: if demand already cleared,
// the caller is told to book instead of being queued.
func (s *WaitlistSvc) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	if req.Players < 1 || req.UserID == "" || req.CourseID == "" {
		return nil, fmt.Errorf("%w: user, course and players are required", ErrInvalidRequest)
	}
	slots, err := s.slots.Slots(ctx, req.CourseID, req.Date, req.Earliest, req.Latest)
	if err != nil {
		return nil, wrapStore(err)
	}
	for i := range slots {
		if slots[i].Open() >= req.Players {
			return &JoinResult{SlotAvailable: true, Slot: &slots[i]}, nil
		}
	}

	e := &domain.WaitListEntry{
		CourseID:     req.CourseID,
		Date:         req.Date,
		EarliestTime: req.Earliest,
		LatestTime:   req.Latest,
		Players:      req.Players,
		UserID:       req.UserID,
		NotifyPref:   req.NotifyPref,
	}
	if err := s.entries.Append(ctx, e); err != nil {
		return nil, wrapStore(err)
	}
	return &JoinResult{Entry: e, EstimatedWait: s.estimate(e.Position)}, nil
}

// Leave removes the caller's entry; the repository compacts positions
// behind it.
func (s *WaitlistSvc) Leave(ctx context.Context, id, actorID string) error {
	e, err := s.entries.ByID(ctx, id)
	if err != nil {
		return wrapStore(err)
	}
	if actorID != "" && e.UserID != actorID {
		return fmt.Errorf("%w: entry %s does not belong to caller", ErrNotEligible, id)
	}
	if _, err := s.entries.Remove(ctx, id); err != nil {
		return wrapStore(err)
	}
	return nil
}

type EntryStatus struct {
	Entry         *domain.WaitListEntry
	EstimatedWait time.Duration
}

func (s *WaitlistSvc) Status(ctx context.Context, id string) (*EntryStatus, error) {
	e, err := s.entries.ByID(ctx, id)
	if err != nil {
		return nil, wrapStore(err)
	}
	return &EntryStatus{Entry: e, EstimatedWait: s.estimate(e.Position)}, nil
}

// PromoteForSlot runs once per released slot: the first entry in
// position order that fits the freed seats and whose time window
// covers the slot gets the offer. Entries with an outstanding offer
// are skipped; the grace sweep resolves those.
func (s *WaitlistSvc) PromoteForSlot(ctx context.Context, slot *domain.AvailabilitySlot) error {
	if slot == nil || !slot.IsAvailable() {
		return nil
	}
	queue, err := s.entries.ByCourseDate(ctx, slot.CourseID, slot.Date)
	if err != nil {
		return wrapStore(err)
	}
	for i := range queue {
		e := &queue[i]
		if e.OfferedSlotID != "" {
			continue
		}
		if e.Players > slot.Open() {
			continue
		}
		if !e.EarliestTime.IsZero() && slot.StartTime.Before(e.EarliestTime) {
			continue
		}
		if !e.LatestTime.IsZero() && slot.StartTime.After(e.LatestTime) {
			continue
		}
		expires := s.now().Add(s.cfg.GracePeriod)
		if err := s.entries.MarkOffered(ctx, e.ID, slot.ID, expires); err != nil {
			return wrapStore(err)
		}
		_ = s.pub.PublishJSON(ctx, events.RKWaitListOffered, events.WaitListOffered{
			EntryID:   e.ID,
			UserID:    e.UserID,
			CourseID:  e.CourseID,
			Date:      e.Date,
			SlotID:    slot.ID,
			ExpiresAt: expires.Unix(),
		})
		return nil
	}
	return nil
}

// Claim converts an outstanding offer into a booking through the
// transaction processor and resolves the entry.
func (s *WaitlistSvc) Claim(ctx context.Context, entryID, userID string) (*domain.Booking, error) {
	e, err := s.entries.ByID(ctx, entryID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if e.UserID != userID {
		return nil, fmt.Errorf("%w: entry %s does not belong to caller", ErrNotEligible, entryID)
	}
	if e.OfferedSlotID == "" {
		return nil, &PolicyError{Clause: "no_offer", Detail: "entry has no outstanding slot offer"}
	}
	if e.OfferExpiresAt != nil && s.now().After(*e.OfferExpiresAt) {
		return nil, &PolicyError{Clause: "offer_expired", Detail: "the grace window has lapsed"}
	}
	slot, err := s.slots.ByID(ctx, e.OfferedSlotID)
	if err != nil {
		return nil, wrapStore(err)
	}
	b, err := s.booker.Create(ctx, CreateRequest{
		UserID:   e.UserID,
		CourseID: e.CourseID,
		Date:     e.Date,
		TeeTime:  slot.StartTime,
		Players:  e.Players,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.entries.Remove(ctx, e.ID); err != nil {
		log.Printf("[waitlist] claimed entry %s could not be removed: %v", e.ID, err)
	}
	return b, nil
}

// ResolveExpiredOffers removes entries whose grace window lapsed
// unclaimed and hands each freed slot to the next entry in line.
// Driven by the janitor.
func (s *WaitlistSvc) ResolveExpiredOffers(ctx context.Context) error {
	expired, err := s.entries.ExpiredOffers(ctx, s.now())
	if err != nil {
		return wrapStore(err)
	}
	for i := range expired {
		e := &expired[i]
		if _, err := s.entries.Remove(ctx, e.ID); err != nil {
			log.Printf("[waitlist] expire entry %s: %v", e.ID, err)
			continue
		}
		slot, err := s.slots.ByID(ctx, e.OfferedSlotID)
		if err != nil {
			log.Printf("[waitlist] reload slot %s: %v", e.OfferedSlotID, err)
			continue
		}
		if err := s.PromoteForSlot(ctx, slot); err != nil {
			log.Printf("[waitlist] re-promote slot %s: %v", slot.ID, err)
		}
	}
	return nil
}

func (s *WaitlistSvc) estimate(position int32) time.Duration {
	return time.Duration(position) * s.cfg.Turnover
}
