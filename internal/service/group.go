package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

// Canceller is the slice of the transaction processor group
// cancellation needs to release member bookings.
type Canceller interface {
	Cancel(ctx context.Context, bookingID, actorID, reason string) (*CancelResult, error)
}

type GroupConfig struct {
	MaxSize   int
	Tolerance time.Duration // tee-time match window for slot checks
}

// GroupSvc coordinates N member bookings under one envelope. Member
// bookings themselves always go through the transaction processor.
type GroupSvc struct {
	groups    GroupStore
	slots     SlotStore
	booker    Booker
	canceller Canceller
	now       func() time.Time
	cfg       GroupConfig
}

func NewGroupSvc(groups GroupStore, slots SlotStore, booker Booker, canceller Canceller, cfg GroupConfig) *GroupSvc {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 16
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 5 * time.Minute
	}
	return &GroupSvc{
		groups:    groups,
		slots:     slots,
		booker:    booker,
		canceller: canceller,
		now:       time.Now,
		cfg:       cfg,
	}
}

type CreateGroupRequest struct {
	CoordinatorID string
	CourseID      string
	Date          string
	TargetSize    int32
	PaymentMode   string
	CustomSplit   map[string]any
	InviteUserIDs []string
	// The tee times the group wants, with the party size per slot.
	Slots []SlotRef
}

// Create validates the group and checks availability for every
// requested slot before anything is persisted. Partial availability is
// a structured failure naming exactly the slots that cannot be
// satisfied; no bookings are created in that case.
func (s *GroupSvc) Create(ctx context.Context, req CreateGroupRequest) (*domain.GroupBooking, error) {
	if req.TargetSize < 2 || int(req.TargetSize) > s.cfg.MaxSize {
		return nil, fmt.Errorf("%w: target size %d outside 2..%d", ErrGroupSize, req.TargetSize, s.cfg.MaxSize)
	}
	if len(req.Slots) == 0 {
		return nil, fmt.Errorf("%w: at least one slot is required", ErrInvalidRequest)
	}
	switch req.PaymentMode {
	case domain.PayCoordinator, domain.PaySplitEven, domain.PayPerPlayer:
	case domain.PayCustom:
		if len(req.CustomSplit) == 0 {
			return nil, fmt.Errorf("%w: custom payment mode needs a split map", ErrInvalidRequest)
		}
	default:
		return nil, fmt.Errorf("%w: unknown payment mode %q", ErrInvalidRequest, req.PaymentMode)
	}

	// One consistent read of the day, then every requested slot is
	// checked against it. claimed accumulates seats taken by earlier
	// refs so two refs on the same physical slot cannot jointly exceed
	// its open count.
	slots, err := s.slots.Slots(ctx, req.CourseID, req.Date, time.Time{}, time.Time{})
	if err != nil {
		return nil, wrapStore(err)
	}
	claimed := make(map[string]int32)
	var unavailable []SlotRef
	for _, want := range req.Slots {
		if !s.fits(slots, claimed, want) {
			unavailable = append(unavailable, want)
		}
	}
	if len(unavailable) > 0 {
		return nil, &GroupAvailabilityError{
			CourseID:    req.CourseID,
			Date:        req.Date,
			Unavailable: unavailable,
		}
	}

	g := &domain.GroupBooking{
		CoordinatorID: req.CoordinatorID,
		CourseID:      req.CourseID,
		Date:          req.Date,
		TargetSize:    req.TargetSize,
		PaymentMode:   req.PaymentMode,
		CustomSplit:   req.CustomSplit,
		Status:        domain.GroupForming,
	}
	now := s.now()
	g.Members = append(g.Members, domain.GroupMember{
		UserID:    req.CoordinatorID,
		Status:    domain.InviteAccepted,
		InvitedAt: now,
		RepliedAt: &now,
	})
	for _, uid := range req.InviteUserIDs {
		g.Members = append(g.Members, domain.GroupMember{
			UserID:    uid,
			Status:    domain.InviteInvited,
			InvitedAt: now,
		})
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, wrapStore(err)
	}
	return g, nil
}

func (s *GroupSvc) Get(ctx context.Context, id string) (*domain.GroupBooking, error) {
	g, err := s.groups.ByID(ctx, id)
	if err != nil {
		return nil, wrapStore(err)
	}
	return g, nil
}

// Invite adds a member. Coordinator-only, like every management action.
func (s *GroupSvc) Invite(ctx context.Context, groupID, actorID, userID string) (*domain.GroupMember, error) {
	g, err := s.coordinatorGroup(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if len(g.Members) >= int(g.TargetSize) {
		return nil, fmt.Errorf("%w: group already has %d of %d members", ErrGroupSize, len(g.Members), g.TargetSize)
	}
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return nil, fmt.Errorf("%w: user %s already invited", ErrInvalidRequest, userID)
		}
	}
	m := &domain.GroupMember{GroupID: g.ID, UserID: userID, Status: domain.InviteInvited, InvitedAt: s.now()}
	if err := s.groups.AddMember(ctx, m); err != nil {
		return nil, wrapStore(err)
	}
	return m, nil
}

func (s *GroupSvc) RemoveMember(ctx context.Context, groupID, actorID, userID string) error {
	g, err := s.coordinatorGroup(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if userID == g.CoordinatorID {
		return fmt.Errorf("%w: the coordinator cannot be removed", ErrInvalidRequest)
	}
	for i := range g.Members {
		if g.Members[i].UserID == userID && g.Members[i].Status == domain.InviteBooked {
			return &PolicyError{Clause: "member_booked", Detail: "cancel the member booking before removal"}
		}
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return wrapStore(err)
	}
	return nil
}

func (s *GroupSvc) UpdatePayment(ctx context.Context, groupID, actorID, mode string, split map[string]any) error {
	if _, err := s.coordinatorGroup(ctx, groupID, actorID); err != nil {
		return err
	}
	switch mode {
	case domain.PayCoordinator, domain.PaySplitEven, domain.PayPerPlayer:
	case domain.PayCustom:
		if len(split) == 0 {
			return fmt.Errorf("%w: custom payment mode needs a split map", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown payment mode %q", ErrInvalidRequest, mode)
	}
	if err := s.groups.UpdatePayment(ctx, groupID, mode, split); err != nil {
		return wrapStore(err)
	}
	return nil
}

// Cancel ends a forming or partial group and releases every member
// booking. Coordinator-initiated, so members are refunded in full.
func (s *GroupSvc) Cancel(ctx context.Context, groupID, actorID string) (*domain.GroupBooking, error) {
	g, err := s.coordinatorGroup(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if g.Status != domain.GroupForming && g.Status != domain.GroupPartial {
		return nil, &PolicyError{Clause: "status", Detail: fmt.Sprintf("group is %s", g.Status)}
	}
	for i := range g.Members {
		m := &g.Members[i]
		if m.Status != domain.InviteBooked || m.BookingID == "" {
			continue
		}
		if _, err := s.canceller.Cancel(ctx, m.BookingID, "", ReasonGroupCancelled); err != nil {
			log.Printf("[group] cancel member booking %s: %v", m.BookingID, err)
		}
	}
	updated, err := s.groups.UpdateStatus(ctx, groupID, domain.GroupCancelled)
	if err != nil {
		return nil, wrapStore(err)
	}
	return updated, nil
}

// AcceptInvite books the member's seats through the transaction
// processor and re-derives the group status.
func (s *GroupSvc) AcceptInvite(ctx context.Context, groupID, userID string, teeTime time.Time, players int32) (*domain.Booking, error) {
	g, err := s.groups.ByID(ctx, groupID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if g.Status != domain.GroupForming && g.Status != domain.GroupPartial {
		return nil, &PolicyError{Clause: "status", Detail: fmt.Sprintf("group is %s", g.Status)}
	}
	member := findMember(g, userID)
	if member == nil {
		return nil, fmt.Errorf("%w: user %s is not invited to group %s", ErrNotEligible, userID, groupID)
	}
	if member.Status == domain.InviteBooked {
		return nil, fmt.Errorf("%w: member already booked", ErrInvalidRequest)
	}
	if players < 1 {
		players = 1
	}
	b, err := s.booker.Create(ctx, CreateRequest{
		UserID:   userID,
		CourseID: g.CourseID,
		Date:     g.Date,
		TeeTime:  teeTime,
		Players:  players,
		GroupID:  g.ID,
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	member.Status = domain.InviteBooked
	member.BookingID = b.ID
	member.RepliedAt = &now
	if err := s.groups.UpdateMember(ctx, member); err != nil {
		return nil, wrapStore(err)
	}
	if err := s.rederiveStatus(ctx, g.ID); err != nil {
		log.Printf("[group] rederive status %s: %v", g.ID, err)
	}
	return b, nil
}

func (s *GroupSvc) DeclineInvite(ctx context.Context, groupID, userID string) error {
	g, err := s.groups.ByID(ctx, groupID)
	if err != nil {
		return wrapStore(err)
	}
	member := findMember(g, userID)
	if member == nil {
		return fmt.Errorf("%w: user %s is not invited to group %s", ErrNotEligible, userID, groupID)
	}
	if member.Status == domain.InviteBooked {
		return &PolicyError{Clause: "member_booked", Detail: "cancel the booking instead of declining"}
	}
	now := s.now()
	member.Status = domain.InviteDeclined
	member.RepliedAt = &now
	if err := s.groups.UpdateMember(ctx, member); err != nil {
		return wrapStore(err)
	}
	return nil
}

// CompletePast moves confirmed groups whose date has passed to
// Completed. Driven by the janitor.
func (s *GroupSvc) CompletePast(ctx context.Context) error {
	today := s.now().Format("2006-01-02")
	groups, err := s.groups.ConfirmedPastDate(ctx, today)
	if err != nil {
		return wrapStore(err)
	}
	for i := range groups {
		if _, err := s.groups.UpdateStatus(ctx, groups[i].ID, domain.GroupCompleted); err != nil {
			log.Printf("[group] complete %s: %v", groups[i].ID, err)
		}
	}
	return nil
}

// rederiveStatus applies the machine: Forming -> Confirmed when every
// required member has booked and paid, Forming -> Partial when some
// have. Cancelled and Completed are terminal and never touched here.
func (s *GroupSvc) rederiveStatus(ctx context.Context, groupID string) error {
	g, err := s.groups.ByID(ctx, groupID)
	if err != nil {
		return wrapStore(err)
	}
	if g.Status == domain.GroupCancelled || g.Status == domain.GroupCompleted {
		return nil
	}
	booked := 0
	for i := range g.Members {
		if g.Members[i].Status == domain.InviteBooked {
			booked++
		}
	}
	next := g.Status
	switch {
	case booked >= int(g.TargetSize):
		next = domain.GroupConfirmed
	case booked > 0:
		next = domain.GroupPartial
	}
	if next == g.Status {
		return nil
	}
	if _, err := s.groups.UpdateStatus(ctx, groupID, next); err != nil {
		return wrapStore(err)
	}
	return nil
}

func (s *GroupSvc) coordinatorGroup(ctx context.Context, groupID, actorID string) (*domain.GroupBooking, error) {
	g, err := s.groups.ByID(ctx, groupID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if g.CoordinatorID != actorID {
		return nil, fmt.Errorf("%w: group %s", ErrNotCoordinator, groupID)
	}
	return g, nil
}

func (s *GroupSvc) fits(slots []domain.AvailabilitySlot, claimed map[string]int32, want SlotRef) bool {
	for i := range slots {
		d := slots[i].StartTime.Sub(want.TeeTime)
		if d < 0 {
			d = -d
		}
		if d <= s.cfg.Tolerance && slots[i].Open()-claimed[slots[i].ID] >= want.Players {
			claimed[slots[i].ID] += want.Players
			return true
		}
	}
	return false
}

func findMember(g *domain.GroupBooking, userID string) *domain.GroupMember {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}
