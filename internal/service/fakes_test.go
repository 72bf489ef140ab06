package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

// In-memory stores implementing the adapter contracts, including the
// CAS semantics of the slot write.

type memSlots struct {
	mu    sync.Mutex
	slots map[string]*domain.AvailabilitySlot
}

func newMemSlots(slots ...*domain.AvailabilitySlot) *memSlots {
	m := &memSlots{slots: make(map[string]*domain.AvailabilitySlot)}
	for _, s := range slots {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		m.slots[s.ID] = s
	}
	return m
}

func (m *memSlots) Slots(_ context.Context, courseID, date string, from, to time.Time) ([]domain.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AvailabilitySlot
	for _, s := range m.slots {
		if s.CourseID != courseID || s.Date != date {
			continue
		}
		if !from.IsZero() && s.StartTime.Before(from) {
			continue
		}
		if !to.IsZero() && s.StartTime.After(to) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memSlots) ByID(_ context.Context, id string) (*domain.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) WriteSlotIfBooked(_ context.Context, slotID string, expected, booked int32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if s.Booked != expected || booked > s.Capacity {
		return false, nil
	}
	s.Booked = booked
	return true, nil
}

func (m *memSlots) SetCapacity(_ context.Context, slotID string, capacity int32) (*domain.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	s.Capacity = capacity
	cp := *s
	return &cp, nil
}

func (m *memSlots) booked(id string) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[id].Booked
}

type memBookings struct {
	mu   sync.Mutex
	rows map[string]*domain.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{rows: make(map[string]*domain.Booking)}
}

func (m *memBookings) Create(_ context.Context, b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	cp := *b
	m.rows[b.ID] = &cp
	return nil
}

func (m *memBookings) ByID(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) UpdateStatus(_ context.Context, id, status, paymentStatus string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	b.Status = status
	if paymentStatus != "" {
		b.PaymentStatus = paymentStatus
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) Rebook(_ context.Context, id, slotID string, teeTime time.Time, players int32) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	b.SlotID = slotID
	b.TeeTime = teeTime
	b.Players = players
	cp := *b
	return &cp, nil
}

func (m *memBookings) List(_ context.Context, _, _ int32, userID, courseID, date string) ([]domain.Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.rows {
		if userID != "" && b.UserID != userID {
			continue
		}
		if courseID != "" && b.CourseID != courseID {
			continue
		}
		if date != "" && b.Date != date {
			continue
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (m *memBookings) ByGroup(_ context.Context, groupID string) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.rows {
		if b.GroupID == groupID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBookings) confirmedOnSlot(slotID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.rows {
		if b.SlotID == slotID && b.Status == domain.BookingConfirmed {
			n++
		}
	}
	return n
}

type memWaitlist struct {
	mu   sync.Mutex
	rows []*domain.WaitListEntry
}

func newMemWaitlist() *memWaitlist { return &memWaitlist{} }

func (m *memWaitlist) Append(_ context.Context, e *domain.WaitListEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	var tail int32
	for _, row := range m.rows {
		if row.CourseID == e.CourseID && row.Date == e.Date && row.Position > tail {
			tail = row.Position
		}
	}
	e.Position = tail + 1
	cp := *e
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memWaitlist) Remove(_ context.Context, id string) (*domain.WaitListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID != id {
			continue
		}
		removed := *row
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
		for _, other := range m.rows {
			if other.CourseID == removed.CourseID && other.Date == removed.Date && other.Position > removed.Position {
				other.Position--
			}
		}
		return &removed, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memWaitlist) ByID(_ context.Context, id string) (*domain.WaitListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memWaitlist) ByCourseDate(_ context.Context, courseID, date string) ([]domain.WaitListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WaitListEntry
	for _, row := range m.rows {
		if row.CourseID == courseID && row.Date == date {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memWaitlist) MarkOffered(_ context.Context, id, slotID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			row.OfferedSlotID = slotID
			t := expiresAt
			row.OfferExpiresAt = &t
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memWaitlist) ExpiredOffers(_ context.Context, now time.Time) ([]domain.WaitListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WaitListEntry
	for _, row := range m.rows {
		if row.OfferedSlotID != "" && row.OfferExpiresAt != nil && row.OfferExpiresAt.Before(now) {
			out = append(out, *row)
		}
	}
	return out, nil
}

type memGroups struct {
	mu   sync.Mutex
	rows map[string]*domain.GroupBooking
}

func newMemGroups() *memGroups {
	return &memGroups{rows: make(map[string]*domain.GroupBooking)}
}

func (m *memGroups) Create(_ context.Context, g *domain.GroupBooking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	for i := range g.Members {
		if g.Members[i].ID == "" {
			g.Members[i].ID = uuid.NewString()
		}
		g.Members[i].GroupID = g.ID
	}
	cp := cloneGroup(g)
	m.rows[g.ID] = cp
	return nil
}

func (m *memGroups) ByID(_ context.Context, id string) (*domain.GroupBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneGroup(g), nil
}

func (m *memGroups) UpdateStatus(_ context.Context, id, status string) (*domain.GroupBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	g.Status = status
	return cloneGroup(g), nil
}

func (m *memGroups) UpdatePayment(_ context.Context, id, mode string, split map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	g.PaymentMode = mode
	if split != nil {
		g.CustomSplit = split
	}
	return nil
}

func (m *memGroups) AddMember(_ context.Context, member *domain.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[member.GroupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	g.Members = append(g.Members, *member)
	return nil
}

func (m *memGroups) RemoveMember(_ context.Context, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[groupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memGroups) UpdateMember(_ context.Context, member *domain.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[member.GroupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range g.Members {
		if g.Members[i].ID == member.ID {
			g.Members[i] = *member
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memGroups) ConfirmedPastDate(_ context.Context, date string) ([]domain.GroupBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GroupBooking
	for _, g := range m.rows {
		if g.Status == domain.GroupConfirmed && g.Date < date {
			out = append(out, *cloneGroup(g))
		}
	}
	return out, nil
}

func cloneGroup(g *domain.GroupBooking) *domain.GroupBooking {
	cp := *g
	cp.Members = append([]domain.GroupMember(nil), g.Members...)
	return &cp
}

type memCourses struct {
	mu   sync.Mutex
	rows map[string]*domain.Course
}

func newMemCourses(courses ...*domain.Course) *memCourses {
	m := &memCourses{rows: make(map[string]*domain.Course)}
	for _, c := range courses {
		m.rows[c.ID] = c
	}
	return m
}

func (m *memCourses) ByID(_ context.Context, id string) (*domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCourses) SetStatus(_ context.Context, id, status, note string) (*domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c.Status = status
	c.StatusNote = note
	cp := *c
	return &cp, nil
}

// recordingPub captures everything the services emit.
type recordingPub struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPub) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPub) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

// failingSlots wraps memSlots to error on reads, for store-failure
// paths.
type failingSlots struct {
	*memSlots
	err error
}

func (f *failingSlots) Slots(context.Context, string, string, time.Time, time.Time) ([]domain.AvailabilitySlot, error) {
	return nil, f.err
}

var errStoreDown = fmt.Errorf("connection refused")
