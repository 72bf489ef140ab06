package service

import (
	"context"
	"time"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

// Store adapter boundaries the services depend on. The gorm
// repositories satisfy these; tests swap in in-memory fakes.

type SlotStore interface {
	Slots(ctx context.Context, courseID, date string, from, to time.Time) ([]domain.AvailabilitySlot, error)
	ByID(ctx context.Context, id string) (*domain.AvailabilitySlot, error)
	// WriteSlotIfBooked is the optimistic-concurrency guard: the write
	// lands only if booked still equals expected.
	WriteSlotIfBooked(ctx context.Context, slotID string, expected, booked int32) (bool, error)
	SetCapacity(ctx context.Context, slotID string, capacity int32) (*domain.AvailabilitySlot, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *domain.Booking) error
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id, status, paymentStatus string) (*domain.Booking, error)
	Rebook(ctx context.Context, id, slotID string, teeTime time.Time, players int32) (*domain.Booking, error)
	List(ctx context.Context, page, size int32, userID, courseID, date string) ([]domain.Booking, int64, error)
	ByGroup(ctx context.Context, groupID string) ([]domain.Booking, error)
}

type WaitlistStore interface {
	Append(ctx context.Context, e *domain.WaitListEntry) error
	Remove(ctx context.Context, id string) (*domain.WaitListEntry, error)
	ByID(ctx context.Context, id string) (*domain.WaitListEntry, error)
	ByCourseDate(ctx context.Context, courseID, date string) ([]domain.WaitListEntry, error)
	MarkOffered(ctx context.Context, id, slotID string, expiresAt time.Time) error
	ExpiredOffers(ctx context.Context, now time.Time) ([]domain.WaitListEntry, error)
}

type GroupStore interface {
	Create(ctx context.Context, g *domain.GroupBooking) error
	ByID(ctx context.Context, id string) (*domain.GroupBooking, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.GroupBooking, error)
	UpdatePayment(ctx context.Context, id, mode string, split map[string]any) error
	AddMember(ctx context.Context, m *domain.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	UpdateMember(ctx context.Context, m *domain.GroupMember) error
	ConfirmedPastDate(ctx context.Context, date string) ([]domain.GroupBooking, error)
}

type CourseStore interface {
	ByID(ctx context.Context, id string) (*domain.Course, error)
	SetStatus(ctx context.Context, id, status, note string) (*domain.Course, error)
}

// Publisher is the transport collaborator the services emit change
// notifications through (mq.Publisher in production).
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}
