package domain

import "time"

const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCheckedIn = "CHECKED_IN"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
	BookingNoShow    = "NO_SHOW"
)

const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
	PaymentPartial  = "PARTIAL_REFUND"
)

// Booking is retained as history after cancellation, never deleted.
// Status moves only through service.BookingSvc transitions.
type Booking struct {
	ID               string    `gorm:"primaryKey"`
	CourseID         string    `gorm:"index"`
	SlotID           string    `gorm:"index"`
	UserID           string    `gorm:"index"`
	Date             string    `gorm:"index"` // YYYY-MM-DD
	TeeTime          time.Time `gorm:"index"`
	Players          int32
	Status           string `gorm:"index"`
	PaymentStatus    string
	ConfirmationCode string `gorm:"uniqueIndex"`
	GroupID          string `gorm:"index"` // empty for individual bookings
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
