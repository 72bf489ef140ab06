package domain

import "time"

// Course operational status values carried on course.status events.
const (
	CourseOpen        = "OPEN"
	CourseClosed      = "CLOSED"
	CourseMaintenance = "MAINTENANCE"
	CourseWeatherHold = "WEATHER_HOLD"
)

type Course struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	City       string
	Holes      int32
	Status     string `gorm:"index;default:OPEN"`
	StatusNote string
	OwnerID    string // from JWT (role OWNER/ADMIN)

	// Cancellation policy, per course.
	FreeCancelHours    int32 // full refund until this many hours before tee time
	PartialCancelHours int32 // partial refund until this many hours before
	RefundPercent      int32 // percent refunded inside the partial window
	CancelFlatFeeCents int64 // deducted from any partial refund

	CreatedAt time.Time
	UpdatedAt time.Time
}
