package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys on the tee-time exchange.
const (
	RKAvailabilityChanged = "availability.changed"
	RKBookingUpdated      = "booking.updated"
	RKCourseStatus        = "course.status"
	RKWaitListOffered     = "waitlist.offered"
)

// Availability change kinds.
const (
	ChangeBooked   = "booked"
	ChangeReleased = "released"
	ChangeCapacity = "capacity"
)

// AvailabilityChanged carries enough for subscribers to refresh a
// course/date view without a second read.
type AvailabilityChanged struct {
	CourseID string `json:"course_id"`
	Date     string `json:"date"`
	SlotID   string `json:"slot_id"`
	Change   string `json:"change"` // booked|released|capacity
	Booked   int32  `json:"booked"`
	Capacity int32  `json:"capacity"`
	At       int64  `json:"at"` // unix seconds
}

type BookingUpdated struct {
	BookingID string `json:"booking_id"`
	CourseID  string `json:"course_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	At        int64  `json:"at"`
}

type CourseStatus struct {
	CourseID string `json:"course_id"`
	Status   string `json:"status"`
	Note     string `json:"note,omitempty"`
	At       int64  `json:"at"`
}

type WaitListOffered struct {
	EntryID   string `json:"entry_id"`
	UserID    string `json:"user_id"`
	CourseID  string `json:"course_id"`
	Date      string `json:"date"`
	SlotID    string `json:"slot_id"`
	ExpiresAt int64  `json:"expires_at"`
}

func MustUnmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
