package domain

import "time"

const (
	NotifyPush  = "PUSH"
	NotifyEmail = "EMAIL"
	NotifySMS   = "SMS"
)

// WaitListEntry queues demand for a full course/date window. Position
// is 1-based and kept contiguous per (course, date) by the repository.
type WaitListEntry struct {
	ID           string `gorm:"primaryKey"`
	CourseID     string `gorm:"index:idx_wl_course_date"`
	Date         string `gorm:"index:idx_wl_course_date"`
	EarliestTime time.Time
	LatestTime   time.Time
	Players      int32
	UserID       string `gorm:"index"`
	Position     int32  `gorm:"index"`
	NotifyPref   string

	// Set while an offer is outstanding; cleared or resolved by the
	// grace-period sweep.
	OfferedSlotID  string
	OfferExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
