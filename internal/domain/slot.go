package domain

import "time"

// AvailabilitySlot is a bookable tee-time window. Booked is only ever
// moved through the conditional write in repository.SlotRepo, never by
// plain updates.
type AvailabilitySlot struct {
	ID           string    `gorm:"primaryKey"`
	CourseID     string    `gorm:"index:idx_slot_course_date"`
	Date         string    `gorm:"index:idx_slot_course_date"` // YYYY-MM-DD, course-local
	StartTime    time.Time `gorm:"index"`
	EndTime      time.Time
	Capacity     int32
	Booked       int32
	PriceCents   int64
	Restrictions string // e.g. "members_only", empty = none
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *AvailabilitySlot) Open() int32 {
	return s.Capacity - s.Booked
}

func (s *AvailabilitySlot) IsAvailable() bool {
	return s.Booked < s.Capacity
}
