package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	GroupForming   = "FORMING"
	GroupConfirmed = "CONFIRMED"
	GroupPartial   = "PARTIAL"
	GroupCancelled = "CANCELLED"
	GroupCompleted = "COMPLETED"
)

const (
	PayCoordinator = "COORDINATOR_PAYS"
	PaySplitEven   = "SPLIT_EVENLY"
	PayPerPlayer   = "PER_INDIVIDUAL"
	PayCustom      = "CUSTOM"
)

const (
	InviteInvited  = "INVITED"
	InviteAccepted = "ACCEPTED"
	InviteDeclined = "DECLINED"
	InviteBooked   = "BOOKED"
)

// GroupBooking envelopes N member bookings under one coordinator.
// Member bookings are referenced by id, never duplicated here.
type GroupBooking struct {
	ID            string `gorm:"primaryKey"`
	CoordinatorID string `gorm:"index"`
	CourseID      string `gorm:"index"`
	Date          string `gorm:"index"`
	TargetSize    int32
	PaymentMode   string
	// user id -> share in cents, only for PayCustom
	CustomSplit datatypes.JSONMap
	Status      string `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Members []GroupMember `gorm:"foreignKey:GroupID"`
}

type GroupMember struct {
	ID        string `gorm:"primaryKey"`
	GroupID   string `gorm:"index"`
	UserID    string `gorm:"index"`
	Status    string
	BookingID string // set once the member's slot booking is confirmed
	InvitedAt time.Time
	RepliedAt *time.Time
}
