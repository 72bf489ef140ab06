package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Error taxonomy. Validation failures are terminal; conflicts are
// retried inside the processor before surfacing; store failures and
// timeouts always surface.
var (
	ErrSlotUnavailable       = errors.New("requested slot unavailable")
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")
	ErrNewTimeUnavailable    = errors.New("new time slot unavailable")
	ErrNotEligible           = errors.New("not eligible")
	ErrNotCoordinator        = errors.New("only the group coordinator may do this")
	ErrGroupSize             = errors.New("invalid group size")
	ErrStoreFailure          = errors.New("store unavailable")
	ErrTimeout               = errors.New("operation deadline exceeded")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrNotFound              = errors.New("not found")
)

// PolicyError carries which policy clause rejected the action.
type PolicyError struct {
	Clause      string  // e.g. "cancel_window", "status"
	HoursBefore float64 // hours between now and tee time at evaluation
	Detail      string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("not eligible: clause=%s hours_before=%.1f %s", e.Clause, e.HoursBefore, e.Detail)
}

func (e *PolicyError) Unwrap() error { return ErrNotEligible }

// SlotRef identifies one requested slot in a group booking failure.
type SlotRef struct {
	TeeTime time.Time `json:"tee_time"`
	Players int32     `json:"players"`
}

// GroupAvailabilityError lists exactly which requested slots could not
// be satisfied; no partial bookings were created.
type GroupAvailabilityError struct {
	CourseID    string
	Date        string
	Unavailable []SlotRef
}

func (e *GroupAvailabilityError) Error() string {
	parts := make([]string, len(e.Unavailable))
	for i, s := range e.Unavailable {
		parts[i] = s.TeeTime.Format("15:04")
	}
	return fmt.Sprintf("group booking: %d of requested slots unavailable on %s (%s)",
		len(e.Unavailable), e.Date, strings.Join(parts, ", "))
}

func (e *GroupAvailabilityError) Unwrap() error { return ErrSlotUnavailable }

// wrapStore classifies infrastructure errors: context expiry becomes
// ErrTimeout (the CAS write is all-or-nothing, so no partial slot
// mutation can have happened), missing rows stay not-found, everything
// else is ErrStoreFailure.
func wrapStore(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrStoreFailure, err)
}
