package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

type SlotRepo struct{ db *gorm.DB }

func NewSlotRepo(db *gorm.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

func (r *SlotRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.AvailabilitySlot{})
}

func (r *SlotRepo) Create(ctx context.Context, s *domain.AvailabilitySlot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

// Slots returns the course/date window ordered by tee time. Zero
// from/to mean unbounded.
func (r *SlotRepo) Slots(ctx context.Context, courseID, date string, from, to time.Time) ([]domain.AvailabilitySlot, error) {
	qb := r.db.WithContext(ctx).Model(&domain.AvailabilitySlot{}).
		Where("course_id = ? AND date = ?", courseID, date)
	if !from.IsZero() {
		qb = qb.Where("start_time >= ?", from)
	}
	if !to.IsZero() {
		qb = qb.Where("start_time <= ?", to)
	}
	var out []domain.AvailabilitySlot
	if err := qb.Order("start_time ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SlotRepo) ByID(ctx context.Context, id string) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteSlotIfBooked is the compare-and-swap guard every booked-count
// mutation funnels through. The write lands only if the current booked
// count still equals expected and the new count fits capacity; false
// means a concurrent writer won and the caller should re-read.
func (r *SlotRepo) WriteSlotIfBooked(ctx context.Context, slotID string, expected, booked int32) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.AvailabilitySlot{}).
		Where("id = ? AND booked = ? AND capacity >= ?", slotID, expected, booked).
		Updates(map[string]any{"booked": booked, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetCapacity is an operator action; booked stays untouched so the
// CAS invariant holds.
func (r *SlotRepo) SetCapacity(ctx context.Context, slotID string, capacity int32) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, "id = ?", slotID).Error; err != nil {
			return err
		}
		s.Capacity = capacity
		return tx.Save(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
