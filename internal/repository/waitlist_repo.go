package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

type WaitlistRepo struct{ db *gorm.DB }

func NewWaitlistRepo(db *gorm.DB) *WaitlistRepo {
	return &WaitlistRepo{db: db}
}

func (r *WaitlistRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.WaitListEntry{})
}

// Append inserts the entry at the tail of its course/date queue. The
// tail read locks the queue rows so two joiners cannot take the same
// position.
func (r *WaitlistRepo) Append(ctx context.Context, e *domain.WaitListEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tail int32
		err := tx.Model(&domain.WaitListEntry{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("course_id = ? AND date = ?", e.CourseID, e.Date).
			Select("COALESCE(MAX(position), 0)").Scan(&tail).Error
		if err != nil {
			return err
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.Position = tail + 1
		return tx.Create(e).Error
	})
}

// Remove deletes the entry and shifts everything behind it down one so
// positions stay a contiguous 1..N sequence.
func (r *WaitlistRepo) Remove(ctx context.Context, id string) (*domain.WaitListEntry, error) {
	var e domain.WaitListEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&e, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.WaitListEntry{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Model(&domain.WaitListEntry{}).
			Where("course_id = ? AND date = ? AND position > ?", e.CourseID, e.Date, e.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *WaitlistRepo) ByID(ctx context.Context, id string) (*domain.WaitListEntry, error) {
	var e domain.WaitListEntry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ByCourseDate returns the queue in position order.
func (r *WaitlistRepo) ByCourseDate(ctx context.Context, courseID, date string) ([]domain.WaitListEntry, error) {
	var out []domain.WaitListEntry
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND date = ?", courseID, date).
		Order("position ASC").Find(&out).Error
	return out, err
}

func (r *WaitlistRepo) MarkOffered(ctx context.Context, id, slotID string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.WaitListEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"offered_slot_id":  slotID,
			"offer_expires_at": expiresAt,
		}).Error
}

// ExpiredOffers lists entries whose offer grace window has lapsed.
func (r *WaitlistRepo) ExpiredOffers(ctx context.Context, now time.Time) ([]domain.WaitListEntry, error) {
	var out []domain.WaitListEntry
	err := r.db.WithContext(ctx).
		Where("offered_slot_id <> '' AND offer_expires_at < ?", now).
		Find(&out).Error
	return out, err
}
