package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

type GroupRepo struct{ db *gorm.DB }

func NewGroupRepo(db *gorm.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.GroupBooking{}, &domain.GroupMember{})
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.GroupBooking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		for i := range g.Members {
			if g.Members[i].ID == "" {
				g.Members[i].ID = uuid.NewString()
			}
			g.Members[i].GroupID = g.ID
		}
		return tx.Create(g).Error
	})
}

func (r *GroupRepo) ByID(ctx context.Context, id string) (*domain.GroupBooking, error) {
	var g domain.GroupBooking
	if err := r.db.WithContext(ctx).Preload("Members").First(&g, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepo) UpdateStatus(ctx context.Context, id, status string) (*domain.GroupBooking, error) {
	var g domain.GroupBooking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Members").First(&g, "id = ?", id).Error; err != nil {
			return err
		}
		g.Status = status
		return tx.Save(&g).Error
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepo) UpdatePayment(ctx context.Context, id, mode string, split map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.GroupBooking{}).
		Where("id = ?", id).Updates(paymentUpdates(mode, split)).Error
}

// paymentUpdates builds the column map for a payment change. The split
// goes through the datatypes wrapper; a plain map has no driver.Valuer
// and fails at exec time.
func paymentUpdates(mode string, split map[string]any) map[string]any {
	updates := map[string]any{"payment_mode": mode, "updated_at": time.Now().UTC()}
	if split != nil {
		updates["custom_split"] = datatypes.JSONMap(split)
	}
	return updates
}

func (r *GroupRepo) AddMember(ctx context.Context, m *domain.GroupMember) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.GroupMember{}, "group_id = ? AND user_id = ?", groupID, userID).Error
}

func (r *GroupRepo) UpdateMember(ctx context.Context, m *domain.GroupMember) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// ConfirmedPastDate lists groups whose event date has passed, for the
// janitor's Confirmed -> Completed sweep.
func (r *GroupRepo) ConfirmedPastDate(ctx context.Context, date string) ([]domain.GroupBooking, error) {
	var out []domain.GroupBooking
	err := r.db.WithContext(ctx).
		Where("status = ? AND date < ?", domain.GroupConfirmed, date).
		Find(&out).Error
	return out, err
}
