package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

type CourseRepo struct{ db *gorm.DB }

func NewCourseRepo(db *gorm.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

func (r *CourseRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Course{})
}

func (r *CourseRepo) Create(ctx context.Context, c *domain.Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.CourseOpen
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CourseRepo) ByID(ctx context.Context, id string) (*domain.Course, error) {
	var c domain.Course
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepo) List(ctx context.Context, page, size int32, city string) ([]domain.Course, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Course{})
	if city != "" {
		qb = qb.Where("city ILIKE ?", "%"+city+"%")
	}
	var out []domain.Course
	if err := qb.Limit(int(size)).Offset(int(page * size)).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CourseRepo) SetStatus(ctx context.Context, id, status, note string) (*domain.Course, error) {
	var c domain.Course
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return err
		}
		c.Status = status
		c.StatusNote = note
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}
