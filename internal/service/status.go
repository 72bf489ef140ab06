package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
	"github.com/Chromeox/CourseScout-sub004/internal/events"
)

// StatusSvc is the lightweight operational-status stream: open/closed,
// maintenance, weather. Same subscription mechanics as availability,
// its own subject.
type StatusSvc struct {
	courses CourseStore
	pub     Publisher
	now     func() time.Time
}

func NewStatusSvc(courses CourseStore, pub Publisher) *StatusSvc {
	return &StatusSvc{courses: courses, pub: pub, now: time.Now}
}

func (s *StatusSvc) SetStatus(ctx context.Context, courseID, status, note string) (*domain.Course, error) {
	switch status {
	case domain.CourseOpen, domain.CourseClosed, domain.CourseMaintenance, domain.CourseWeatherHold:
	default:
		return nil, fmt.Errorf("%w: unknown course status %q", ErrInvalidRequest, status)
	}
	c, err := s.courses.SetStatus(ctx, courseID, status, note)
	if err != nil {
		return nil, wrapStore(err)
	}
	_ = s.pub.PublishJSON(context.WithoutCancel(ctx), events.RKCourseStatus, events.CourseStatus{
		CourseID: c.ID,
		Status:   c.Status,
		Note:     c.StatusNote,
		At:       s.now().Unix(),
	})
	return c, nil
}
