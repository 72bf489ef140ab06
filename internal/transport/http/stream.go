package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chromeox/CourseScout-sub004/internal/registry"
)

const keepaliveInterval = 15 * time.Second

// GET /v1/courses/:id/availability/stream?date=YYYY-MM-DD
func (s *Server) streamAvailability(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "date is required"})
		return
	}
	s.stream(c, registry.AvailabilitySubject(c.Param("id"), date))
}

// GET /v1/bookings/:id/stream
func (s *Server) streamBooking(c *gin.Context) {
	s.stream(c, registry.BookingSubject(c.Param("id")))
}

// GET /v1/courses/:id/status/stream
func (s *Server) streamCourseStatus(c *gin.Context) {
	s.stream(c, registry.CourseStatusSubject(c.Param("id")))
}

// DELETE /v1/subscriptions/:id (idempotent, 204 either way)
func (s *Server) unsubscribe(c *gin.Context) {
	s.reg.Unsubscribe(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// stream pins one registry subscription to an SSE response. The stream
// ends on client disconnect, explicit unsubscribe, or registry TTL;
// the registry closes the channel in every case.
func (s *Server) stream(c *gin.Context, subj registry.Subject) {
	sub, err := s.reg.Subscribe(subj)
	if err != nil {
		writeError(c, err)
		return
	}
	defer s.reg.Unsubscribe(sub.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("subscribed", gin.H{"subscription_id": sub.ID})
	c.Writer.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case u, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(string(u.Kind), u.Event)
			return true
		case <-keepalive.C:
			c.SSEvent("keepalive", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
