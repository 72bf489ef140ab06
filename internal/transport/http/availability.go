package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chromeox/CourseScout-sub004/internal/service"
)

// GET /v1/courses/:id/availability?date=2026-05-01&from=...&to=...
// Store failures propagate as 503 unless the caller opts into flagged
// stale data with allow_stale=true.
func (s *Server) getAvailability(c *gin.Context) {
	courseID := c.Param("id")
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "date is required"})
		return
	}
	from, ok := parseTime(c, "from")
	if !ok {
		return
	}
	to, ok := parseTime(c, "to")
	if !ok {
		return
	}

	res, err := s.avail.Get(c.Request.Context(), courseID, date, from, to)
	if err != nil {
		if c.Query("allow_stale") == "true" {
			if stale, hit := s.avail.Peek(courseID, date, from, to); hit {
				c.JSON(http.StatusOK, gin.H{
					"slots":        stale.Slots,
					"last_updated": stale.LastUpdated,
					"confidence":   stale.Confidence,
					"stale":        true,
				})
				return
			}
		}
		writeError(c, errors.Join(service.ErrStoreFailure, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slots":        res.Slots,
		"last_updated": res.LastUpdated,
		"confidence":   res.Confidence,
		"stale":        false,
	})
}

func parseTime(c *gin.Context, name string) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": name + " must be RFC3339"})
		return time.Time{}, false
	}
	return t.UTC(), true
}
