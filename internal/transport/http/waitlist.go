package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chromeox/CourseScout-sub004/internal/service"
)

// POST /v1/waitlist
func (s *Server) joinWaitlist(c *gin.Context) {
	var in struct {
		CourseID    string `json:"course_id" binding:"required"`
		Date        string `json:"date" binding:"required"`
		EarliestISO string `json:"earliest_iso"`
		LatestISO   string `json:"latest_iso"`
		Players     int32  `json:"players" binding:"required"`
		NotifyPref  string `json:"notify_pref"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	earliest, latest, err := parseWindow(in.EarliestISO, in.LatestISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.waitlist.Join(c.Request.Context(), service.JoinRequest{
		UserID:     subject(c),
		CourseID:   in.CourseID,
		Date:       in.Date,
		Earliest:   earliest,
		Latest:     latest,
		Players:    in.Players,
		NotifyPref: in.NotifyPref,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if res.SlotAvailable {
		// Demand already cleared: tell the caller to book instead.
		c.JSON(http.StatusOK, gin.H{"slot_available": true, "slot": res.Slot})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"slot_available":     false,
		"entry":              res.Entry,
		"estimated_wait_sec": int64(res.EstimatedWait.Seconds()),
	})
}

// GET /v1/waitlist/:id
func (s *Server) waitlistStatus(c *gin.Context) {
	st, err := s.waitlist.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entry":              st.Entry,
		"estimated_wait_sec": int64(st.EstimatedWait.Seconds()),
	})
}

// DELETE /v1/waitlist/:id
func (s *Server) leaveWaitlist(c *gin.Context) {
	if err := s.waitlist.Leave(c.Request.Context(), c.Param("id"), subject(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /v1/waitlist/:id/claim
func (s *Server) claimWaitlist(c *gin.Context) {
	b, err := s.waitlist.Claim(c.Request.Context(), c.Param("id"), subject(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func parseWindow(earliestISO, latestISO string) (time.Time, time.Time, error) {
	var earliest, latest time.Time
	if earliestISO != "" {
		t, err := time.Parse(time.RFC3339, earliestISO)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		earliest = t.UTC()
	}
	if latestISO != "" {
		t, err := time.Parse(time.RFC3339, latestISO)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		latest = t.UTC()
	}
	return earliest, latest, nil
}
