package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chromeox/CourseScout-sub004/internal/service"
)

// POST /v1/bookings
func (s *Server) createBooking(c *gin.Context) {
	var in struct {
		CourseID string `json:"course_id" binding:"required"`
		Date     string `json:"date" binding:"required"` // YYYY-MM-DD
		TeeISO   string `json:"tee_iso" binding:"required"`
		Players  int32  `json:"players" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tee, err := time.Parse(time.RFC3339, in.TeeISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tee_iso must be RFC3339"})
		return
	}
	b, err := s.bookings.Create(c.Request.Context(), service.CreateRequest{
		UserID:   subject(c),
		CourseID: in.CourseID,
		Date:     in.Date,
		TeeTime:  tee.UTC(),
		Players:  in.Players,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// POST /v1/bookings/:id/cancel
func (s *Server) cancelBooking(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.Reason == "" {
		in.Reason = service.ReasonPlayer
	}
	res, err := s.bookings.Cancel(c.Request.Context(), c.Param("id"), subject(c), in.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":        res.Booking,
		"refund_percent": res.RefundPercent,
		"fee_cents":      res.FeeCents,
	})
}

// POST /v1/bookings/:id/modify
func (s *Server) modifyBooking(c *gin.Context) {
	var in struct {
		TeeISO  string `json:"tee_iso"`
		Players int32  `json:"players"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var tee time.Time
	if in.TeeISO != "" {
		t, err := time.Parse(time.RFC3339, in.TeeISO)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tee_iso must be RFC3339"})
			return
		}
		tee = t.UTC()
	}
	b, err := s.bookings.Modify(c.Request.Context(), c.Param("id"), subject(c), tee, in.Players)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings/:id
func (s *Server) getBooking(c *gin.Context) {
	b, err := s.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings?page=1&page_size=20&course_id=...&date=...
func (s *Server) listBookings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	list, total, err := s.bookings.List(c.Request.Context(),
		int32(page-1), int32(size), subject(c), c.Query("course_id"), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list, "total": total})
}

// POST /v1/bookings/:id/checkin (STAFF/OWNER/ADMIN)
func (s *Server) checkInBooking(c *gin.Context) {
	b, err := s.bookings.CheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/complete (STAFF/OWNER/ADMIN)
func (s *Server) completeBooking(c *gin.Context) {
	b, err := s.bookings.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/noshow (STAFF/OWNER/ADMIN)
func (s *Server) noShowBooking(c *gin.Context) {
	b, err := s.bookings.NoShow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PUT /v1/slots/:id/capacity (OWNER/ADMIN)
func (s *Server) adjustCapacity(c *gin.Context) {
	var in struct {
		Capacity int32 `json:"capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slot, err := s.bookings.AdjustCapacity(c.Request.Context(), c.Param("id"), in.Capacity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}
