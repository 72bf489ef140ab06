package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chromeox/CourseScout-sub004/internal/domain"
)

// POST /v1/courses (OWNER/ADMIN)
func (s *Server) createCourse(c *gin.Context) {
	var in struct {
		Name               string `json:"name" binding:"required"`
		City               string `json:"city"`
		Holes              int32  `json:"holes"`
		FreeCancelHours    int32  `json:"free_cancel_hours"`
		PartialCancelHours int32  `json:"partial_cancel_hours"`
		RefundPercent      int32  `json:"refund_percent"`
		CancelFlatFeeCents int64  `json:"cancel_flat_fee_cents"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	course := &domain.Course{
		Name:               in.Name,
		City:               in.City,
		Holes:              in.Holes,
		OwnerID:            subject(c),
		FreeCancelHours:    in.FreeCancelHours,
		PartialCancelHours: in.PartialCancelHours,
		RefundPercent:      in.RefundPercent,
		CancelFlatFeeCents: in.CancelFlatFeeCents,
	}
	if err := s.courses.Create(c.Request.Context(), course); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// GET /v1/courses?page=1&page_size=20&city=...
func (s *Server) listCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	list, err := s.courses.List(c.Request.Context(), int32(page-1), int32(size), c.Query("city"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": list})
}

// GET /v1/courses/:id
func (s *Server) getCourse(c *gin.Context) {
	course, err := s.courses.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// PUT /v1/courses/:id/status (OWNER/ADMIN)
func (s *Server) setCourseStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	course, err := s.status.SetStatus(c.Request.Context(), c.Param("id"), in.Status, in.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// POST /v1/courses/:id/slots (OWNER/ADMIN)
func (s *Server) createSlot(c *gin.Context) {
	var in struct {
		Date       string `json:"date" binding:"required"`
		StartISO   string `json:"start_iso" binding:"required"`
		EndISO     string `json:"end_iso" binding:"required"`
		Capacity   int32  `json:"capacity" binding:"required"`
		PriceCents int64  `json:"price_cents"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, in.StartISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_iso must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, in.EndISO)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_iso must be RFC3339"})
		return
	}
	slot := &domain.AvailabilitySlot{
		CourseID:   c.Param("id"),
		Date:       in.Date,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		Capacity:   in.Capacity,
		PriceCents: in.PriceCents,
	}
	if err := s.slots.Create(c.Request.Context(), slot); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}
