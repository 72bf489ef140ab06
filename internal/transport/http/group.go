package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chromeox/CourseScout-sub004/internal/service"
)

// POST /v1/groups
func (s *Server) createGroup(c *gin.Context) {
	var in struct {
		CourseID    string         `json:"course_id" binding:"required"`
		Date        string         `json:"date" binding:"required"`
		TargetSize  int32          `json:"target_size" binding:"required"`
		PaymentMode string         `json:"payment_mode" binding:"required"`
		CustomSplit map[string]any `json:"custom_split"`
		Invitees    []string       `json:"invitees"`
		Slots       []struct {
			TeeISO  string `json:"tee_iso" binding:"required"`
			Players int32  `json:"players" binding:"required"`
		} `json:"slots" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req := service.CreateGroupRequest{
		CoordinatorID: subject(c),
		CourseID:      in.CourseID,
		Date:          in.Date,
		TargetSize:    in.TargetSize,
		PaymentMode:   in.PaymentMode,
		CustomSplit:   in.CustomSplit,
		InviteUserIDs: in.Invitees,
	}
	for _, sl := range in.Slots {
		tee, err := time.Parse(time.RFC3339, sl.TeeISO)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tee_iso must be RFC3339"})
			return
		}
		req.Slots = append(req.Slots, service.SlotRef{TeeTime: tee.UTC(), Players: sl.Players})
	}
	g, err := s.groups.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// GET /v1/groups/:id
func (s *Server) getGroup(c *gin.Context) {
	g, err := s.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// POST /v1/groups/:id/invitations
func (s *Server) inviteToGroup(c *gin.Context) {
	var in struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := s.groups.Invite(c.Request.Context(), c.Param("id"), subject(c), in.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// DELETE /v1/groups/:id/members/:userId
func (s *Server) removeGroupMember(c *gin.Context) {
	if err := s.groups.RemoveMember(c.Request.Context(), c.Param("id"), subject(c), c.Param("userId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /v1/groups/:id/payment
func (s *Server) updateGroupPayment(c *gin.Context) {
	var in struct {
		Mode  string         `json:"mode" binding:"required"`
		Split map[string]any `json:"split"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.groups.UpdatePayment(c.Request.Context(), c.Param("id"), subject(c), in.Mode, in.Split); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /v1/groups/:id/cancel
func (s *Server) cancelGroup(c *gin.Context) {
	g, err := s.groups.Cancel(c.Request.Context(), c.Param("id"), subject(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// POST /v1/groups/:id/accept
func (s *Server) acceptGroupInvite(c *gin.Context) {
	var in struct {
		TeeISO  string `json:"tee_iso" binding:"required"`
		Players int32  `json:"players"`
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
	b, err := s.groups.AcceptInvite(c.Request.Context(), c.Param("id"), subject(c), tee.UTC(), in.Players)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// POST /v1/groups/:id/decline
func (s *Server) declineGroupInvite(c *gin.Context) {
	if err := s.groups.DeclineInvite(c.Request.Context(), c.Param("id"), subject(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
