package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Chromeox/CourseScout-sub004/internal/registry"
	"github.com/Chromeox/CourseScout-sub004/internal/service"
)

// writeError maps the service taxonomy onto HTTP. Every booking-path
// failure carries enough structure to render an actionable message.
func writeError(c *gin.Context, err error) {
	var groupErr *service.GroupAvailabilityError
	if errors.As(err, &groupErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":             "partial_availability",
			"course_id":         groupErr.CourseID,
			"date":              groupErr.Date,
			"unavailable_slots": groupErr.Unavailable,
		})
		return
	}
	var policyErr *service.PolicyError
	if errors.As(err, &policyErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        "not_eligible",
			"clause":       policyErr.Clause,
			"hours_before": policyErr.HoursBefore,
			"detail":       policyErr.Detail,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrSlotNoLongerAvailable),
		errors.Is(err, service.ErrNewTimeUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "unavailable", "detail": err.Error()})
	case errors.Is(err, service.ErrNotCoordinator):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_coordinator", "detail": err.Error()})
	case errors.Is(err, service.ErrNotEligible):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_eligible", "detail": err.Error()})
	case errors.Is(err, service.ErrGroupSize):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "group_size", "detail": err.Error()})
	case errors.Is(err, registry.ErrRegistryFull):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "capacity_exceeded", "detail": err.Error()})
	case errors.Is(err, service.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timeout", "detail": err.Error()})
	case errors.Is(err, service.ErrStoreFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store_failure", "detail": err.Error()})
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "detail": err.Error()})
	}
}
