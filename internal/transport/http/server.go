package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Chromeox/CourseScout-sub004/internal/cache"
	"github.com/Chromeox/CourseScout-sub004/internal/registry"
	"github.com/Chromeox/CourseScout-sub004/internal/repository"
	"github.com/Chromeox/CourseScout-sub004/internal/service"
)

type Server struct {
	avail    *cache.Availability
	reg      *registry.Registry
	bookings *service.BookingSvc
	waitlist *service.WaitlistSvc
	groups   *service.GroupSvc
	status   *service.StatusSvc
	courses  *repository.CourseRepo
	slots    *repository.SlotRepo
	secret   []byte
}

func NewServer(
	avail *cache.Availability,
	reg *registry.Registry,
	bookings *service.BookingSvc,
	waitlist *service.WaitlistSvc,
	groups *service.GroupSvc,
	status *service.StatusSvc,
	courses *repository.CourseRepo,
	slots *repository.SlotRepo,
	secret []byte,
) *Server {
	return &Server{
		avail:    avail,
		reg:      reg,
		bookings: bookings,
		waitlist: waitlist,
		groups:   groups,
		status:   status,
		courses:  courses,
		slots:    slots,
		secret:   secret,
	}
}

func (s *Server) Routes() *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/v1")
	{
		// Reads and live streams.
		v1.GET("/courses", s.listCourses)
		v1.GET("/courses/:id", s.getCourse)
		v1.GET("/courses/:id/availability", s.getAvailability)
		v1.GET("/courses/:id/availability/stream", s.streamAvailability)
		v1.GET("/courses/:id/status/stream", s.streamCourseStatus)
		v1.DELETE("/subscriptions/:id", s.unsubscribe)

		secured := v1.Group("")
		secured.Use(JWTAuth(s.secret))
		{
			secured.GET("/bookings/:id/stream", s.streamBooking)

			secured.POST("/bookings", s.createBooking)
			secured.GET("/bookings", s.listBookings)
			secured.GET("/bookings/:id", s.getBooking)
			secured.POST("/bookings/:id/cancel", s.cancelBooking)
			secured.POST("/bookings/:id/modify", s.modifyBooking)

			secured.POST("/waitlist", s.joinWaitlist)
			secured.GET("/waitlist/:id", s.waitlistStatus)
			secured.DELETE("/waitlist/:id", s.leaveWaitlist)
			secured.POST("/waitlist/:id/claim", s.claimWaitlist)

			secured.POST("/groups", s.createGroup)
			secured.GET("/groups/:id", s.getGroup)
			secured.POST("/groups/:id/invitations", s.inviteToGroup)
			secured.DELETE("/groups/:id/members/:userId", s.removeGroupMember)
			secured.PUT("/groups/:id/payment", s.updateGroupPayment)
			secured.POST("/groups/:id/cancel", s.cancelGroup)
			secured.POST("/groups/:id/accept", s.acceptGroupInvite)
			secured.POST("/groups/:id/decline", s.declineGroupInvite)

			staff := secured.Group("")
			staff.Use(RequireRole("STAFF", "OWNER", "ADMIN"))
			staff.POST("/bookings/:id/checkin", s.checkInBooking)
			staff.POST("/bookings/:id/complete", s.completeBooking)
			staff.POST("/bookings/:id/noshow", s.noShowBooking)

			owner := secured.Group("")
			owner.Use(RequireRole("OWNER", "ADMIN"))
			owner.POST("/courses", s.createCourse)
			owner.PUT("/courses/:id/status", s.setCourseStatus)
			owner.POST("/courses/:id/slots", s.createSlot)
			owner.PUT("/slots/:id/capacity", s.adjustCapacity)
		}
	}
	return r
}
