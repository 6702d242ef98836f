package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookwell/bookwell/internal/transport/middleware"
)

// InitRoutes wires the HTTP surface. Authenticated management endpoints
// live under /api/v1; the attendee-facing booking pages live under
// /public and carry no identity beyond the booking uid.
func InitRoutes(
	availabilityHandler *AvailabilityHandler,
	bookingHandler *BookingHandler,
	scheduleHandler *ScheduleHandler,
	publicHandler *PublicHandler,
	timeout time.Duration,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestContext())
	router.Use(middleware.Identity())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(timeout))

	api := router.Group("/api/v1")
	{
		api.GET("/availability", availabilityHandler.GetSlots)

		bookings := api.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/confirm", bookingHandler.ConfirmBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.POST("/:id/reschedule", bookingHandler.RescheduleBooking)
		}

		schedules := api.Group("/schedules")
		{
			schedules.POST("", scheduleHandler.CreateSchedule)
			schedules.GET("/:id", scheduleHandler.GetSchedule)
			schedules.POST("/:id/windows", scheduleHandler.AddWindow)
			schedules.DELETE("/:id/windows/:window_id", scheduleHandler.DeleteWindow)
		}
	}

	public := router.Group("/public")
	{
		public.GET("/:org_slug/:event_slug/slots", publicHandler.GetSlots)
		public.POST("/:org_slug/:event_slug/book", publicHandler.Book)
		public.GET("/bookings/:uid", publicHandler.GetBooking)
		public.POST("/bookings/:uid/cancel", publicHandler.Cancel)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
