package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	repository "github.com/bookwell/bookwell/internal/database/postgres"
	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/internal/service"
)

// PublicHandler serves the unauthenticated booking pages. Event types are
// addressed by organization and event slug, bookings by their uid; only
// public event types are visible here.
type PublicHandler struct {
	organizations       repository.OrganizationRepository
	eventTypes          repository.EventTypeRepository
	availabilityService service.AvailabilityService
	bookingService      service.BookingService
}

func NewPublicHandler(
	store *repository.Store,
	availabilityService service.AvailabilityService,
	bookingService service.BookingService,
) *PublicHandler {
	return &PublicHandler{
		organizations:       store.Organizations,
		eventTypes:          store.EventTypes,
		availabilityService: availabilityService,
		bookingService:      bookingService,
	}
}

type PublicBookRequest struct {
	StartTime time.Time               `json:"start_time" binding:"required"`
	Timezone  string                  `json:"timezone"`
	Attendees []service.AttendeeInput `json:"attendees" binding:"required,min=1,dive"`
}

type PublicCancelRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Reason string `json:"reason" binding:"max=500"`
}

func (h *PublicHandler) resolveEventType(c *gin.Context) (*entity.EventType, error) {
	org, err := h.organizations.GetBySlug(c.Request.Context(), c.Param("org_slug"))
	if err != nil {
		return nil, err
	}
	et, err := h.eventTypes.GetBySlug(c.Request.Context(), org.ID, c.Param("event_slug"))
	if err != nil {
		return nil, err
	}
	if !et.IsPublic || !et.IsActive {
		return nil, entity.ErrEventTypeNotFound
	}
	return et, nil
}

// GetSlots lists bookable slots for a public event type.
// GET /public/:org_slug/:event_slug/slots?from=...&to=...&timezone=...
func (h *PublicHandler) GetSlots(c *gin.Context) {
	et, err := h.resolveEventType(c)
	if err != nil {
		respondError(c, err)
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		respondBadRequest(c, entity.ErrInvalidTimeRange)
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		respondBadRequest(c, entity.ErrInvalidTimeRange)
		return
	}

	slots, err := h.availabilityService.GetSlots(c.Request.Context(), &service.AvailabilityRequest{
		EventTypeID: et.ID,
		From:        from,
		To:          to,
		Timezone:    c.Query("timezone"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: slots})
}

// Book creates a booking through the public page.
func (h *PublicHandler) Book(c *gin.Context) {
	et, err := h.resolveEventType(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req PublicBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), &service.CreateBookingRequest{
		EventTypeID: et.ID,
		StartTime:   req.StartTime,
		Timezone:    req.Timezone,
		Attendees:   req.Attendees,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: booking})
}

// GetBooking shows a booking to its attendee by uid.
func (h *PublicHandler) GetBooking(c *gin.Context) {
	details, err := h.bookingService.GetBookingByUID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: details})
}

// Cancel lets an attendee cancel a booking by uid plus their email.
func (h *PublicHandler) Cancel(c *gin.Context) {
	var req PublicCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	booking, err := h.bookingService.CancelByAttendee(c.Request.Context(), c.Param("uid"), req.Email, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "booking cancelled", Data: booking})
}
