package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookwell/bookwell/internal/entity"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondError maps domain sentinel errors to HTTP statuses. Unrecognized
// errors become 500 without leaking their text.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, entity.ErrBookingNotFound),
		errors.Is(err, entity.ErrEventTypeNotFound),
		errors.Is(err, entity.ErrOrganizationNotFound),
		errors.Is(err, entity.ErrUserNotFound),
		errors.Is(err, entity.ErrScheduleNotFound),
		errors.Is(err, entity.ErrResourceNotFound):
		status = http.StatusNotFound
		message = err.Error()

	case errors.Is(err, entity.ErrSlotConflict),
		errors.Is(err, entity.ErrResourceConflict),
		errors.Is(err, entity.ErrSlotBeingBooked),
		errors.Is(err, entity.ErrDuplicateSlug):
		status = http.StatusConflict
		message = err.Error()

	case errors.Is(err, entity.ErrInvalidTimeRange),
		errors.Is(err, entity.ErrInvalidTimezone),
		errors.Is(err, entity.ErrInvalidDuration),
		errors.Is(err, entity.ErrInvalidWindow),
		errors.Is(err, entity.ErrNotPending),
		errors.Is(err, entity.ErrAlreadyCancelled),
		errors.Is(err, entity.ErrMinimumNotice),
		errors.Is(err, entity.ErrAttendeeMismatch),
		errors.Is(err, entity.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()

	case errors.Is(err, entity.ErrForbidden):
		status = http.StatusForbidden
		message = err.Error()
	}

	c.JSON(status, ErrorResponse{Success: false, Error: message})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
}
