package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/internal/service"
)

type AvailabilityHandler struct {
	availabilityService service.AvailabilityService
}

func NewAvailabilityHandler(availabilityService service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

// GetSlots returns bookable slots for an event type, or for an explicit
// host set when user_ids and duration_minutes are given instead.
// GET /api/v1/availability?event_type_id=...&from=...&to=...&timezone=...
func (h *AvailabilityHandler) GetSlots(c *gin.Context) {
	req, err := parseAvailabilityQuery(c)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	slots, err := h.availabilityService.GetSlots(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: slots})
}

func parseAvailabilityQuery(c *gin.Context) (*service.AvailabilityRequest, error) {
	eventTypeID := c.Query("event_type_id")

	var userIDs []string
	if raw := c.Query("user_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				userIDs = append(userIDs, id)
			}
		}
	}
	if eventTypeID == "" && len(userIDs) == 0 {
		return nil, entity.ErrInvalidInput
	}

	duration := 0
	if raw := c.Query("duration_minutes"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return nil, entity.ErrInvalidDuration
		}
		duration = d
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return nil, entity.ErrInvalidTimeRange
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return nil, entity.ErrInvalidTimeRange
	}

	return &service.AvailabilityRequest{
		EventTypeID:     eventTypeID,
		UserIDs:         userIDs,
		DurationMinutes: duration,
		From:            from,
		To:              to,
		Timezone:        c.Query("timezone"),
	}, nil
}
