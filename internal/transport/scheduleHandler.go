package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bookwell/bookwell/internal/service"
)

type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	schedule, err := h.scheduleService.CreateSchedule(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: schedule})
}

func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	details, err := h.scheduleService.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: details})
}

func (h *ScheduleHandler) AddWindow(c *gin.Context) {
	var req service.AddWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	window, err := h.scheduleService.AddWindow(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: window})
}

func (h *ScheduleHandler) DeleteWindow(c *gin.Context) {
	if err := h.scheduleService.DeleteWindow(c.Request.Context(), c.Param("id"), c.Param("window_id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "window deleted"})
}
