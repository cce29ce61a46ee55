package schedule

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/middleware"
	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/service/calendar"
	"github.com/jwalitptl/petclinic-api/internal/service/schedule"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
	"github.com/jwalitptl/petclinic-api/pkg/httputil"
)

type Handler struct {
	service  *schedule.Service
	calendar *calendar.Service
}

func NewHandler(service *schedule.Service, calendarSvc *calendar.Service) *Handler {
	return &Handler{
		service:  service,
		calendar: calendarSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	schedules := r.Group("/schedules")
	{
		schedules.POST("", h.CreateSchedule)
		schedules.GET("/calendar", h.GetCalendar)
		schedules.PUT("/:id", h.UpdateSchedule)
		schedules.DELETE("/:id", h.DeleteSchedule)
		schedules.PATCH("/:id/review", h.ReviewSchedule)
	}

	workingHours := r.Group("/working-hours")
	{
		workingHours.PUT("", h.UpsertWorkingHours)
		workingHours.GET("/:doctorId", h.ListWorkingHours)
	}

	r.POST("/doctors/:id/deactivate", h.DeactivateDoctor)
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	override, err := h.service.CreateOverride(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, override)
}

func (h *Handler) GetCalendar(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	startDate, err := model.ParseDate(c.Query("start_date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid start_date, want YYYY-MM-DD", err))
		return
	}
	endDate, err := model.ParseDate(c.Query("end_date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid end_date, want YYYY-MM-DD", err))
		return
	}

	days, err := h.calendar.Resolve(c.Request.Context(), doctorID, startDate, endDate)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, days)
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid schedule ID", err))
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	override, err := h.service.UpdateOverride(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, override)
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid schedule ID", err))
		return
	}

	if err := h.service.DeleteOverride(c.Request.Context(), actor, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) ReviewSchedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid schedule ID", err))
		return
	}

	var req model.ReviewScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	override, err := h.service.Review(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, override)
}

func (h *Handler) UpsertWorkingHours(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.UpsertWorkingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	hours, err := h.service.UpsertWorkingHours(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, hours)
}

func (h *Handler) ListWorkingHours(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	hours, err := h.service.ListWorkingHours(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, hours)
}

func (h *Handler) DeactivateDoctor(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	if err := h.service.DeactivateDoctor(c.Request.Context(), actor, doctorID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, nil)
}
