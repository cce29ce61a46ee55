package appointment

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/middleware"
	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/service/appointment"
	"github.com/jwalitptl/petclinic-api/internal/service/availability"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
	"github.com/jwalitptl/petclinic-api/pkg/httputil"
)

type Handler struct {
	service            *appointment.Service
	availability       *availability.Service
	defaultDuration    time.Duration
	defaultGranularity time.Duration
}

func NewHandler(service *appointment.Service, availabilitySvc *availability.Service, defaultDurationMinutes, slotGranularityMinutes int) *Handler {
	return &Handler{
		service:            service,
		availability:       availabilitySvc,
		defaultDuration:    time.Duration(defaultDurationMinutes) * time.Minute,
		defaultGranularity: time.Duration(slotGranularityMinutes) * time.Minute,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/available-slots", h.GetAvailableSlots)
		appointments.GET("/check-availability", h.CheckAvailability)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/reschedule-request", h.RequestReschedule)
		appointments.GET("/:id/reschedule-requests", h.ListRescheduleRequests)
		appointments.POST("/:id/reschedule-requests/:requestId/approve", h.ApproveReschedule)
		appointments.POST("/:id/reschedule-requests/:requestId/reject", h.RejectReschedule)
		appointments.POST("/:id/force-reschedule", h.ForceReschedule)
	}
}

func (h *Handler) GetAvailableSlots(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	date, err := model.ParseDate(c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid date format, want YYYY-MM-DD", err))
		return
	}

	granularity := h.defaultGranularity
	if v := c.Query("granularity_minutes"); v != "" {
		minutes, err := parsePositiveInt(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid granularity", err))
			return
		}
		granularity = time.Duration(minutes) * time.Minute
	}

	slots, err := h.availability.GetAvailableSlots(c.Request.Context(), doctorID, date, granularity, h.defaultDuration)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, c.Query("scheduled_at"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid scheduled_at, want RFC 3339", err))
		return
	}

	duration := h.defaultDuration
	if v := c.Query("duration_minutes"); v != "" {
		minutes, err := parsePositiveInt(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid duration", err))
			return
		}
		duration = time.Duration(minutes) * time.Minute
	}

	available, err := h.availability.CheckAvailability(c.Request.Context(), doctorID, scheduledAt, duration, nil)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"available": available})
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	apt, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	filters := &model.AppointmentFilters{}

	if v := c.Query("doctor_id"); v != "" {
		doctorID, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid doctor ID", err))
			return
		}
		filters.DoctorID = doctorID
	}
	if v := c.Query("client_id"); v != "" {
		clientID, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid client ID", err))
			return
		}
		filters.ClientID = clientID
	}
	if v := c.Query("status"); v != "" {
		status := model.AppointmentStatus(v)
		if !status.Valid() {
			httputil.RespondWithError(c, apperrors.Validation("invalid status", nil))
			return
		}
		filters.Status = status
	}
	if v := c.Query("start_date"); v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid start_date", err))
			return
		}
		filters.From, _ = date.At(model.Midnight, time.Local)
	}
	if v := c.Query("end_date"); v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid end_date", err))
			return
		}
		filters.To, _ = date.AddDays(1).At(model.Midnight, time.Local)
	}

	appointments, err := h.service.List(c.Request.Context(), actor, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) RequestReschedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.CreateRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	request, err := h.service.RequestReschedule(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, request)
}

func (h *Handler) ListRescheduleRequests(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	requests, err := h.service.ListRescheduleRequests(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) ApproveReschedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid reschedule request ID", err))
		return
	}

	apt, err := h.service.ApproveReschedule(c.Request.Context(), actor, requestID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) RejectReschedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid reschedule request ID", err))
		return
	}

	var req model.RejectRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	request, err := h.service.RejectReschedule(c.Request.Context(), actor, requestID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, request)
}

func (h *Handler) ForceReschedule(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID", err))
		return
	}

	var req model.ForceRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	apt, err := h.service.ForceReschedule(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive, got %d", n)
	}
	return n, nil
}
