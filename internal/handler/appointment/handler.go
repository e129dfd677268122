package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-scheduler/internal/handler"
	"github.com/jwalitptl/dental-scheduler/internal/middleware"
	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/service/appointment"
	"github.com/jwalitptl/dental-scheduler/pkg/httputil"
	"github.com/jwalitptl/dental-scheduler/pkg/validator"
)

type Handler struct {
	service   *appointment.Service
	validator validator.Validator
}

func NewHandler(service *appointment.Service, v validator.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

// RegisterRoutes mounts patient routes on authed and management routes on staff.
func (h *Handler) RegisterRoutes(authed, staff gin.IRouter) {
	authed.POST("/bookings", h.Book)
	authed.GET("/my-appointments", h.MyAppointments)

	appointments := staff.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if !handler.BindJSON(c, h.validator, &req) {
		return
	}

	a, err := h.service.Book(c.Request.Context(), middleware.CallerFrom(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, a)
}

func (h *Handler) MyAppointments(c *gin.Context) {
	list, err := h.service.ListMine(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, list)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	from, ok := handler.QueryTime(c, "fromUtc", false)
	if !ok {
		return
	}
	to, ok := handler.QueryTime(c, "toUtc", false)
	if !ok {
		return
	}
	providerID, ok := handler.QueryInt(c, "providerId", 0)
	if !ok {
		return
	}

	list, err := h.service.ListAll(c.Request.Context(), &model.AppointmentFilters{
		ProviderID: int64(providerID),
		From:       from,
		To:         to,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, list)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, h.validator, &req) {
		return
	}

	a, err := h.service.AdminCreate(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, a)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateAppointmentRequest
	if !handler.BindJSON(c, h.validator, &req) {
		return
	}

	a, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
