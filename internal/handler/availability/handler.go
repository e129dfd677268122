package availability

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-scheduler/internal/handler"
	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/service/availability"
	"github.com/jwalitptl/dental-scheduler/pkg/httputil"
	"github.com/jwalitptl/dental-scheduler/pkg/validator"
)

type Handler struct {
	service   *availability.Service
	validator validator.Validator
}

func NewHandler(service *availability.Service, v validator.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

// RegisterRoutes mounts the slot resolver on authed and window
// administration on staff.
func (h *Handler) RegisterRoutes(authed, staff gin.IRouter) {
	authed.GET("/availability", h.GetSlots)

	windows := staff.Group("/availability-windows")
	{
		windows.GET("", h.ListWindows)
		windows.POST("", h.CreateWindow)
		windows.GET("/:id", h.GetWindow)
		windows.PUT("/:id", h.UpdateWindow)
		windows.DELETE("/:id", h.DeleteWindow)
	}
}

func providerQuery(c *gin.Context) (int64, bool) {
	id, ok := handler.QueryInt(c, "providerId", 0)
	if !ok {
		return 0, false
	}
	if id <= 0 {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "providerId is required")
		return 0, false
	}
	return int64(id), true
}

func (h *Handler) GetSlots(c *gin.Context) {
	providerID, ok := providerQuery(c)
	if !ok {
		return
	}
	from, ok := handler.QueryTime(c, "fromUtc", true)
	if !ok {
		return
	}
	to, ok := handler.QueryTime(c, "toUtc", true)
	if !ok {
		return
	}
	duration, ok := handler.QueryInt(c, "durationMinutes", 0)
	if !ok {
		return
	}
	step, ok := handler.QueryInt(c, "stepMinutes", 0)
	if !ok {
		return
	}
	// A non-positive duration asks for whole free windows. An absent step
	// follows the duration; an explicit one is at least a minute.
	duration = max(0, duration)
	if _, set := c.GetQuery("stepMinutes"); set {
		step = max(1, step)
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), model.SlotQuery{
		ProviderID:      providerID,
		From:            from,
		To:              to,
		DurationMinutes: duration,
		StepMinutes:     step,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, slots)
}

func (h *Handler) ListWindows(c *gin.Context) {
	providerID, ok := providerQuery(c)
	if !ok {
		return
	}
	from, ok := handler.QueryTime(c, "fromUtc", true)
	if !ok {
		return
	}
	to, ok := handler.QueryTime(c, "toUtc", true)
	if !ok {
		return
	}

	windows, err := h.service.ListWindows(c.Request.Context(), providerID, from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, windows)
}

func (h *Handler) GetWindow(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	w, err := h.service.GetWindow(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, w)
}

func (h *Handler) CreateWindow(c *gin.Context) {
	var req model.AvailabilityWindowRequest
	if !handler.BindJSON(c, h.validator, &req) {
		return
	}
	w, err := h.service.CreateWindow(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, w)
}

func (h *Handler) UpdateWindow(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.AvailabilityWindowRequest
	if !handler.BindJSON(c, h.validator, &req) {
		return
	}
	w, err := h.service.UpdateWindow(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, w)
}

func (h *Handler) DeleteWindow(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteWindow(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
