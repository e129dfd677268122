package treatment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-scheduler/internal/handler"
	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/service/treatment"
	"github.com/jwalitptl/dental-scheduler/pkg/httputil"
	"github.com/jwalitptl/dental-scheduler/pkg/validator"
)

type Handler struct {
	service   *treatment.Service
	validator validator.Validator
}

func NewHandler(service *treatment.Service, v validator.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

// RegisterRoutes exposes the catalogue publicly and its edits on admin.
func (h *Handler) RegisterRoutes(public, admin gin.IRouter) {
	public.GET("/treatments", h.List)
	public.GET("/treatments/:id", h.Get)

	admin.POST("/treatments", h.Create)
	admin.PUT("/treatments/:id", h.Update)
	admin.DELETE("/treatments/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, t)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.TreatmentRequest
	if !handler.BindJSON(c, h.validator, &req) {
		return
	}
	t, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, t)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.TreatmentRequest
	if !handler.BindJSON(c, h.validator, &req) {
		return
	}
	t, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, t)
}

func (h *Handler) Delete(c *gin.Context) {
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
