package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-scheduler/internal/handler"
	"github.com/jwalitptl/dental-scheduler/internal/middleware"
	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/service/notification"
	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
	"github.com/jwalitptl/dental-scheduler/pkg/httputil"
)

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the caller's inbox. Routes must sit behind authentication.
func (h *Handler) RegisterRoutes(authed gin.IRouter) {
	inbox := authed.Group("/notifications")
	{
		inbox.GET("", h.List)
		inbox.GET("/unread-count", h.UnreadCount)
		inbox.POST("/:id/read", h.MarkRead)
		inbox.POST("/read-all", h.MarkAllRead)
	}
}

func callerID(c *gin.Context) (string, bool) {
	caller := middleware.CallerFrom(c)
	if caller == nil || caller.UserID == "" {
		httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("missing caller")))
		return "", false
	}
	return caller.UserID, true
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	skip, ok := handler.QueryInt(c, "skip", 0)
	if !ok {
		return
	}
	take, ok := handler.QueryInt(c, "take", 20)
	if !ok {
		return
	}
	if take < 1 {
		take = 1
	}
	onlyUnread, _ := strconv.ParseBool(c.Query("onlyUnread"))

	list, err := h.service.List(c.Request.Context(), userID, model.NotificationFilters{
		Skip:       skip,
		Take:       take,
		OnlyUnread: onlyUnread,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, list)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"count": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
