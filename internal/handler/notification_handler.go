package handler

import (
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	n := router.Group("/api/notifications")
	{
		n.GET("", h.List)
		n.POST("/read_all", h.MarkAllRead)
		n.POST("/:id/read", h.MarkRead)
	}
}

// List returns the caller's notifications, newest first
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        unread  query  bool  false  "Only unread"
// @Param        page    query  int   false  "Page number (default: 1)"
// @Param        limit   query  int   false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.NotificationResponse}
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	rows, total, err := h.notificationService.List(c.Request.Context(), actorOf(c), c.Query("unread") == "true", p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rows, p.Page, p.Limit, total))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Notification marked as read"}))
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notificationService.MarkAllRead(c.Request.Context(), actorOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"updated": n}))
}
