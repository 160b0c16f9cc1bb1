package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(model.RoleBuyerAdmin, model.RoleSourcingManager))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the mutation history, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_id  query     string  false  "Only entries for this entity"
// @Param        action     query     string  false  "Only this action"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), actorOf(c), c.Query("entity_id"), c.Query("action"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, p.Page, p.Limit, total))
}
