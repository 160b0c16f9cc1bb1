package handler

import (
	"context"
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	approvals.Use(middleware.RequireRole(model.RoleBuyerAdmin, model.RoleBuyerUser, model.RoleSourcingManager))
	{
		approvals.GET("", h.ListApprovals)
		approvals.POST("/:id/approve", h.Approve)
		approvals.POST("/:id/reject", h.Reject)
	}
}

// ListApprovals returns approval records, optionally filtered by status and entity type
// @Summary      List approvals
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        status       query  string  false  "pending, approved, rejected"
// @Param        entity_type  query  string  false  "purchase_order, direct_order, vendor"
// @Param        page         query  int     false  "Page number (default: 1)"
// @Param        limit        query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.ApprovalResponse}
// @Router       /api/approvals [get]
func (h *ApprovalHandler) ListApprovals(c *gin.Context) {
	p := pagination.Parse(c)
	approvals, total, err := h.approvalService.ListApprovals(c.Request.Context(), actorOf(c), service.ApprovalFilter{
		Status:     c.Query("status"),
		EntityType: c.Query("entity_type"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, approvals, p.Page, p.Limit, total))
}

// Approve approves a pending record and its entity in one transaction
// @Summary      Approve
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true   "Approval ID"
// @Param        payload  body  service.DecisionRequest  false  "Comments"
// @Success      200  {object}  response.Response{data=service.ApprovalResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, h.approvalService.Approve)
}

// Reject rejects a pending record; comments are optional
// @Summary      Reject
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true   "Approval ID"
// @Param        payload  body  service.DecisionRequest  false  "Comments"
// @Success      200  {object}  response.Response{data=service.ApprovalResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/approvals/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, h.approvalService.Reject)
}

func (h *ApprovalHandler) decide(c *gin.Context, fn func(ctx context.Context, actor service.Actor, id string, req service.DecisionRequest) (service.ApprovalResponse, error)) {
	var req service.DecisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	result, err := fn(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
