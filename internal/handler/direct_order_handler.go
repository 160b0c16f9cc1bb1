package handler

import (
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type DirectOrderHandler struct {
	orderService service.DirectOrderService
}

func NewDirectOrderHandler(orderService service.DirectOrderService) *DirectOrderHandler {
	return &DirectOrderHandler{orderService: orderService}
}

func (h *DirectOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/direct-orders")
	{
		orders.GET("", h.ListDirectOrders)
		orders.POST("", h.CreateDirectOrder)
		orders.GET("/:id", h.GetDirectOrder)
		orders.POST("/:id/submit", h.Submit)
		orders.PATCH("/:id/update_status", h.UpdateStatus)
	}
}

// @Summary      List direct orders
// @Tags         direct-orders
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "Order status"
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.DirectOrderResponse}
// @Router       /api/direct-orders [get]
func (h *DirectOrderHandler) ListDirectOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.orderService.GetDirectOrders(c.Request.Context(), actorOf(c), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, orders, p.Page, p.Limit, total))
}

// CreateDirectOrder creates a draft order against an approved vendor
// @Summary      Create direct order
// @Tags         direct-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateDirectOrderRequest  true  "Order"
// @Success      201  {object}  response.Response{data=service.DirectOrderResponse}
// @Router       /api/direct-orders [post]
func (h *DirectOrderHandler) CreateDirectOrder(c *gin.Context) {
	var req service.CreateDirectOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.CreateDirectOrder(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

func (h *DirectOrderHandler) GetDirectOrder(c *gin.Context) {
	order, err := h.orderService.GetDirectOrder(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Submit sends a draft order for approval
// @Summary      Submit direct order
// @Tags         direct-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.DirectOrderResponse}
// @Router       /api/direct-orders/{id}/submit [post]
func (h *DirectOrderHandler) Submit(c *gin.Context) {
	order, err := h.orderService.Submit(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

func (h *DirectOrderHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.UpdateStatus(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
