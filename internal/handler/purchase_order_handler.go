package handler

import (
	"context"
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseOrderHandler struct {
	poService service.PurchaseOrderService
}

func NewPurchaseOrderHandler(poService service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService}
}

// RegisterRoutes also mounts the create_po actions under each source document.
func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/rfx/:id/create_po", h.derive(h.poService.DeriveFromRFx))
	router.POST("/api/auctions/:id/create_po", h.derive(h.poService.DeriveFromAuction))
	router.POST("/api/direct-orders/:id/create_po", h.derive(h.poService.DeriveFromDirectOrder))

	pos := router.Group("/api/purchase-orders")
	{
		pos.GET("", h.ListPurchaseOrders)
		pos.GET("/:id", h.GetPurchaseOrder)
		pos.GET("/:id/line-items", h.ListLineItems)
		pos.POST("/:id/submit", h.transition(h.poService.Submit))
		pos.POST("/:id/issue", h.transition(h.poService.Issue))
		pos.POST("/:id/acknowledge", h.transition(h.poService.Acknowledge))
		pos.PATCH("/:id/update_status", h.UpdateStatus)
	}
}

type deriveFunc func(ctx context.Context, actor service.Actor, sourceID string, req service.CreatePORequest) (service.PurchaseOrderResponse, error)

// derive handles POST /api/{rfx|auctions|direct-orders}/:id/create_po
// @Summary      Create purchase order from a source document
// @Description  Derives a PO with line items and a pending approval from a closed RFx, a completed auction or an approved direct order.
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true   "Source document ID"
// @Param        payload  body  service.CreatePORequest  false  "Overrides"
// @Success      201  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/rfx/{id}/create_po [post]
func (h *PurchaseOrderHandler) derive(fn deriveFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreatePORequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		po, err := fn(c.Request.Context(), actorOf(c), c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
	}
}

type transitionFunc func(ctx context.Context, actor service.Actor, id string) (service.PurchaseOrderResponse, error)

func (h *PurchaseOrderHandler) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		po, err := fn(c.Request.Context(), actorOf(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
	}
}

// ListPurchaseOrders returns POs visible to the caller
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "PO status"
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.PurchaseOrderResponse}
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) ListPurchaseOrders(c *gin.Context) {
	p := pagination.Parse(c)
	pos, total, err := h.poService.GetPurchaseOrders(c.Request.Context(), actorOf(c), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, pos, p.Page, p.Limit, total))
}

func (h *PurchaseOrderHandler) GetPurchaseOrder(c *gin.Context) {
	po, err := h.poService.GetPurchaseOrder(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

func (h *PurchaseOrderHandler) ListLineItems(c *gin.Context) {
	items, err := h.poService.GetLineItems(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// UpdateStatus moves a PO along its lifecycle; approve/reject go through /api/approvals
// @Summary      Update PO status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "PO ID"
// @Param        payload  body  service.UpdateStatusRequest  true  "Target status"
// @Success      200  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders/{id}/update_status [patch]
func (h *PurchaseOrderHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	po, err := h.poService.UpdateStatus(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}
