package handler

import (
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type RFxHandler struct {
	rfxService service.RFxService
}

func NewRFxHandler(rfxService service.RFxService) *RFxHandler {
	return &RFxHandler{rfxService: rfxService}
}

func (h *RFxHandler) RegisterRoutes(router *gin.RouterGroup) {
	rfx := router.Group("/api/rfx")
	{
		rfx.GET("", h.ListRFx)
		rfx.POST("", h.CreateRFx)
		rfx.GET("/:id", h.GetRFx)
		rfx.POST("/:id/invite_vendors", h.InviteVendors)
		rfx.POST("/:id/responses", h.SubmitResponse)
		rfx.GET("/:id/responses", h.ListResponses)
		rfx.PATCH("/:id/update_status", h.UpdateStatus)
		rfx.POST("/:id/create_next_stage", h.CreateNextStage)
	}
}

// ListRFx returns sourcing events; vendors only see events they are invited to
// @Summary      List RFx events
// @Tags         rfx
// @Security     BearerAuth
// @Produce      json
// @Param        type    query  string  false  "rfi, rfp or rfq"
// @Param        status  query  string  false  "Event status"
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.RFxEventResponse}
// @Router       /api/rfx [get]
func (h *RFxHandler) ListRFx(c *gin.Context) {
	p := pagination.Parse(c)
	events, total, err := h.rfxService.GetRFxEvents(c.Request.Context(), actorOf(c), c.Query("type"), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, events, p.Page, p.Limit, total))
}

// @Summary      Create RFx event
// @Tags         rfx
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateRFxRequest  true  "Event"
// @Success      201  {object}  response.Response{data=service.RFxEventResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/rfx [post]
func (h *RFxHandler) CreateRFx(c *gin.Context) {
	var req service.CreateRFxRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.rfxService.CreateRFx(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, event))
}

// @Summary      Get RFx event
// @Tags         rfx
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "RFx ID"
// @Success      200  {object}  response.Response{data=service.RFxEventResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/rfx/{id} [get]
func (h *RFxHandler) GetRFx(c *gin.Context) {
	event, err := h.rfxService.GetRFx(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, event))
}

// InviteVendors adds approved vendors to the event; existing invitations are kept
// @Summary      Invite vendors
// @Tags         rfx
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                        true  "RFx ID"
// @Param        payload  body  service.InviteVendorsRequest  true  "Vendor IDs"
// @Success      200  {object}  response.Response
// @Router       /api/rfx/{id}/invite_vendors [post]
func (h *RFxHandler) InviteVendors(c *gin.Context) {
	var req service.InviteVendorsRequest
	if !bindJSON(c, &req) {
		return
	}
	added, err := h.rfxService.InviteVendors(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"invited": added}))
}

// SubmitResponse records the calling vendor's quote
// @Summary      Submit RFx response
// @Tags         rfx
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                            true  "RFx ID"
// @Param        payload  body  service.SubmitRFxResponseRequest  true  "Quote"
// @Success      201  {object}  response.Response{data=service.RFxOfferResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/rfx/{id}/responses [post]
func (h *RFxHandler) SubmitResponse(c *gin.Context) {
	var req service.SubmitRFxResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	offer, err := h.rfxService.SubmitResponse(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, offer))
}

func (h *RFxHandler) ListResponses(c *gin.Context) {
	offers, err := h.rfxService.GetResponses(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, offers))
}

// UpdateStatus moves the event along its status graph
// @Summary      Update RFx status
// @Tags         rfx
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "RFx ID"
// @Param        payload  body  service.UpdateStatusRequest  true  "Target status"
// @Success      200  {object}  response.Response{data=service.RFxEventResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/rfx/{id}/update_status [patch]
func (h *RFxHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.rfxService.UpdateStatus(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, event))
}

// CreateNextStage opens the follow-up event (rfi to rfp, rfp to rfq)
// @Summary      Create next RFx stage
// @Tags         rfx
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Closed RFx ID"
// @Success      201  {object}  response.Response{data=service.RFxEventResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/rfx/{id}/create_next_stage [post]
func (h *RFxHandler) CreateNextStage(c *gin.Context) {
	event, err := h.rfxService.CreateNextStage(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, event))
}
