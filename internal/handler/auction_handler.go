package handler

import (
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuctionHandler struct {
	auctionService service.AuctionService
}

func NewAuctionHandler(auctionService service.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

func (h *AuctionHandler) RegisterRoutes(router *gin.RouterGroup) {
	auctions := router.Group("/api/auctions")
	{
		auctions.GET("", h.ListAuctions)
		auctions.POST("", h.CreateAuction)
		auctions.GET("/:id", h.GetAuction)
		auctions.POST("/:id/register", h.Register)
		auctions.POST("/:id/place_bid", h.PlaceBid)
		auctions.GET("/:id/bids", h.ListBids)
		auctions.PATCH("/:id/update_status", h.UpdateStatus)
		auctions.POST("/:id/declare_winner", h.DeclareWinner)
	}
}

// @Summary      List auctions
// @Tags         auctions
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "scheduled, live, completed, cancelled"
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.AuctionResponse}
// @Router       /api/auctions [get]
func (h *AuctionHandler) ListAuctions(c *gin.Context) {
	p := pagination.Parse(c)
	auctions, total, err := h.auctionService.GetAuctions(c.Request.Context(), actorOf(c), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, auctions, p.Page, p.Limit, total))
}

// @Summary      Create auction
// @Tags         auctions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateAuctionRequest  true  "Auction"
// @Success      201  {object}  response.Response{data=service.AuctionResponse}
// @Router       /api/auctions [post]
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	var req service.CreateAuctionRequest
	if !bindJSON(c, &req) {
		return
	}
	auction, err := h.auctionService.CreateAuction(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, auction))
}

func (h *AuctionHandler) GetAuction(c *gin.Context) {
	auction, err := h.auctionService.GetAuction(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, auction))
}

// Register enrols a vendor as a bidder
// @Summary      Register for auction
// @Tags         auctions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                          true   "Auction ID"
// @Param        payload  body  service.RegisterAuctionRequest  false  "vendor_id when a buyer registers a vendor"
// @Success      201  {object}  response.Response{data=service.ParticipantResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/auctions/{id}/register [post]
func (h *AuctionHandler) Register(c *gin.Context) {
	var req service.RegisterAuctionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	participant, err := h.auctionService.Register(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, participant))
}

// PlaceBid records a bid; current_bid only moves when the amount is strictly higher
// @Summary      Place bid
// @Tags         auctions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Auction ID"
// @Param        payload  body  service.PlaceBidRequest  true  "Bid amount"
// @Success      201  {object}  response.Response{data=service.PlaceBidResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/auctions/{id}/place_bid [post]
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	var req service.PlaceBidRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auctionService.PlaceBid(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

func (h *AuctionHandler) ListBids(c *gin.Context) {
	bids, err := h.auctionService.GetBids(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bids))
}

// @Summary      Update auction status
// @Tags         auctions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Auction ID"
// @Param        payload  body  service.UpdateStatusRequest  true  "Target status"
// @Success      200  {object}  response.Response{data=service.AuctionResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/auctions/{id}/update_status [patch]
func (h *AuctionHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	auction, err := h.auctionService.UpdateStatus(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, auction))
}

// DeclareWinner awards a completed auction to its highest bid
// @Summary      Declare winner
// @Tags         auctions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Auction ID"
// @Success      200  {object}  response.Response{data=service.AuctionResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/auctions/{id}/declare_winner [post]
func (h *AuctionHandler) DeclareWinner(c *gin.Context) {
	auction, err := h.auctionService.DeclareWinner(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, auction))
}
