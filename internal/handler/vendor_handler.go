package handler

import (
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type VendorHandler struct {
	vendorService service.VendorService
}

func NewVendorHandler(vendorService service.VendorService) *VendorHandler {
	return &VendorHandler{vendorService: vendorService}
}

func (h *VendorHandler) RegisterRoutes(router *gin.RouterGroup) {
	vendors := router.Group("/api/vendors")
	{
		vendors.GET("", h.ListVendors)
		vendors.POST("", h.CreateVendor)
		vendors.POST("/discover", h.DiscoverVendors)
		vendors.GET("/:id", h.GetVendor)
		vendors.PUT("/:id", h.UpdateVendor)
		vendors.DELETE("/:id", h.DeleteVendor)
	}
}

// ListVendors returns paginated vendors; vendor users only see their own profile
// @Summary      List vendors
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "pending, approved, rejected, suspended"
// @Param        search  query     string  false  "Search by company, contact, email"
// @Success      200     {object}  response.Response{data=[]service.VendorResponse}
// @Router       /api/vendors [get]
func (h *VendorHandler) ListVendors(c *gin.Context) {
	p := pagination.Parse(c)
	vendors, total, err := h.vendorService.GetVendors(c.Request.Context(), actorOf(c), c.Query("status"), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, vendors, p.Page, p.Limit, total))
}

// CreateVendor registers a vendor profile pending onboarding approval
// @Summary      Create vendor
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateVendorRequest  true  "Vendor payload"
// @Success      201  {object}  response.Response{data=service.VendorResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/vendors [post]
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	var req service.CreateVendorRequest
	if !bindJSON(c, &req) {
		return
	}
	vendor, err := h.vendorService.CreateVendor(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vendor))
}

// @Summary      Get vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Vendor ID"
// @Success      200  {object}  response.Response{data=service.VendorResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/vendors/{id} [get]
func (h *VendorHandler) GetVendor(c *gin.Context) {
	vendor, err := h.vendorService.GetVendor(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// UpdateVendor updates profile fields; status changes are limited to suspend/reinstate
// @Summary      Update vendor
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Vendor ID"
// @Param        payload  body  service.UpdateVendorRequest  true  "Update payload"
// @Success      200  {object}  response.Response{data=service.VendorResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/vendors/{id} [put]
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	var req service.UpdateVendorRequest
	if !bindJSON(c, &req) {
		return
	}
	vendor, err := h.vendorService.UpdateVendor(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// DeleteVendor soft deletes a vendor
// @Summary      Delete vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Vendor ID"
// @Success      200  {object}  response.Response
// @Router       /api/vendors/{id} [delete]
func (h *VendorHandler) DeleteVendor(c *gin.Context) {
	if err := h.vendorService.DeleteVendor(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Vendor deleted successfully"}))
}

// DiscoverVendors searches the external vendor directory
// @Summary      Discover vendors
// @Description  Searches the vendor directory; falls back to a static list when the search backend is unavailable.
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.DiscoverVendorsRequest  true  "Search input"
// @Success      200  {object}  response.Response
// @Router       /api/vendors/discover [post]
func (h *VendorHandler) DiscoverVendors(c *gin.Context) {
	var req service.DiscoverVendorsRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.vendorService.Discover(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
