package handler

import (
	"net/http"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
	bomService     service.BOMService
}

func NewCatalogHandler(catalogService service.CatalogService, bomService service.BOMService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, bomService: bomService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	categories := router.Group("/api/product-categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", h.CreateCategory)
	}

	products := router.Group("/api/products")
	{
		products.GET("", h.ListProducts)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}

	boms := router.Group("/api/boms")
	{
		boms.GET("", h.ListBOMs)
		boms.POST("", h.CreateBOM)
		boms.GET("/:id", h.GetBOM)
		boms.DELETE("/:id", h.DeleteBOM)
	}
}

// @Summary      List product categories
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        parent_id  query  string  false  "Only children of this category"
// @Success      200  {object}  response.Response{data=[]service.CategoryResponse}
// @Router       /api/product-categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cats, err := h.catalogService.GetCategories(c.Request.Context(), actorOf(c), c.Query("parent_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cats))
}

// @Summary      Create product category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateCategoryRequest  true  "Category"
// @Success      201  {object}  response.Response{data=service.CategoryResponse}
// @Router       /api/product-categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.catalogService.CreateCategory(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cat))
}

// ListProducts returns paginated products with optional category/search filter
// @Summary      List products
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default: 1)"
// @Param        limit        query  int     false  "Items per page (default: 20)"
// @Param        category_id  query  string  false  "Category ID"
// @Param        search       query  string  false  "Search by name or code"
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	products, total, err := h.catalogService.GetProducts(c.Request.Context(), actorOf(c), c.Query("category_id"), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, products, p.Page, p.Limit, total))
}

// @Summary      Create product
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.ProductRequest  true  "Product"
// @Success      201  {object}  response.Response{data=service.ProductResponse}
// @Router       /api/products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.catalogService.CreateProduct(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req service.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.catalogService.UpdateProduct(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Product deleted successfully"}))
}

// @Summary      List BOMs
// @Tags         boms
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.BOMResponse}
// @Router       /api/boms [get]
func (h *CatalogHandler) ListBOMs(c *gin.Context) {
	p := pagination.Parse(c)
	boms, total, err := h.bomService.GetBOMs(c.Request.Context(), actorOf(c), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, boms, p.Page, p.Limit, total))
}

// CreateBOM stores a bill of materials; (name, version) is unique
// @Summary      Create BOM
// @Tags         boms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateBOMRequest  true  "BOM with items"
// @Success      201  {object}  response.Response{data=service.BOMResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/boms [post]
func (h *CatalogHandler) CreateBOM(c *gin.Context) {
	var req service.CreateBOMRequest
	if !bindJSON(c, &req) {
		return
	}
	bom, err := h.bomService.CreateBOM(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bom))
}

func (h *CatalogHandler) GetBOM(c *gin.Context) {
	bom, err := h.bomService.GetBOM(c.Request.Context(), actorOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, bom))
}

func (h *CatalogHandler) DeleteBOM(c *gin.Context) {
	if err := h.bomService.DeleteBOM(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "BOM deleted successfully"}))
}
