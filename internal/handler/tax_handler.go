package handler

import (
	"net/http"
	"time"

	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

// RegisterRoutes expects router to carry RequireAuth; write access is
// enforced by the service.
func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax-rules")
	{
		tax.GET("", h.ListTaxRules)
		tax.POST("", h.CreateTaxRule)
		tax.PUT("/:id", h.UpdateTaxRule)
		tax.POST("/:id/supersede", h.SupersedeTaxRule)
		tax.POST("/calculate_tax", h.CalculateTax)
		tax.POST("/lookup_hsn", h.LookupHSN)
		tax.GET("/hsn_codes", h.HSNCodes)
		tax.GET("/active_configurations", h.ActiveConfigurations)
	}
}

// ListTaxRules returns tax rules ordered by effective_from DESC
// @Summary      List tax rules
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        hsn_code        query  string  false  "Filter by HSN code"
// @Param        status          query  string  false  "active, inactive or draft"
// @Param        effective_date  query  string  false  "Only rules in effect on this date (YYYY-MM-DD)"
// @Param        page            query  int     false  "Page number (default: 1)"
// @Param        limit           query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=[]service.TaxRuleResponse}
// @Router       /api/tax-rules [get]
func (h *TaxHandler) ListTaxRules(c *gin.Context) {
	p := pagination.Parse(c)
	rules, total, err := h.taxService.ListRules(c.Request.Context(), service.TaxRuleListFilter{
		HSNCode:       c.Query("hsn_code"),
		Status:        c.Query("status"),
		EffectiveDate: c.Query("effective_date"),
		Page:          p.Page,
		Limit:         p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rules, p.Page, p.Limit, total))
}

// CreateTaxRule creates a new tax rule entry
// @Summary      Create tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TaxRuleRequest  true  "Tax rule"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.taxService.CreateRule(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule edits a draft rule in place
// @Summary      Update draft tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Tax rule ID"
// @Param        payload  body      service.TaxRuleRequest  true  "Tax rule"
// @Success      200      {object}  response.Response{data=service.TaxRuleResponse}
// @Router       /api/tax-rules/{id} [put]
func (h *TaxHandler) UpdateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.taxService.UpdateRule(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// SupersedeTaxRule closes an active rule and inserts its successor
// @Summary      Supersede tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Rule being replaced"
// @Param        payload  body      service.TaxRuleRequest  true  "Successor rule"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Router       /api/tax-rules/{id}/supersede [post]
func (h *TaxHandler) SupersedeTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.taxService.SupersedeRule(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// CalculateTax computes the GST breakdown for an amount
// @Summary      Calculate GST
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CalculateTaxRequest  true  "Calculation input"
// @Success      200      {object}  response.Response{data=service.TaxCalculationResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/tax-rules/calculate_tax [post]
func (h *TaxHandler) CalculateTax(c *gin.Context) {
	var req service.CalculateTaxRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.taxService.Calculate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// LookupHSN returns the rule in effect for an HSN code
// @Summary      Lookup HSN
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LookupHSNRequest  true  "HSN code"
// @Success      200      {object}  response.Response{data=service.TaxRuleResponse}
// @Router       /api/tax-rules/lookup_hsn [post]
func (h *TaxHandler) LookupHSN(c *gin.Context) {
	var req service.LookupHSNRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.taxService.LookupHSN(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// @Summary      Distinct HSN codes
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/tax-rules/hsn_codes [get]
func (h *TaxHandler) HSNCodes(c *gin.Context) {
	codes, err := h.taxService.HSNCodes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, codes))
}

// @Summary      Rules in effect on a date
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        date  query  string  false  "YYYY-MM-DD (default: today)"
// @Success      200  {object}  response.Response{data=[]service.TaxRuleResponse}
// @Router       /api/tax-rules/active_configurations [get]
func (h *TaxHandler) ActiveConfigurations(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "validation_error", "date: expected YYYY-MM-DD"))
			return
		}
		asOf = t
	}
	rules, err := h.taxService.ActiveConfigurations(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}
