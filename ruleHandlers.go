package main

import (
	"net/http"
	"strings"

	"bitbucket.org/broman/realty_backend/middlewares"
	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"bitbucket.org/broman/realty_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *api) listUnits(c *gin.Context) {
	var status *models.UnitStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s := models.UnitStatus(raw)
		status = &s
	}
	units, err := models.ListUnits(c.Request.Context(), h.svc.DB(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, units)
}

func (h *api) createUnit(c *gin.Context) {
	var input models.NewUnit
	if !bindJSON(c, &input) {
		return
	}
	unit, err := models.CreateUnit(c.Request.Context(), h.svc.DB(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

func (h *api) getUnit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	unit, err := middlewares.GetUnit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

func (h *api) listExpenseCategories(c *gin.Context) {
	categories, err := models.ListExpenseCategories(c.Request.Context(), h.svc.DB())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *api) listRules(c *gin.Context) {
	var scope *string
	if raw := strings.TrimSpace(c.Query("applies_to")); raw != "" {
		scope = &raw
	}
	rules, err := models.ListCalculationRules(c.Request.Context(), h.svc.DB(), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *api) createRule(c *gin.Context) {
	var input models.NewCalculationRule
	if !bindJSON(c, &input) {
		return
	}
	rule, err := models.CreateCalculationRule(c.Request.Context(), h.svc.DB(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *api) getRule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rule, err := models.GetCalculationRule(c.Request.Context(), h.svc.DB(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *api) updateRule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewCalculationRule
	if !bindJSON(c, &input) {
		return
	}
	rule, err := models.UpdateCalculationRule(c.Request.Context(), h.svc.DB(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *api) setRuleActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		IsActive *bool `json:"is_active"`
	}
	if !bindJSON(c, &input) {
		return
	}
	if input.IsActive == nil {
		respondError(c, utils.NewValidationError("is_active", "required"))
		return
	}
	rule, err := models.SetCalculationRuleActive(c.Request.Context(), h.svc.DB(), id, *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *api) deleteRule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rule, err := models.DeleteCalculationRule(c.Request.Context(), h.svc.DB(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *api) getScope(c *gin.Context) {
	scope, err := models.GetCalculationScope(c.Request.Context(), h.svc.DB(), c.Param("scope"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scope)
}

func (h *api) saveScope(c *gin.Context) {
	var input models.NewCalculationScope
	if !bindJSON(c, &input) {
		return
	}
	scope, err := models.SaveCalculationScope(c.Request.Context(), h.svc.DB(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scope)
}

type evaluateRequest struct {
	Scope      string          `json:"scope"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	UnitType   string          `json:"unit_type"`
}

// evaluate runs the rule engine for any scope without touching stored records.
func (h *api) evaluate(c *gin.Context) {
	var input evaluateRequest
	if !bindJSON(c, &input) {
		return
	}
	if input.Scope == "" {
		input.Scope = models.ScopeSales
	}
	breakdown, err := h.svc.Engine().Evaluate(c.Request.Context(), h.svc.DB(), input.Scope, input.BaseAmount,
		workflow.CalculationContext{UnitType: input.UnitType})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

type salePreviewRequest struct {
	UnitId         int             `json:"unit_id"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	SalespersonId  *int            `json:"salesperson_id"`
	SalesManagerId *int            `json:"sales_manager_id"`
}

func (h *api) previewSale(c *gin.Context) {
	var input salePreviewRequest
	if !bindJSON(c, &input) {
		return
	}
	breakdown, err := h.svc.EvaluateSaleCalculation(c.Request.Context(), input.UnitId, input.SalePrice, input.SalespersonId, input.SalesManagerId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}
