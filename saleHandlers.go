package main

import (
	"net/http"

	"bitbucket.org/broman/realty_backend/middlewares"
	"bitbucket.org/broman/realty_backend/models"
	"github.com/gin-gonic/gin"
)

type saleView struct {
	*models.Sale
	Unit *models.Unit `json:"unit"`
}

func (h *api) listSales(c *gin.Context) {
	unitId, ok := intQuery(c, "unit_id")
	if !ok {
		return
	}
	salespersonId, ok := intQuery(c, "salesperson_id")
	if !ok {
		return
	}
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sales, err := models.ListSales(ctx, h.svc.DB(), models.SaleFilter{
		UnitId:        unitId,
		SalespersonId: salespersonId,
		FromDate:      from,
		ToDate:        to,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]int, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, s.UnitId)
	}
	units, err := unitsById(ctx, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]saleView, 0, len(sales))
	for _, s := range sales {
		views = append(views, saleView{Sale: s, Unit: units[s.UnitId]})
	}
	c.JSON(http.StatusOK, views)
}

func (h *api) getSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sale, err := models.GetSale(ctx, h.svc.DB(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	view := saleView{Sale: sale}
	if unit, err := middlewares.GetUnit(ctx, sale.UnitId); err == nil {
		view.Unit = unit
	}
	c.JSON(http.StatusOK, view)
}

func (h *api) createSale(c *gin.Context) {
	var input models.NewSale
	if !bindJSON(c, &input) {
		return
	}
	sale, outcome, err := h.svc.CreateSale(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("sale", sale, outcome))
}

func (h *api) updateSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewSale
	if !bindJSON(c, &input) {
		return
	}
	sale, outcome, err := h.svc.UpdateSale(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("sale", sale, outcome))
}

func (h *api) deleteSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, outcome, err := h.svc.DeleteSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("sale", sale, outcome))
}

func (h *api) payCommission(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, outcome, err := h.svc.PayCommission(c.Request.Context(), id, models.CommissionTarget(c.Param("target")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("sale", sale, outcome))
}

func (h *api) cancelCommission(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, outcome, err := h.svc.CancelCommissionPayment(c.Request.Context(), id, models.CommissionTarget(c.Param("target")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("sale", sale, outcome))
}
