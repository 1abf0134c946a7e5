package main

import (
	"net/http"

	"bitbucket.org/broman/realty_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type rentalView struct {
	*models.Rental
	Unit *models.Unit `json:"unit"`
}

type finishingWorkView struct {
	*models.FinishingWork
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	Unit            *models.Unit    `json:"unit"`
}

func (h *api) listExpenses(c *gin.Context) {
	categoryId, ok := intQuery(c, "category_id")
	if !ok {
		return
	}
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	expenses, err := models.ListExpenses(c.Request.Context(), h.svc.DB(), models.ExpenseFilter{
		CategoryId: categoryId,
		FromDate:   from,
		ToDate:     to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

func (h *api) getExpense(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	expense, err := models.GetExpense(c.Request.Context(), h.svc.DB(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (h *api) createExpense(c *gin.Context) {
	var input models.NewExpense
	if !bindJSON(c, &input) {
		return
	}
	expense, outcome, err := h.svc.CreateExpense(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("expense", expense, outcome))
}

func (h *api) updateExpense(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewExpense
	if !bindJSON(c, &input) {
		return
	}
	expense, outcome, err := h.svc.UpdateExpense(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("expense", expense, outcome))
}

func (h *api) deleteExpense(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	expense, outcome, err := h.svc.DeleteExpense(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("expense", expense, outcome))
}

func (h *api) listRentals(c *gin.Context) {
	unitId, ok := intQuery(c, "unit_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rentals, err := models.ListRentals(ctx, h.svc.DB(), unitId)
	if err != nil {
		respondError(c, err)
		return
	}
	ids := make([]int, 0, len(rentals))
	for _, r := range rentals {
		ids = append(ids, r.UnitId)
	}
	units, err := unitsById(ctx, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]rentalView, 0, len(rentals))
	for _, r := range rentals {
		views = append(views, rentalView{Rental: r, Unit: units[r.UnitId]})
	}
	c.JSON(http.StatusOK, views)
}

func (h *api) getRental(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rental, err := models.GetRentalWithPayments(c.Request.Context(), h.svc.DB(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rental)
}

func (h *api) createRental(c *gin.Context) {
	var input models.NewRental
	if !bindJSON(c, &input) {
		return
	}
	rental, err := h.svc.CreateRental(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rental)
}

func (h *api) updateRental(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewRental
	if !bindJSON(c, &input) {
		return
	}
	rental, err := h.svc.UpdateRental(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rental)
}

func (h *api) deleteRental(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rental, outcome, err := h.svc.DeleteRental(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("rental", rental, outcome))
}

func (h *api) addRentalPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewRentalPayment
	if !bindJSON(c, &input) {
		return
	}
	payment, outcome, err := h.svc.AddRentalPayment(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("payment", payment, outcome))
}

func (h *api) updateRentalPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewRentalPayment
	if !bindJSON(c, &input) {
		return
	}
	payment, outcome, err := h.svc.UpdateRentalPayment(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("payment", payment, outcome))
}

func (h *api) deleteRentalPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	payment, outcome, err := h.svc.DeleteRentalPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("payment", payment, outcome))
}

func (h *api) listFinishingWorks(c *gin.Context) {
	unitId, ok := intQuery(c, "unit_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	works, err := models.ListFinishingWorks(ctx, h.svc.DB(), unitId)
	if err != nil {
		respondError(c, err)
		return
	}
	ids := make([]int, 0, len(works))
	for _, w := range works {
		ids = append(ids, w.UnitId)
	}
	units, err := unitsById(ctx, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]finishingWorkView, 0, len(works))
	for _, w := range works {
		views = append(views, finishingWorkView{FinishingWork: w, RemainingBudget: w.RemainingBudget(), Unit: units[w.UnitId]})
	}
	c.JSON(http.StatusOK, views)
}

func (h *api) getFinishingWork(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	work, err := models.GetFinishingWorkWithExpenses(c.Request.Context(), h.svc.DB(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, finishingWorkView{FinishingWork: work, RemainingBudget: work.RemainingBudget()})
}

func (h *api) createFinishingWork(c *gin.Context) {
	var input models.NewFinishingWork
	if !bindJSON(c, &input) {
		return
	}
	work, err := h.svc.CreateFinishingWork(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, work)
}

func (h *api) updateFinishingWork(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewFinishingWork
	if !bindJSON(c, &input) {
		return
	}
	work, err := h.svc.UpdateFinishingWork(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, work)
}

func (h *api) deleteFinishingWork(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	work, outcome, err := h.svc.DeleteFinishingWork(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("finishing_work", work, outcome))
}

func (h *api) addFinishingWorkExpense(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewFinishingWorkExpense
	if !bindJSON(c, &input) {
		return
	}
	expense, outcome, err := h.svc.AddFinishingWorkExpense(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("expense", expense, outcome))
}

func (h *api) updateFinishingWorkExpense(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewFinishingWorkExpense
	if !bindJSON(c, &input) {
		return
	}
	expense, outcome, err := h.svc.UpdateFinishingWorkExpense(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("expense", expense, outcome))
}

func (h *api) deleteFinishingWorkExpense(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	expense, outcome, err := h.svc.DeleteFinishingWorkExpense(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse("expense", expense, outcome))
}
