package main

import (
	"net/http"
	"strings"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"bitbucket.org/broman/realty_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *api) getBalance(c *gin.Context) {
	balance, err := h.svc.GetCurrentBalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *api) listTransactions(c *gin.Context) {
	referenceId, ok := intQuery(c, "reference_id")
	if !ok {
		return
	}
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	filter := models.CashierTransactionFilter{ReferenceId: referenceId, FromDate: from}
	if to != nil {
		end := utils.EndOfDay(*to)
		filter.ToDate = &end
	}
	if raw := strings.TrimSpace(c.Query("transaction_type")); raw != "" {
		txnType := models.TransactionType(raw)
		filter.TransactionType = &txnType
	}
	txns, err := models.ListCashierTransactions(c.Request.Context(), h.svc.DB(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *api) deposit(c *gin.Context) {
	var input workflow.NewCashMovement
	if !bindJSON(c, &input) {
		return
	}
	txn, outcome, err := h.svc.Deposit(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("transaction", txn, outcome))
}

func (h *api) withdraw(c *gin.Context) {
	var input workflow.NewCashMovement
	if !bindJSON(c, &input) {
		return
	}
	txn, outcome, err := h.svc.Withdraw(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("transaction", txn, outcome))
}

func (h *api) recordEvent(c *gin.Context) {
	var input workflow.NewLedgerEvent
	if !bindJSON(c, &input) {
		return
	}
	txn, outcome, err := h.svc.RecordLedgerEvent(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("transaction", txn, outcome))
}

func (h *api) adjustEvent(c *gin.Context) {
	referenceId, ok := idParam(c, "referenceId")
	if !ok {
		return
	}
	var input struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !bindJSON(c, &input) {
		return
	}
	outcome, err := h.svc.AdjustLedgerEvent(c.Request.Context(), referenceId, models.TransactionType(c.Param("type")), input.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cashier": outcome})
}

func (h *api) reverseEvent(c *gin.Context) {
	referenceId, ok := idParam(c, "referenceId")
	if !ok {
		return
	}
	outcome, err := h.svc.ReverseLedgerEvent(c.Request.Context(), referenceId, models.TransactionType(c.Param("type")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cashier": outcome})
}

type repairRequest struct {
	ReferenceId     int                    `json:"reference_id"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal        `json:"amount"`
	Notes           string                 `json:"notes"`
}

func (h *api) repairGap(c *gin.Context) {
	var input repairRequest
	if !bindJSON(c, &input) {
		return
	}
	txn, outcome, err := h.svc.RepairLedgerGap(c.Request.Context(), input.ReferenceId, input.TransactionType, input.Amount, input.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse("transaction", txn, outcome))
}

type ledgerCheckRequest struct {
	RepairBalance bool `json:"repair_balance"`
	DryRun        bool `json:"dry_run"`
}

func (h *api) runChecks(c *gin.Context) {
	var input ledgerCheckRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &input) {
		return
	}
	report, err := h.svc.RunLedgerChecks(c.Request.Context(), workflow.LedgerCheckOptions{
		RepairBalance: input.RepairBalance,
		DryRun:        input.DryRun,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *api) listReconciliationReports(c *gin.Context) {
	referenceId, ok := intQuery(c, "reference_id")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	filter := models.ReconciliationReportFilter{ReferenceId: referenceId}
	if raw := strings.TrimSpace(c.Query("check_type")); raw != "" {
		filter.CheckType = &raw
	}
	if limit != nil {
		filter.Limit = *limit
	}
	rows, err := models.ListReconciliationReports(c.Request.Context(), h.svc.DB(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *api) listSettings(c *gin.Context) {
	settings, err := h.svc.Settings().List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *api) getSetting(c *gin.Context) {
	key := c.Param("key")
	c.JSON(http.StatusOK, gin.H{"key": key, "value": h.svc.GetSetting(c.Request.Context(), key, nil)})
}

func (h *api) setSetting(c *gin.Context) {
	var input models.NewFinancialSetting
	if !bindJSON(c, &input) {
		return
	}
	setting, err := h.svc.SetSetting(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (h *api) deactivateSetting(c *gin.Context) {
	if err := h.svc.Settings().Deactivate(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *api) cashierTransactionsReport(c *gin.Context) {
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	var txnType *models.TransactionType
	if raw := strings.TrimSpace(c.Query("transaction_type")); raw != "" {
		t := models.TransactionType(raw)
		txnType = &t
	}
	report, err := h.reporter.GetCashierTransactionsReport(c.Request.Context(), from, to, txnType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *api) expensesReport(c *gin.Context) {
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	categoryId, ok := intQuery(c, "category_id")
	if !ok {
		return
	}
	report, err := h.reporter.GetExpensesReport(c.Request.Context(), from, to, categoryId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *api) profitLossReport(c *gin.Context) {
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	report, err := h.reporter.GetProfitAndLossReport(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
