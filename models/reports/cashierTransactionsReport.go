package reports

import (
	"context"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"github.com/shopspring/decimal"
)

type CashierTransactionsReport struct {
	Transactions []*models.CashierTransaction `json:"transactions"`
	TotalIncome  decimal.Decimal              `json:"total_income"`
	TotalExpense decimal.Decimal              `json:"total_expense"`
	NetMovement  decimal.Decimal              `json:"net_movement"`
	Balance      decimal.Decimal              `json:"current_balance"`
}

// GetCashierTransactionsReport lists cashier movements oldest first, with income and expense totals.
func (r *Reporter) GetCashierTransactionsReport(ctx context.Context, fromDate, toDate *time.Time, txnType *models.TransactionType) (*CashierTransactionsReport, error) {
	started := time.Now()
	from, to, err := dateRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	dbCtx := r.db.WithContext(ctx).Model(&models.CashierTransaction{})
	if from != nil {
		dbCtx = dbCtx.Where("transaction_date >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("transaction_date <= ?", *to)
	}
	if txnType != nil {
		dbCtx = dbCtx.Where("transaction_type = ?", *txnType)
	}

	var txns []*models.CashierTransaction
	if err := dbCtx.Order("transaction_date ASC").Order("id ASC").Find(&txns).Error; err != nil {
		return nil, err
	}

	report := &CashierTransactionsReport{
		Transactions: txns,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, t := range txns {
		switch t.TransactionType.Sign() {
		case 1:
			report.TotalIncome = report.TotalIncome.Add(t.Amount)
		case -1:
			report.TotalExpense = report.TotalExpense.Add(t.Amount)
		}
	}
	report.NetMovement = report.TotalIncome.Sub(report.TotalExpense)

	balance, err := models.NewGormLedgerStore().ReadBalance(ctx, r.db)
	if err != nil {
		return nil, err
	}
	report.Balance = balance.Balance

	r.logSlowReport(ctx, "CashierTransactions", started, map[string]any{"rows": len(txns)})
	return report, nil
}
