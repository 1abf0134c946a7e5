package reports

import (
	"context"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProfitAndLossReport struct {
	SalesRevenue          decimal.Decimal `json:"sales_revenue"`
	RentalRevenue         decimal.Decimal `json:"rental_revenue"`
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	GeneralExpenses       decimal.Decimal `json:"general_expenses"`
	FinishingWorkExpenses decimal.Decimal `json:"finishing_work_expenses"`
	TotalExpenses         decimal.Decimal `json:"total_expenses"`
	NetProfit             decimal.Decimal `json:"net_profit"`
}

func sumColumn(db *gorm.DB, model any, column string, dateColumn string, from, to *time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	q := db.Model(model).Select("SUM(" + column + ") AS total")
	if from != nil {
		q = q.Where(dateColumn+" >= ?", *from)
	}
	if to != nil {
		q = q.Where(dateColumn+" <= ?", *to)
	}
	if err := q.Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return utils.RoundMoney(row.Total.Decimal), nil
}

// GetProfitAndLossReport: revenue is sale net revenue plus rental payments,
// expenses are general expenses plus finishing-work expenses.
func (r *Reporter) GetProfitAndLossReport(ctx context.Context, fromDate, toDate *time.Time) (*ProfitAndLossReport, error) {
	started := time.Now()
	from, to, err := dateRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	cacheKey := "Report:ProfitAndLoss:" + rangeKey(fromDate, toDate)
	var cached ProfitAndLossReport
	if cacheGet(ctx, r, cacheKey, &cached) {
		return &cached, nil
	}

	db := r.db.WithContext(ctx)
	report := &ProfitAndLossReport{}
	if report.SalesRevenue, err = sumColumn(db, &models.Sale{}, "net_company_revenue", "sale_date", from, to); err != nil {
		return nil, err
	}
	if report.RentalRevenue, err = sumColumn(db, &models.RentalPayment{}, "amount", "payment_date", from, to); err != nil {
		return nil, err
	}
	if report.GeneralExpenses, err = sumColumn(db, &models.Expense{}, "amount", "expense_date", from, to); err != nil {
		return nil, err
	}
	if report.FinishingWorkExpenses, err = sumColumn(db, &models.FinishingWorkExpense{}, "amount", "expense_date", from, to); err != nil {
		return nil, err
	}
	report.TotalRevenue = report.SalesRevenue.Add(report.RentalRevenue)
	report.TotalExpenses = report.GeneralExpenses.Add(report.FinishingWorkExpenses)
	report.NetProfit = report.TotalRevenue.Sub(report.TotalExpenses)

	r.cacheSet(ctx, cacheKey, report)
	r.logSlowReport(ctx, "ProfitAndLoss", started, nil)
	return report, nil
}
