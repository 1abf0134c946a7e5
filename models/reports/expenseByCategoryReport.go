package reports

import (
	"context"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"github.com/shopspring/decimal"
)

type ExpenseByCategory struct {
	CategoryId int             `json:"category_id"`
	NameAr     string          `json:"name_ar"`
	NameEn     string          `json:"name_en"`
	Count      int             `json:"count"`
	Amount     decimal.Decimal `json:"amount"`
}

type ExpensesReport struct {
	Expenses   []*models.Expense    `json:"expenses"`
	ByCategory []*ExpenseByCategory `json:"by_category"`
	Total      decimal.Decimal      `json:"total"`
}

func (r *Reporter) GetExpensesReport(ctx context.Context, fromDate, toDate *time.Time, categoryId *int) (*ExpensesReport, error) {
	started := time.Now()
	from, to, err := dateRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	expenses, err := models.ListExpenses(ctx, r.db, models.ExpenseFilter{CategoryId: categoryId, FromDate: from, ToDate: to})
	if err != nil {
		return nil, err
	}
	categories, err := models.ListExpenseCategories(ctx, r.db)
	if err != nil {
		return nil, err
	}
	names := make(map[int]*models.ExpenseCategory, len(categories))
	for _, c := range categories {
		names[c.ID] = c
	}

	report := &ExpensesReport{Expenses: expenses, Total: decimal.Zero}
	byId := map[int]*ExpenseByCategory{}
	for _, e := range expenses {
		row, ok := byId[e.CategoryId]
		if !ok {
			row = &ExpenseByCategory{CategoryId: e.CategoryId, Amount: decimal.Zero}
			if c := names[e.CategoryId]; c != nil {
				row.NameAr, row.NameEn = c.NameAr, c.NameEn
			}
			byId[e.CategoryId] = row
			report.ByCategory = append(report.ByCategory, row)
		}
		row.Count++
		row.Amount = row.Amount.Add(e.Amount)
		report.Total = report.Total.Add(e.Amount)
	}

	r.logSlowReport(ctx, "Expenses", started, map[string]any{"rows": len(expenses)})
	return report, nil
}
