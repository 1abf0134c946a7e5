package reports

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64

func newTestReporter(t *testing.T) (*Reporter, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:reports_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.MigrateTable(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewReporter(db, logger, nil), db
}

func day(v string) time.Time {
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func seedActivity(t *testing.T, db *gorm.DB) *models.ExpenseCategory {
	t.Helper()
	category := &models.ExpenseCategory{NameAr: "صيانة", NameEn: "Maintenance"}
	require.NoError(t, db.Create(category).Error)

	rows := []any{
		&models.Sale{UnitId: 1, ClientName: "a", SaleDate: day("2024-03-05"), SalePrice: decimal.NewFromInt(100000), NetCompanyRevenue: decimal.RequireFromString("5000")},
		&models.Sale{UnitId: 2, ClientName: "b", SaleDate: day("2024-04-10"), SalePrice: decimal.NewFromInt(50000), NetCompanyRevenue: decimal.RequireFromString("2500")},
		&models.RentalPayment{RentalId: 1, PaymentDate: day("2024-03-20"), Amount: decimal.RequireFromString("1200.50")},
		&models.Expense{DescriptionAr: "x", Amount: decimal.RequireFromString("300"), ExpenseDate: day("2024-03-31"), CategoryId: category.ID},
		&models.Expense{DescriptionAr: "y", Amount: decimal.RequireFromString("200.25"), ExpenseDate: day("2024-03-02"), CategoryId: category.ID},
		&models.FinishingWorkExpense{FinishingWorkId: 1, DescriptionAr: "z", Amount: decimal.RequireFromString("1000"), ExpenseDate: day("2024-03-15")},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}
	return category
}

func TestProfitAndLossReport(t *testing.T) {
	reporter, db := newTestReporter(t)
	seedActivity(t, db)
	ctx := context.Background()

	march, err := reporter.GetProfitAndLossReport(ctx, ptr(day("2024-03-01")), ptr(day("2024-03-31")))
	require.NoError(t, err)
	requireDecimal(t, "5000", march.SalesRevenue)
	requireDecimal(t, "1200.5", march.RentalRevenue)
	requireDecimal(t, "500.25", march.GeneralExpenses)
	requireDecimal(t, "1000", march.FinishingWorkExpenses)
	requireDecimal(t, "4700.25", march.NetProfit)

	all, err := reporter.GetProfitAndLossReport(ctx, nil, nil)
	require.NoError(t, err)
	requireDecimal(t, "8700.5", all.TotalRevenue)

	_, err = reporter.GetProfitAndLossReport(ctx, ptr(day("2024-04-01")), ptr(day("2024-03-01")))
	assert.True(t, utils.IsValidation(err))
}

func TestExpensesReportGroupsByCategory(t *testing.T) {
	reporter, db := newTestReporter(t)
	category := seedActivity(t, db)

	report, err := reporter.GetExpensesReport(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	requireDecimal(t, "500.25", report.Total)
	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, category.ID, report.ByCategory[0].CategoryId)
	assert.Equal(t, "Maintenance", report.ByCategory[0].NameEn)
	assert.Equal(t, 2, report.ByCategory[0].Count)
}

func TestCashierTransactionsReport(t *testing.T) {
	reporter, db := newTestReporter(t)
	ctx := context.Background()
	_, err := models.EnsureCashierBalance(ctx, db)
	require.NoError(t, err)

	txns := []*models.CashierTransaction{
		{TransactionDate: day("2024-03-02"), Amount: decimal.NewFromInt(5000), TransactionType: models.TransactionTypeSaleRevenue, ReferenceId: ptr(1)},
		{TransactionDate: day("2024-03-01"), Amount: decimal.NewFromInt(700), TransactionType: models.TransactionTypeExpensePayment, ReferenceId: ptr(1)},
		{TransactionDate: day("2024-03-03"), Amount: decimal.NewFromInt(50), TransactionType: "legacy_adjustment"},
	}
	for _, txn := range txns {
		require.NoError(t, db.Create(txn).Error)
	}

	report, err := reporter.GetCashierTransactionsReport(ctx, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, report.Transactions, 3)
	assert.Equal(t, models.TransactionTypeExpensePayment, report.Transactions[0].TransactionType)
	requireDecimal(t, "5000", report.TotalIncome)
	requireDecimal(t, "700", report.TotalExpense)
	requireDecimal(t, "4300", report.NetMovement)

	saleType := models.TransactionTypeSaleRevenue
	filtered, err := reporter.GetCashierTransactionsReport(ctx, nil, nil, &saleType)
	require.NoError(t, err)
	assert.Len(t, filtered.Transactions, 1)
}
