package workflow

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

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

var testDBSeq int64

// newTestDB opens a private in-memory sqlite database with the full schema.
// One connection keeps every transaction serialized, like the row lock does on MySQL.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:workflow_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.MigrateTable(db))
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := newTestLogger()
	return NewService(db, logger, models.NewSettingsStore(db, logger, nil)), db
}

func testContext() context.Context {
	ctx := utils.SetUserIdInContext(context.Background(), 7)
	return utils.SetCorrelationIdInContext(ctx, "test-correlation")
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual.String(), msgAndArgs)
}

func percentRule(nameEn string, ruleType models.RuleType, value string, order int, target *models.CommissionTarget) models.NewCalculationRule {
	return models.NewCalculationRule{
		NameAr:           nameEn,
		NameEn:           nameEn,
		RuleType:         ruleType,
		CalculationType:  models.CalculationTypePercentage,
		Value:            dec(value),
		AppliesTo:        models.ScopeSales,
		CommissionTarget: target,
		OrderIndex:       order,
	}
}

func targetOf(t models.CommissionTarget) *models.CommissionTarget {
	return &t
}

func seedRules(t *testing.T, db *gorm.DB, rules ...models.NewCalculationRule) []*models.CalculationRule {
	t.Helper()
	out := make([]*models.CalculationRule, 0, len(rules))
	for i := range rules {
		rule, err := models.CreateCalculationRule(context.Background(), db, &rules[i])
		require.NoError(t, err)
		out = append(out, rule)
	}
	return out
}

// seedFivePercentCompanyRule makes every sale's net revenue 5% of its price.
func seedFivePercentCompanyRule(t *testing.T, db *gorm.DB) {
	t.Helper()
	seedRules(t, db,
		percentRule("Company Commission", models.RuleTypeCommission, "5", 1, targetOf(models.CommissionTargetCompany)),
		percentRule("Salesperson Commission", models.RuleTypeCommission, "1", 2, targetOf(models.CommissionTargetSalesperson)),
		percentRule("Sales Manager Commission", models.RuleTypeCommission, "0.5", 3, targetOf(models.CommissionTargetSalesManager)),
	)
}

func createUnit(t *testing.T, db *gorm.DB, code string, unitType string) *models.Unit {
	t.Helper()
	unit, err := models.CreateUnit(context.Background(), db, &models.NewUnit{
		Code:     code,
		UnitType: unitType,
		Price:    dec("100000"),
	})
	require.NoError(t, err)
	return unit
}

func reloadUnit(t *testing.T, db *gorm.DB, id int) *models.Unit {
	t.Helper()
	unit, err := models.GetUnit(context.Background(), db, id)
	require.NoError(t, err)
	return unit
}

func currentBalance(t *testing.T, svc *Service) decimal.Decimal {
	t.Helper()
	balance, err := svc.GetCurrentBalance(context.Background())
	require.NoError(t, err)
	return balance
}

// assertLedgerInvariant checks balance == sum of signed transactions.
func assertLedgerInvariant(t *testing.T, db *gorm.DB) {
	t.Helper()
	store := models.NewGormLedgerStore()
	balance, err := store.ReadBalance(context.Background(), db)
	require.NoError(t, err)
	sum, err := store.SumSignedTransactions(context.Background(), db)
	require.NoError(t, err)
	assert.Truef(t, balance.Balance.Equal(sum), "balance %s != signed sum %s", balance.Balance, sum)
}

func findTransaction(t *testing.T, db *gorm.DB, ref int, txnType models.TransactionType) *models.CashierTransaction {
	t.Helper()
	txn, err := models.NewGormLedgerStore().FindTransaction(context.Background(), db, ref, txnType)
	require.NoError(t, err)
	return txn
}

func countReports(t *testing.T, db *gorm.DB, checkType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.ReconciliationReport{}).Where("check_type = ?", checkType).Count(&count).Error)
	return count
}

func newSaleInput(unitId int, price string) *models.NewSale {
	return &models.NewSale{
		UnitId:     unitId,
		ClientName: "Client",
		SaleDate:   "2024-03-01",
		SalePrice:  dec(price),
	}
}
