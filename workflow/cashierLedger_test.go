package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLedger() *CashierLedger {
	return NewCashierLedger(models.NewGormLedgerStore(), newTestLogger(), nil)
}

func ref(id int) *int {
	return &id
}

func TestTransactionTypeSign(t *testing.T) {
	cases := map[models.TransactionType]int64{
		models.TransactionTypeSaleRevenue:                   1,
		models.TransactionTypeRentalIncome:                  1,
		models.TransactionTypeDeposit:                       1,
		models.TransactionTypeExpensePayment:                -1,
		models.TransactionTypeSalespersonCommissionPayment:  -1,
		models.TransactionTypeSalesManagerCommissionPayment: -1,
		models.TransactionTypeWithdrawal:                    -1,
		models.TransactionTypeFinishingWorkExpense:          -1,
		"bonus_points":                                      0,
	}
	for txnType, sign := range cases {
		assert.Equal(t, sign, txnType.Sign(), string(txnType))
	}
}

func TestLedger_RecordAdjustReverse(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()
	ctx := testContext()

	err := db.Transaction(func(tx *gorm.DB) error {
		res, err := ledger.Record(ctx, tx, LedgerEntry{Type: models.TransactionTypeSaleRevenue, Amount: dec("5000"), ReferenceId: ref(1)})
		require.NoError(t, err)
		assertDecimal(t, "5000", res.Balance)

		res, err = ledger.Record(ctx, tx, LedgerEntry{Type: models.TransactionTypeExpensePayment, Amount: dec("1200.50"), ReferenceId: ref(1)})
		require.NoError(t, err)
		assertDecimal(t, "3799.5", res.Balance)

		res, err = ledger.Adjust(ctx, tx, 1, models.TransactionTypeExpensePayment, LedgerAdjustment{Amount: dec("200.50")})
		require.NoError(t, err)
		assert.Nil(t, res.Gap)
		assertDecimal(t, "4799.5", res.Balance)

		res, err = ledger.Reverse(ctx, tx, 1, models.TransactionTypeSaleRevenue)
		require.NoError(t, err)
		assertDecimal(t, "-200.5", res.Balance)
		return nil
	})
	require.NoError(t, err)

	assert.Nil(t, findTransaction(t, db, 1, models.TransactionTypeSaleRevenue))
	expense := findTransaction(t, db, 1, models.TransactionTypeExpensePayment)
	require.NotNil(t, expense)
	assertDecimal(t, "200.5", expense.Amount)
	assertLedgerInvariant(t, db)
}

func TestLedger_NegativeAmountKeepsItsSign(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		res, err := ledger.Record(testContext(), tx, LedgerEntry{Type: models.TransactionTypeSaleRevenue, Amount: dec("-11000"), ReferenceId: ref(9)})
		require.NoError(t, err)
		assertDecimal(t, "-11000", res.Balance)
		return nil
	}))
	assertLedgerInvariant(t, db)
}

func TestLedger_UnknownTypeIsStoredWithoutImpact(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Record(testContext(), tx, LedgerEntry{Type: models.TransactionTypeDeposit, Amount: dec("100")})
		require.NoError(t, err)
		res, err := ledger.Record(testContext(), tx, LedgerEntry{Type: "bonus_points", Amount: dec("999"), ReferenceId: ref(3)})
		require.NoError(t, err)
		assertDecimal(t, "100", res.Balance)
		return nil
	}))

	assert.NotNil(t, findTransaction(t, db, 3, "bonus_points"))
	assertLedgerInvariant(t, db)
}

func TestLedger_DuplicateReferenceIsConflict(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.Record(testContext(), tx, LedgerEntry{Type: models.TransactionTypeRentalIncome, Amount: dec("10"), ReferenceId: ref(4)}); err != nil {
			return err
		}
		_, err := ledger.Record(testContext(), tx, LedgerEntry{Type: models.TransactionTypeRentalIncome, Amount: dec("10"), ReferenceId: ref(4)})
		return err
	})
	assert.True(t, utils.IsConflict(err))
}

func TestLedger_AdjustCarriesDate(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()
	ctx := testContext()
	booked := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	moved := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Record(ctx, tx, LedgerEntry{Type: models.TransactionTypeRentalIncome, Amount: dec("3000"), ReferenceId: ref(5), Date: booked})
		require.NoError(t, err)

		res, err := ledger.Adjust(ctx, tx, 5, models.TransactionTypeRentalIncome, LedgerAdjustment{Amount: dec("3000"), Date: moved})
		require.NoError(t, err)
		assertDecimal(t, "3000", res.Balance)

		// a zero date keeps the stored one
		_, err = ledger.Adjust(ctx, tx, 5, models.TransactionTypeRentalIncome, LedgerAdjustment{Amount: dec("2500")})
		require.NoError(t, err)
		return nil
	}))

	txn := findTransaction(t, db, 5, models.TransactionTypeRentalIncome)
	require.NotNil(t, txn)
	assertDecimal(t, "2500", txn.Amount)
	assert.True(t, moved.Equal(txn.TransactionDate), txn.TransactionDate)
	assertLedgerInvariant(t, db)
}

func TestLedger_MissingTransactionIsGap(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()
	ctx := testContext()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Record(ctx, tx, LedgerEntry{Type: models.TransactionTypeDeposit, Amount: dec("500")})
		require.NoError(t, err)

		res, err := ledger.Adjust(ctx, tx, 42, models.TransactionTypeExpensePayment, LedgerAdjustment{Amount: dec("10")})
		require.NoError(t, err)
		require.NotNil(t, res.Gap)
		assert.Equal(t, "update", res.Gap.Step)
		assert.ErrorIs(t, res.Gap, utils.ErrReconciliationGap)
		assertDecimal(t, "500", res.Balance)

		res, err = ledger.Reverse(ctx, tx, 42, models.TransactionTypeExpensePayment)
		require.NoError(t, err)
		require.NotNil(t, res.Gap)
		assert.Equal(t, "delete", res.Gap.Step)
		assertDecimal(t, "500", res.Balance)
		return nil
	}))

	assert.Equal(t, int64(2), countReports(t, db, models.CheckTypeMissingTransaction))
	reports, err := models.ListReconciliationReports(context.Background(), db, models.ReconciliationReportFilter{ReferenceId: ref(42)})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "test-correlation", reports[0].CorrelationId)
	assertLedgerInvariant(t, db)
}

func TestLedger_RepairGap(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		res, err := ledger.RepairGap(testContext(), tx, 11, models.TransactionTypeExpensePayment, dec("75"), 7, "restored")
		require.NoError(t, err)
		assertDecimal(t, "-75", res.Balance)
		return nil
	}))
	assert.Equal(t, int64(1), countReports(t, db, models.CheckTypeGapRepaired))
	assertLedgerInvariant(t, db)
}

func TestLedger_AuditFindsAndRepairsDrift(t *testing.T) {
	db := newTestDB(t)
	ledger := newTestLedger()
	ctx := testContext()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Record(ctx, tx, LedgerEntry{Type: models.TransactionTypeDeposit, Amount: dec("1000")})
		return err
	}))
	require.NoError(t, db.Model(&models.CashierBalance{}).Where("balance_key = ?", models.MainCashierKey).Update("balance", dec("1250")).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		audit, err := ledger.Audit(ctx, tx, false)
		require.NoError(t, err)
		assert.False(t, audit.Consistent())
		assertDecimal(t, "250", audit.Drift)
		assert.False(t, audit.Repaired)
		return nil
	}))
	assert.Equal(t, int64(1), countReports(t, db, models.CheckTypeBalanceDrift))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		audit, err := ledger.Audit(ctx, tx, true)
		require.NoError(t, err)
		assert.True(t, audit.Repaired)
		return nil
	}))
	assertLedgerInvariant(t, db)
}

func TestService_ConcurrentDepositsKeepInvariant(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testContext()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%4 == 0 {
				_, _, err = svc.Withdraw(ctx, &NewCashMovement{Amount: dec("10")})
			} else {
				_, _, err = svc.Deposit(ctx, &NewCashMovement{Amount: dec("25.25")})
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 15 deposits of 25.25 and 5 withdrawals of 10
	assertDecimal(t, "328.75", currentBalance(t, svc))
	assertLedgerInvariant(t, db)
}

func TestService_DepositRejectsNonPositiveAmounts(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Deposit(testContext(), &NewCashMovement{Amount: dec("0")})
	assert.True(t, utils.IsValidation(err))
	_, _, err = svc.Withdraw(testContext(), &NewCashMovement{Amount: dec("-5")})
	assert.True(t, utils.IsValidation(err))
}

func TestService_LedgerEventsRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := testContext()

	_, out, err := svc.RecordLedgerEvent(ctx, &NewLedgerEvent{TransactionType: models.TransactionTypeRentalIncome, Amount: dec("800"), ReferenceId: ref(5)})
	require.NoError(t, err)
	assertDecimal(t, "800", out.Balance)

	out, err = svc.AdjustLedgerEvent(ctx, 5, models.TransactionTypeRentalIncome, dec("900"))
	require.NoError(t, err)
	assertDecimal(t, "900", out.Balance)

	out, err = svc.ReverseLedgerEvent(ctx, 5, models.TransactionTypeRentalIncome)
	require.NoError(t, err)
	assert.Empty(t, out.Gaps)
	assertDecimal(t, "0", out.Balance)

	out, err = svc.ReverseLedgerEvent(ctx, 5, models.TransactionTypeRentalIncome)
	require.NoError(t, err)
	require.Len(t, out.Gaps, 1)
	assertLedgerInvariant(t, db)
}
