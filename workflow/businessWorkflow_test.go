package workflow

import (
	"context"
	"testing"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createCategory(t *testing.T, db *gorm.DB) *models.ExpenseCategory {
	t.Helper()
	category := &models.ExpenseCategory{NameAr: "صيانة", NameEn: "Maintenance"}
	require.NoError(t, db.Create(category).Error)
	return category
}

func newExpenseInput(categoryId int, amount string) *models.NewExpense {
	return &models.NewExpense{
		DescriptionAr: "إصلاح مصعد",
		DescriptionEn: "Elevator repair",
		Amount:        dec(amount),
		ExpenseDate:   "2024-04-10",
		CategoryId:    categoryId,
	}
}

func newRentalInput(unitId int) *models.NewRental {
	return &models.NewRental{
		UnitId:           unitId,
		TenantName:       "Tenant",
		StartDate:        "2024-01-01",
		EndDate:          "2024-12-31",
		RentAmount:       dec("3000"),
		PaymentFrequency: models.PaymentFrequencyMonthly,
	}
}

func TestExpense_Lifecycle(t *testing.T) {
	svc, db := newTestService(t)
	category := createCategory(t, db)
	ctx := testContext()

	expense, out, err := svc.CreateExpense(ctx, newExpenseInput(category.ID, "1500.255"))
	require.NoError(t, err)
	assertDecimal(t, "1500.26", expense.Amount)
	assertDecimal(t, "-1500.26", out.Balance)

	expense, out, err = svc.UpdateExpense(ctx, expense.ID, newExpenseInput(category.ID, "1000"))
	require.NoError(t, err)
	assertDecimal(t, "-1000", out.Balance)

	_, out, err = svc.DeleteExpense(ctx, expense.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", out.Balance)
	assertLedgerInvariant(t, db)
}

func TestExpense_Validation(t *testing.T) {
	svc, db := newTestService(t)
	category := createCategory(t, db)
	ctx := testContext()

	_, _, err := svc.CreateExpense(ctx, newExpenseInput(category.ID, "0"))
	assert.True(t, utils.IsValidation(err))

	_, _, err = svc.CreateExpense(ctx, newExpenseInput(category.ID+100, "10"))
	assert.True(t, utils.IsNotFound(err))

	_, _, err = svc.DeleteExpense(ctx, 12345)
	assert.True(t, utils.IsNotFound(err))

	assertDecimal(t, "0", currentBalance(t, svc))
}

func TestRental_UnitStatusAndPayments(t *testing.T) {
	svc, db := newTestService(t)
	unit := createUnit(t, db, "R-1", "شقة")
	ctx := testContext()

	rental, err := svc.CreateRental(ctx, newRentalInput(unit.ID))
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusRented, reloadUnit(t, db, unit.ID).Status)

	payment, out, err := svc.AddRentalPayment(ctx, rental.ID, &models.NewRentalPayment{PaymentDate: "2024-02-01", Amount: dec("3000")})
	require.NoError(t, err)
	assert.Equal(t, models.RentalPaymentStatusPaid, payment.Status)
	assertDecimal(t, "3000", out.Balance)

	_, out, err = svc.AddRentalPayment(ctx, rental.ID, &models.NewRentalPayment{PaymentDate: "2024-03-01", Amount: dec("3000")})
	require.NoError(t, err)
	assertDecimal(t, "6000", out.Balance)

	_, out, err = svc.UpdateRentalPayment(ctx, payment.ID, &models.NewRentalPayment{PaymentDate: "2024-02-01", Amount: dec("2500")})
	require.NoError(t, err)
	assertDecimal(t, "5500", out.Balance)

	_, out, err = svc.DeleteRentalPayment(ctx, payment.ID)
	require.NoError(t, err)
	assertDecimal(t, "3000", out.Balance)

	_, out, err = svc.DeleteRental(ctx, rental.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", out.Balance)
	assert.Empty(t, out.Gaps)
	assert.Equal(t, models.UnitStatusAvailable, reloadUnit(t, db, unit.ID).Status)

	payments, err := models.ListRentalPayments(context.Background(), db, rental.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assertLedgerInvariant(t, db)
}

func TestRental_RejectsSoldUnitAndBadPeriod(t *testing.T) {
	svc, db := newTestService(t)
	seedFivePercentCompanyRule(t, db)
	sold := createUnit(t, db, "R-2", "شقة")
	free := createUnit(t, db, "R-3", "شقة")
	ctx := testContext()

	_, _, err := svc.CreateSale(ctx, newSaleInput(sold.ID, "100000"))
	require.NoError(t, err)

	_, err = svc.CreateRental(ctx, newRentalInput(sold.ID))
	assert.True(t, utils.IsConflict(err))

	backwards := newRentalInput(free.ID)
	backwards.EndDate = "2023-12-31"
	_, err = svc.CreateRental(ctx, backwards)
	assert.True(t, utils.IsValidation(err))
	assert.Equal(t, models.UnitStatusAvailable, reloadUnit(t, db, free.ID).Status)
}

func TestRental_UpdateMovesUnit(t *testing.T) {
	svc, db := newTestService(t)
	first := createUnit(t, db, "R-4", "شقة")
	second := createUnit(t, db, "R-5", "شقة")
	ctx := testContext()

	rental, err := svc.CreateRental(ctx, newRentalInput(first.ID))
	require.NoError(t, err)

	_, err = svc.UpdateRental(ctx, rental.ID, newRentalInput(second.ID))
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusAvailable, reloadUnit(t, db, first.ID).Status)
	assert.Equal(t, models.UnitStatusRented, reloadUnit(t, db, second.ID).Status)
}

func TestFinishingWork_ExpensesTrackActualCost(t *testing.T) {
	svc, db := newTestService(t)
	unit := createUnit(t, db, "F-1", "شقة")
	ctx := testContext()

	work, err := svc.CreateFinishingWork(ctx, &models.NewFinishingWork{
		UnitId:        unit.ID,
		ProjectNameAr: "تشطيب",
		StartDate:     "2024-05-01",
		Budget:        dec("50000"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.FinishingWorkStatusInProgress, work.Status)

	paint, out, err := svc.AddFinishingWorkExpense(ctx, work.ID, &models.NewFinishingWorkExpense{
		DescriptionAr: "دهان", Amount: dec("8000"), ExpenseDate: "2024-05-03",
	})
	require.NoError(t, err)
	assertDecimal(t, "-8000", out.Balance)

	_, out, err = svc.AddFinishingWorkExpense(ctx, work.ID, &models.NewFinishingWorkExpense{
		DescriptionAr: "أرضيات", Amount: dec("12000"), ExpenseDate: "2024-05-04",
	})
	require.NoError(t, err)
	assertDecimal(t, "-20000", out.Balance)

	_, out, err = svc.UpdateFinishingWorkExpense(ctx, paint.ID, &models.NewFinishingWorkExpense{
		DescriptionAr: "دهان", Amount: dec("9000"), ExpenseDate: "2024-05-03",
	})
	require.NoError(t, err)
	assertDecimal(t, "-21000", out.Balance)

	stored, err := models.GetFinishingWork(context.Background(), db, work.ID)
	require.NoError(t, err)
	assertDecimal(t, "21000", stored.ActualCost)
	assertDecimal(t, "29000", stored.RemainingBudget())

	_, _, err = svc.DeleteFinishingWorkExpense(ctx, paint.ID)
	require.NoError(t, err)
	stored, err = models.GetFinishingWork(context.Background(), db, work.ID)
	require.NoError(t, err)
	assertDecimal(t, "12000", stored.ActualCost)

	_, out, err = svc.DeleteFinishingWork(ctx, work.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", out.Balance)
	assertLedgerInvariant(t, db)
}

func TestFinishingWork_RequiresUnit(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateFinishingWork(testContext(), &models.NewFinishingWork{
		UnitId: 404, ProjectNameAr: "تشطيب", StartDate: "2024-05-01", Budget: dec("1"),
	})
	assert.True(t, utils.IsNotFound(err))
}

func TestLedgerInvariant_AcrossMixedOperations(t *testing.T) {
	svc, db := newTestService(t)
	seedFivePercentCompanyRule(t, db)
	category := createCategory(t, db)
	saleUnit := createUnit(t, db, "X-1", "شقة")
	rentUnit := createUnit(t, db, "X-2", "فيلا")
	ctx := testContext()

	input := newSaleInput(saleUnit.ID, "250000")
	input.SalespersonId = ref(2)
	sale, _, err := svc.CreateSale(ctx, input)
	require.NoError(t, err)
	_, _, err = svc.PayCommission(ctx, sale.ID, models.CommissionTargetSalesperson)
	require.NoError(t, err)

	expense, _, err := svc.CreateExpense(ctx, newExpenseInput(category.ID, "320.40"))
	require.NoError(t, err)

	rental, err := svc.CreateRental(ctx, newRentalInput(rentUnit.ID))
	require.NoError(t, err)
	_, _, err = svc.AddRentalPayment(ctx, rental.ID, &models.NewRentalPayment{PaymentDate: "2024-02-01", Amount: dec("3000")})
	require.NoError(t, err)

	_, _, err = svc.Deposit(ctx, &NewCashMovement{Amount: dec("1000")})
	require.NoError(t, err)
	_, _, err = svc.Withdraw(ctx, &NewCashMovement{Amount: dec("250.60")})
	require.NoError(t, err)

	// 12500 - 2500 - 320.40 + 3000 + 1000 - 250.60
	assertDecimal(t, "13429", currentBalance(t, svc))
	assertLedgerInvariant(t, db)

	_, _, err = svc.DeleteExpense(ctx, expense.ID)
	require.NoError(t, err)
	_, _, err = svc.DeleteSale(ctx, sale.ID)
	require.NoError(t, err)
	assertDecimal(t, "3749.4", currentBalance(t, svc))
	assertLedgerInvariant(t, db)
}
