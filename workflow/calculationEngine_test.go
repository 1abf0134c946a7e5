package workflow

import (
	"context"
	"testing"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_CommissionMinusVatScenario(t *testing.T) {
	db := newTestDB(t)
	seedRules(t, db,
		percentRule("Company Commission", models.RuleTypeCommission, "3", 1, targetOf(models.CommissionTargetCompany)),
		percentRule("Salesperson Commission", models.RuleTypeCommission, "1", 2, targetOf(models.CommissionTargetSalesperson)),
		percentRule("VAT Tax", models.RuleTypeTax, "14", 4, nil),
	)

	b, err := NewRuleEngine(nil).Evaluate(context.Background(), db, models.ScopeSales, dec("100000"), CalculationContext{UnitType: "شقة"})
	require.NoError(t, err)

	require.Len(t, b.AppliedRules, 3)
	assertDecimal(t, "3000", b.Totals.CompanyCommission)
	assertDecimal(t, "1000", b.Totals.SalespersonCommission)
	assertDecimal(t, "0", b.Totals.SalesManagerCommission)
	assertDecimal(t, "14000", b.Totals.TotalTaxes)
	assertDecimal(t, "-11000", b.Totals.NetCompanyRevenue)
	for _, line := range b.AppliedRules {
		assertDecimal(t, "100000", line.BaseAmount, line.NameEn)
	}
	assert.False(t, b.Chaining)
	assert.Equal(t, models.CalculationStrategyRules, b.Strategy)
}

func TestEvaluate_NoRulesYieldsZeroBreakdown(t *testing.T) {
	db := newTestDB(t)

	b, err := NewRuleEngine(nil).Evaluate(context.Background(), db, models.ScopeSales, dec("250000"), CalculationContext{})
	require.NoError(t, err)

	assert.Empty(t, b.AppliedRules)
	assert.True(t, b.Totals.NetCompanyRevenue.IsZero())
	assert.True(t, b.Totals.CompanyCommission.IsZero())
}

func TestEvaluate_RejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	engine := NewRuleEngine(nil)

	_, err := engine.Evaluate(context.Background(), db, models.ScopeSales, dec("-1"), CalculationContext{})
	assert.True(t, utils.IsValidation(err))

	_, err = engine.Evaluate(context.Background(), db, " ", dec("1"), CalculationContext{})
	assert.True(t, utils.IsValidation(err))
}

func TestEvaluate_UnitTypeFilter(t *testing.T) {
	db := newTestDB(t)
	medicalOnly := percentRule("Medical Fee", models.RuleTypeFee, "2", 2, nil)
	medicalOnly.UnitTypeFilter = models.UnitTypeFilter{"طبي"}
	seedRules(t, db,
		percentRule("Company Commission", models.RuleTypeCommission, "3", 1, targetOf(models.CommissionTargetCompany)),
		medicalOnly,
	)
	engine := NewRuleEngine(nil)

	medical, err := engine.Evaluate(context.Background(), db, models.ScopeSales, dec("1000"), CalculationContext{UnitType: "طبي"})
	require.NoError(t, err)
	require.Len(t, medical.AppliedRules, 2)
	assertDecimal(t, "20", medical.Totals.TotalFees)
	assertDecimal(t, "10", medical.Totals.NetCompanyRevenue)

	apartment, err := engine.Evaluate(context.Background(), db, models.ScopeSales, dec("1000"), CalculationContext{UnitType: "شقة"})
	require.NoError(t, err)
	require.Len(t, apartment.AppliedRules, 1)
	assert.True(t, apartment.Totals.TotalFees.IsZero())
}

func TestEvaluate_SkipsInactiveAndOtherScopes(t *testing.T) {
	db := newTestDB(t)
	inactive := percentRule("Old Fee", models.RuleTypeFee, "50", 1, nil)
	inactive.IsActive = utils.NewFalse()
	rentals := percentRule("Rental Fee", models.RuleTypeFee, "10", 1, nil)
	rentals.AppliesTo = "rentals"
	seedRules(t, db,
		inactive,
		rentals,
		percentRule("Company Commission", models.RuleTypeCommission, "3", 2, targetOf(models.CommissionTargetCompany)),
	)

	b, err := NewRuleEngine(nil).Evaluate(context.Background(), db, models.ScopeSales, dec("1000"), CalculationContext{})
	require.NoError(t, err)

	require.Len(t, b.AppliedRules, 1)
	assert.Equal(t, "Company Commission", b.AppliedRules[0].NameEn)
}

func TestEvaluate_OrderIsOrderIndexThenId(t *testing.T) {
	db := newTestDB(t)
	seeded := seedRules(t, db,
		percentRule("Second", models.RuleTypeTax, "1", 5, nil),
		percentRule("Third", models.RuleTypeTax, "1", 5, nil),
		percentRule("First", models.RuleTypeCommission, "3", 1, nil),
	)
	require.Len(t, seeded, 3)
	engine := NewRuleEngine(nil)

	first, err := engine.Evaluate(context.Background(), db, models.ScopeSales, dec("1234.56"), CalculationContext{})
	require.NoError(t, err)
	second, err := engine.Evaluate(context.Background(), db, models.ScopeSales, dec("1234.56"), CalculationContext{})
	require.NoError(t, err)

	names := []string{}
	for _, line := range first.AppliedRules {
		names = append(names, line.NameEn)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, names)

	firstDoc, err := first.Encode()
	require.NoError(t, err)
	secondDoc, err := second.Encode()
	require.NoError(t, err)
	assert.Equal(t, firstDoc, secondDoc)
}

func TestEvaluate_FixedAmountIgnoresBase(t *testing.T) {
	db := newTestDB(t)
	seedRules(t, db, models.NewCalculationRule{
		NameAr:          "رسوم تسجيل",
		NameEn:          "Registration Fee",
		RuleType:        models.RuleTypeFee,
		CalculationType: models.CalculationTypeFixedAmount,
		Value:           dec("750"),
		AppliesTo:       models.ScopeSales,
	})
	engine := NewRuleEngine(nil)

	for _, base := range []string{"0", "1000", "9999999"} {
		b, err := engine.Evaluate(context.Background(), db, models.ScopeSales, dec(base), CalculationContext{})
		require.NoError(t, err)
		assertDecimal(t, "750", b.Totals.TotalFees, base)
		assertDecimal(t, "-750", b.Totals.NetCompanyRevenue, base)
	}
}

func TestEvaluate_ChainingReducesRunningBase(t *testing.T) {
	db := newTestDB(t)
	seedRules(t, db,
		percentRule("Company Commission", models.RuleTypeCommission, "10", 1, targetOf(models.CommissionTargetCompany)),
		percentRule("VAT Tax", models.RuleTypeTax, "10", 2, nil),
		models.NewCalculationRule{
			NameAr: "خصم", NameEn: "Loyalty Discount", RuleType: models.RuleTypeDiscount,
			CalculationType: models.CalculationTypeFixedAmount, Value: dec("10"), AppliesTo: models.ScopeSales, OrderIndex: 3,
		},
		percentRule("Sales Tax", models.RuleTypeTax, "10", 4, nil),
	)
	_, err := models.SaveCalculationScope(context.Background(), db, &models.NewCalculationScope{Scope: models.ScopeSales, Chaining: true})
	require.NoError(t, err)

	b, err := NewRuleEngine(nil).Evaluate(context.Background(), db, models.ScopeSales, dec("1000"), CalculationContext{})
	require.NoError(t, err)

	require.True(t, b.Chaining)
	require.Len(t, b.AppliedRules, 4)
	// 1000 -> commission 100 -> 900 -> vat 90 -> 810 -> discount +10 -> 820 -> sales tax 82
	assertDecimal(t, "1000", b.AppliedRules[0].BaseAmount)
	assertDecimal(t, "900", b.AppliedRules[1].BaseAmount)
	assertDecimal(t, "820", b.AppliedRules[3].BaseAmount)
	assertDecimal(t, "172", b.Totals.TotalTaxes)
	assertDecimal(t, "10", b.Totals.TotalDiscounts)
	assertDecimal(t, "-62", b.Totals.NetCompanyRevenue)
}

func TestEvaluate_UntargetedCommissionUsesNameKeywords(t *testing.T) {
	db := newTestDB(t)
	seedRules(t, db,
		models.NewCalculationRule{
			NameAr: "عمولة البائع", NameEn: "Agent cut", RuleType: models.RuleTypeCommission,
			CalculationType: models.CalculationTypePercentage, Value: dec("1"), AppliesTo: models.ScopeSales,
		},
	)
	// force the stored target empty, as on rows that predate the column
	require.NoError(t, db.Model(&models.CalculationRule{}).Where("1 = 1").Update("commission_target", "").Error)

	b, err := NewRuleEngine(nil).Evaluate(context.Background(), db, models.ScopeSales, dec("50000"), CalculationContext{})
	require.NoError(t, err)

	assertDecimal(t, "500", b.Totals.SalespersonCommission)
	assert.True(t, b.Totals.CompanyCommission.IsZero())
	assert.Equal(t, models.CommissionTargetSalesperson, b.AppliedRules[0].CommissionTarget)
}

func TestFoldRules_NetInvariantHolds(t *testing.T) {
	rule := func(ruleType models.RuleType, calc models.CalculationType, value string) ruleTerm {
		return ruleTerm{rule: models.CalculationRule{RuleType: ruleType, CalculationType: calc, Value: dec(value)}}
	}
	terms := []ruleTerm{
		rule(models.RuleTypeCommission, models.CalculationTypePercentage, "2.375"),
		rule(models.RuleTypeTax, models.CalculationTypePercentage, "14"),
		rule(models.RuleTypeFee, models.CalculationTypeFixedAmount, "12.345"),
		rule(models.RuleTypeDiscount, models.CalculationTypePercentage, "0.333"),
		rule(models.RuleTypeTax, models.CalculationTypePercentage, "5"),
	}

	for _, base := range []string{"0", "0.01", "333.33", "98765.43", "1000000"} {
		for _, chaining := range []bool{false, true} {
			applied, totals := foldRules(dec(base), terms, foldOptions{chaining: chaining, roundLines: true})
			require.Len(t, applied, len(terms))

			want := totals.CompanyCommission.Sub(totals.TotalTaxes).Sub(totals.TotalFees).Add(totals.TotalDiscounts)
			assert.Truef(t, want.Equal(totals.NetCompanyRevenue), "base %s chaining %t", base, chaining)

			sum := decimal.Zero
			for _, line := range applied {
				assert.True(t, line.CalculatedAmount.Equal(line.CalculatedAmount.Round(2)))
				if line.RuleType == models.RuleTypeTax {
					sum = sum.Add(line.CalculatedAmount)
				}
			}
			assert.True(t, sum.Equal(totals.TotalTaxes))
		}
	}
}
