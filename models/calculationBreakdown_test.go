package models_test

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBreakdown_Degrades(t *testing.T) {
	for _, raw := range []string{"", "   ", "{", `{"totals": "nope"}`} {
		b, err := models.DecodeBreakdown(raw)
		require.Error(t, err, raw)
		var degradation *utils.CalculationDegradation
		assert.True(t, errors.As(err, &degradation))
		assert.Empty(t, b.AppliedRules)
		assert.True(t, b.Totals.NetCompanyRevenue.IsZero())
	}
}

func TestBreakdownEncodeDecode(t *testing.T) {
	totals := models.BreakdownTotals{}
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeCommission, CommissionTarget: models.CommissionTargetCompany, CalculatedAmount: decimal.RequireFromString("3000")})
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeCommission, CommissionTarget: models.CommissionTargetSalesperson, CalculatedAmount: decimal.RequireFromString("1000")})
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeTax, CalculatedAmount: decimal.RequireFromString("420")})
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeFee, CalculatedAmount: decimal.RequireFromString("30")})
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeDiscount, CalculatedAmount: decimal.RequireFromString("50")})
	totals.Settle()
	requireDecimal(t, "2600", totals.NetCompanyRevenue)
	requireDecimal(t, "1000", totals.SalespersonCommission)

	b := &models.CalculationBreakdown{Version: models.BreakdownVersion, Scope: models.ScopeSales, Totals: totals}
	raw, err := b.Encode()
	require.NoError(t, err)
	decoded, err := models.DecodeBreakdown(raw)
	require.NoError(t, err)
	requireDecimal(t, "2600", decoded.Totals.NetCompanyRevenue)
}

func TestBreakdownTotals_RoundAfterSettle(t *testing.T) {
	totals := models.BreakdownTotals{}
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeCommission, CalculatedAmount: decimal.RequireFromString("0.0274")})
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeFee, CalculatedAmount: decimal.RequireFromString("0.00137")})
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeTax, CalculatedAmount: decimal.RequireFromString("0.0036442")})
	totals.Add(models.AppliedRule{RuleType: models.RuleTypeTax, CalculatedAmount: decimal.RequireFromString("0.0013015")})
	totals.Settle()
	totals.Round()

	requireDecimal(t, "0.03", totals.CompanyCommission)
	requireDecimal(t, "0", totals.TotalFees)
	requireDecimal(t, "0", totals.TotalTaxes)
	// settled unrounded: 0.0210843
	requireDecimal(t, "0.02", totals.NetCompanyRevenue)
}

func TestSale_AfterFindKeepsReadPathAlive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	unit, err := models.CreateUnit(ctx, db, &models.NewUnit{Code: "S-1", UnitType: "شقة", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	sale := &models.Sale{UnitId: unit.ID, ClientName: "c", SalePrice: decimal.NewFromInt(1), CalculationBreakdown: "garbage"}
	require.NoError(t, db.Create(sale).Error)

	stored, err := models.GetSale(ctx, db, sale.ID)
	require.NoError(t, err)
	assert.Error(t, stored.BreakdownError)
	require.NotNil(t, stored.Breakdown)
}
