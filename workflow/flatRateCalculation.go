package workflow

import (
	"context"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fallback rates used when a setting is missing or inactive.
var (
	defaultVatRate               = decimal.RequireFromString("0.14")
	defaultSalesTaxRate          = decimal.RequireFromString("0.05")
	defaultAdminDiscountRate     = decimal.RequireFromString("0.05")
	defaultCompanyCommission     = decimal.RequireFromString("0.02")
	defaultSalespersonCommission = decimal.RequireFromString("0.005")
	defaultSalesManagerRate      = decimal.RequireFromString("0.003")
)

// FlatRates are the settings-based rates, as fractions.
type FlatRates struct {
	UnitTypeKey   string
	Company       decimal.Decimal
	Salesperson   decimal.Decimal
	SalesManager  decimal.Decimal
	AdminDiscount decimal.Decimal
	Vat           decimal.Decimal
	SalesTax      decimal.Decimal
}

// FlatRateCalculator is the settings-based strategy. It builds a synthetic rule set from the
// rates and runs it through the same fold as the rule engine:
//
//	company     = price * company_rate
//	after       = company * (1 - admin_discount_rate)    (admin discount booked as a fee)
//	vat         = after * vat_rate
//	sales_tax   = after * sales_tax_rate
//	net         = after - vat - sales_tax
//
// Salesperson and manager commissions only appear when the sale has that participant.
type FlatRateCalculator struct {
	settings *models.SettingsStore
}

func NewFlatRateCalculator(settings *models.SettingsStore) *FlatRateCalculator {
	return &FlatRateCalculator{settings: settings}
}

func (f *FlatRateCalculator) Strategy() models.CalculationStrategy {
	return models.CalculationStrategyFlat
}

// Rates reads the flat rates for unitType through tx.
func (f *FlatRateCalculator) Rates(ctx context.Context, tx *gorm.DB, unitType string) FlatRates {
	settings := f.settings.WithTx(tx)
	key := models.UnitTypeKey(unitType)
	return FlatRates{
		UnitTypeKey:   key,
		Company:       settings.GetDecimal(ctx, models.CompanyCommissionKey(key), defaultCompanyCommission),
		Salesperson:   settings.GetDecimal(ctx, models.SalespersonCommissionKey(key), defaultSalespersonCommission),
		SalesManager:  settings.GetDecimal(ctx, models.SettingSalesManagerCommission, defaultSalesManagerRate),
		AdminDiscount: settings.GetDecimal(ctx, models.SettingAdminDiscountPercentage, defaultAdminDiscountRate),
		Vat:           settings.GetDecimal(ctx, models.SettingVatRate, defaultVatRate),
		SalesTax:      settings.GetDecimal(ctx, models.SettingSalesTaxRate, defaultSalesTaxRate),
	}
}

func flatRule(nameAr, nameEn string, ruleType models.RuleType, target models.CommissionTarget, rate decimal.Decimal) models.CalculationRule {
	return models.CalculationRule{
		NameAr:           nameAr,
		NameEn:           nameEn,
		RuleType:         ruleType,
		CalculationType:  models.CalculationTypePercentage,
		CommissionTarget: target,
		Value:            utils.RateToPercent(rate),
		AppliesTo:        models.ScopeSales,
	}
}

// flatRuleSet is the default rule set equivalent to the flat formula.
func flatRuleSet(price decimal.Decimal, rates FlatRates, hasSalesperson, hasManager bool) []ruleTerm {
	company := price.Mul(rates.Company)
	after := company.Mul(decimal.NewFromInt(1).Sub(rates.AdminDiscount))

	terms := []ruleTerm{
		{rule: flatRule("عمولة الشركة", "Company Commission", models.RuleTypeCommission, models.CommissionTargetCompany, rates.Company)},
	}
	if hasSalesperson {
		terms = append(terms, ruleTerm{rule: flatRule("عمولة البائع", "Salesperson Commission", models.RuleTypeCommission, models.CommissionTargetSalesperson, rates.Salesperson)})
	}
	if hasManager {
		terms = append(terms, ruleTerm{rule: flatRule("عمولة مدير المبيعات", "Sales Manager Commission", models.RuleTypeCommission, models.CommissionTargetSalesManager, rates.SalesManager)})
	}
	terms = append(terms,
		ruleTerm{rule: flatRule("الخصم الإداري", "Admin Discount", models.RuleTypeFee, "", rates.AdminDiscount), base: &company},
		ruleTerm{rule: flatRule("ضريبة القيمة المضافة", "VAT Tax", models.RuleTypeTax, "", rates.Vat), base: &after},
		ruleTerm{rule: flatRule("ضريبة المبيعات", "Sales Tax", models.RuleTypeTax, "", rates.SalesTax), base: &after},
	)
	return terms
}

// CalculateFlat computes the settings-based breakdown. Intermediates stay unrounded and each
// reported total is rounded half up to cents once, so the net is round(after - vat - sales_tax).
func (f *FlatRateCalculator) CalculateFlat(ctx context.Context, tx *gorm.DB, base decimal.Decimal, unitType string, hasSalesperson bool, hasManager bool) (*models.CalculationBreakdown, error) {
	if base.IsNegative() {
		return nil, utils.NewValidationError("base_amount", "must not be negative")
	}
	rates := f.Rates(ctx, tx, unitType)
	applied, totals := foldRules(base, flatRuleSet(base, rates, hasSalesperson, hasManager), foldOptions{})

	company := base.Mul(rates.Company)
	after := company.Mul(decimal.NewFromInt(1).Sub(rates.AdminDiscount))

	return &models.CalculationBreakdown{
		Version:      models.BreakdownVersion,
		Strategy:     models.CalculationStrategyFlat,
		Scope:        models.ScopeSales,
		BaseAmount:   base,
		UnitType:     unitType,
		AppliedRules: applied,
		Totals:       totals,
		Flat: &models.FlatDetail{
			UnitTypeKey:         rates.UnitTypeKey,
			CompanyRate:         rates.Company,
			SalespersonRate:     rates.Salesperson,
			SalesManagerRate:    rates.SalesManager,
			AdminDiscountRate:   rates.AdminDiscount,
			VatRate:             rates.Vat,
			SalesTaxRate:        rates.SalesTax,
			GrossCompanyRevenue: utils.RoundMoney(company),
			AfterAdminDiscount:  utils.RoundMoney(after),
			VatAmount:           utils.RoundMoney(after.Mul(rates.Vat)),
			SalesTaxAmount:      utils.RoundMoney(after.Mul(rates.SalesTax)),
			HasSalesperson:      hasSalesperson,
			HasSalesManager:     hasManager,
		},
	}, nil
}

func (f *FlatRateCalculator) Calculate(ctx context.Context, tx *gorm.DB, base decimal.Decimal, calcCtx CalculationContext) (*models.CalculationBreakdown, error) {
	return f.CalculateFlat(ctx, tx, base, calcCtx.UnitType, calcCtx.SalespersonId != nil, calcCtx.SalesManagerId != nil)
}
