package models

import (
	"context"

	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultSettings are the fallback rates seeded on first boot. Percentages are fractions.
func DefaultSettings() []NewFinancialSetting {
	return []NewFinancialSetting{
		{Key: SettingVatRate, Value: "0.14", Type: SettingTypePercentage, DescriptionAr: "نسبة ضريبة القيمة المضافة", DescriptionEn: "VAT Rate"},
		{Key: SettingSalesTaxRate, Value: "0.05", Type: SettingTypePercentage, DescriptionAr: "نسبة ضريبة المبيعات", DescriptionEn: "Sales Tax Rate"},
		{Key: SettingAdminDiscountPercentage, Value: "0.05", Type: SettingTypePercentage, DescriptionAr: "نسبة الخصم الإداري", DescriptionEn: "Admin Discount Percentage"},
		{Key: CompanyCommissionKey(UnitTypeKeyApartment), Value: "0.02", Type: SettingTypePercentage, DescriptionAr: "عمولة الشركة على الشقق", DescriptionEn: "Company Commission - Apartment"},
		{Key: CompanyCommissionKey(UnitTypeKeyCommercial), Value: "0.025", Type: SettingTypePercentage, DescriptionAr: "عمولة الشركة على التجاري", DescriptionEn: "Company Commission - Commercial"},
		{Key: CompanyCommissionKey(UnitTypeKeyAdministrative), Value: "0.02", Type: SettingTypePercentage, DescriptionAr: "عمولة الشركة على الإداري", DescriptionEn: "Company Commission - Administrative"},
		{Key: CompanyCommissionKey(UnitTypeKeyMedical), Value: "0.03", Type: SettingTypePercentage, DescriptionAr: "عمولة الشركة على الطبي", DescriptionEn: "Company Commission - Medical"},
		{Key: SalespersonCommissionKey(UnitTypeKeyApartment), Value: "0.005", Type: SettingTypePercentage, DescriptionAr: "عمولة السيلز على الشقق", DescriptionEn: "Salesperson Commission - Apartment"},
		{Key: SalespersonCommissionKey(UnitTypeKeyCommercial), Value: "0.0075", Type: SettingTypePercentage, DescriptionAr: "عمولة السيلز على التجاري", DescriptionEn: "Salesperson Commission - Commercial"},
		{Key: SalespersonCommissionKey(UnitTypeKeyAdministrative), Value: "0.005", Type: SettingTypePercentage, DescriptionAr: "عمولة السيلز على الإداري", DescriptionEn: "Salesperson Commission - Administrative"},
		{Key: SalespersonCommissionKey(UnitTypeKeyMedical), Value: "0.01", Type: SettingTypePercentage, DescriptionAr: "عمولة السيلز على الطبي", DescriptionEn: "Salesperson Commission - Medical"},
		{Key: SettingSalesManagerCommission, Value: "0.003", Type: SettingTypePercentage, DescriptionAr: "عمولة مدير المبيعات", DescriptionEn: "Sales Manager Commission"},
		{Key: SettingAnnualTaxRate, Value: "0.225", Type: SettingTypePercentage, DescriptionAr: "نسبة الضريبة السنوية", DescriptionEn: "Annual Tax Rate"},
		{Key: SettingCalculationStrategy, Value: string(CalculationStrategyRules), Type: SettingTypeText, DescriptionAr: "طريقة حساب المبيعات", DescriptionEn: "Sale calculation strategy (rules or flat)"},
	}
}

// DefaultSalesRules is the starter rule set for the sales scope.
func DefaultSalesRules() []NewCalculationRule {
	company := CommissionTargetCompany
	salesperson := CommissionTargetSalesperson
	manager := CommissionTargetSalesManager
	return []NewCalculationRule{
		{NameAr: "عمولة الشركة", NameEn: "Company Commission", RuleType: RuleTypeCommission, CalculationType: CalculationTypePercentage,
			Value: decimal.NewFromInt(3), AppliesTo: ScopeSales, CommissionTarget: &company, OrderIndex: 1,
			DescriptionAr: "عمولة الشركة من المبيعات", DescriptionEn: "Company commission from sales"},
		{NameAr: "عمولة البائع", NameEn: "Salesperson Commission", RuleType: RuleTypeCommission, CalculationType: CalculationTypePercentage,
			Value: decimal.NewFromInt(1), AppliesTo: ScopeSales, CommissionTarget: &salesperson, OrderIndex: 2,
			DescriptionAr: "عمولة البائع من المبيعات", DescriptionEn: "Salesperson commission from sales"},
		{NameAr: "عمولة مدير المبيعات", NameEn: "Sales Manager Commission", RuleType: RuleTypeCommission, CalculationType: CalculationTypePercentage,
			Value: decimal.RequireFromString("0.5"), AppliesTo: ScopeSales, CommissionTarget: &manager, OrderIndex: 3,
			DescriptionAr: "عمولة مدير المبيعات من المبيعات", DescriptionEn: "Sales manager commission from sales"},
		{NameAr: "ضريبة القيمة المضافة", NameEn: "VAT Tax", RuleType: RuleTypeTax, CalculationType: CalculationTypePercentage,
			Value: decimal.NewFromInt(14), AppliesTo: ScopeSales, OrderIndex: 4,
			DescriptionAr: "ضريبة القيمة المضافة", DescriptionEn: "Value Added Tax"},
		{NameAr: "ضريبة المبيعات", NameEn: "Sales Tax", RuleType: RuleTypeTax, CalculationType: CalculationTypePercentage,
			Value: decimal.NewFromInt(5), AppliesTo: ScopeSales, OrderIndex: 5,
			DescriptionAr: "ضريبة المبيعات", DescriptionEn: "Sales Tax"},
	}
}

var defaultExpenseCategories = [][2]string{
	{"مرتبات", "Salaries"},
	{"بوفيه", "Buffet"},
	{"صرفيات", "Petty Cash"},
	{"مواصلات", "Transportation"},
	{"إيجار المكتب", "Office Rent"},
	{"فواتير الكهرباء", "Electricity Bills"},
	{"فواتير المياه", "Water Bills"},
	{"فواتير الإنترنت", "Internet Bills"},
	{"مصروفات تسويق", "Marketing Expenses"},
	{"مصروفات إدارية", "Administrative Expenses"},
}

type SeedResult struct {
	Settings   int `json:"settings"`
	Rules      int `json:"rules"`
	Categories int `json:"categories"`
}

// SeedDefaults is idempotent: settings and categories are added when missing, and the
// default rules only when the rule table is empty.
func SeedDefaults(ctx context.Context, db *gorm.DB, settings *SettingsStore) (*SeedResult, error) {
	result := &SeedResult{}

	for _, s := range DefaultSettings() {
		input := s
		created, err := settings.SetIfMissing(ctx, &input)
		if err != nil {
			return nil, err
		}
		if created {
			result.Settings++
		}
	}

	count, err := CountCalculationRules(ctx, db)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		for _, r := range DefaultSalesRules() {
			input := r
			input.IsActive = utils.NewTrue()
			if _, err := CreateCalculationRule(ctx, db, &input); err != nil {
				return nil, err
			}
			result.Rules++
		}
	}

	for _, c := range defaultExpenseCategories {
		var count int64
		if err := db.WithContext(ctx).Model(&ExpenseCategory{}).Where("name_ar = ?", c[0]).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}
		category := ExpenseCategory{
			NameAr:        c[0],
			NameEn:        c[1],
			DescriptionAr: "فئة " + c[0],
			DescriptionEn: c[1] + " category",
		}
		if err := db.WithContext(ctx).Create(&category).Error; err != nil {
			return nil, err
		}
		result.Categories++
	}

	if _, err := EnsureCashierBalance(ctx, db); err != nil {
		return nil, err
	}
	return result, nil
}
