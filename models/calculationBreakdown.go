package models

import (
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
)

// BreakdownVersion is bumped whenever the stored breakdown shape changes.
const BreakdownVersion = 1

// AppliedRule is one line of a breakdown. RuleId is 0 for rules synthesized by the flat strategy.
type AppliedRule struct {
	RuleId           int              `json:"rule_id"`
	NameAr           string           `json:"rule_name_ar"`
	NameEn           string           `json:"rule_name_en"`
	RuleType         RuleType         `json:"rule_type"`
	CalculationType  CalculationType  `json:"calculation_type"`
	CommissionTarget CommissionTarget `json:"commission_target,omitempty"`
	Value            decimal.Decimal  `json:"value"`
	CalculatedAmount decimal.Decimal  `json:"calculated_amount"`
	BaseAmount       decimal.Decimal  `json:"base_amount"`
}

type BreakdownTotals struct {
	CompanyCommission      decimal.Decimal `json:"company_commission"`
	SalespersonCommission  decimal.Decimal `json:"salesperson_commission"`
	SalesManagerCommission decimal.Decimal `json:"sales_manager_commission"`
	TotalTaxes             decimal.Decimal `json:"total_taxes"`
	TotalFees              decimal.Decimal `json:"total_fees"`
	TotalDiscounts         decimal.Decimal `json:"total_discounts"`
	NetCompanyRevenue      decimal.Decimal `json:"net_company_revenue"`
}

// Add books one applied rule into its category.
func (t *BreakdownTotals) Add(rule AppliedRule) {
	switch rule.RuleType {
	case RuleTypeCommission:
		switch rule.CommissionTarget {
		case CommissionTargetSalesperson:
			t.SalespersonCommission = t.SalespersonCommission.Add(rule.CalculatedAmount)
		case CommissionTargetSalesManager:
			t.SalesManagerCommission = t.SalesManagerCommission.Add(rule.CalculatedAmount)
		default:
			t.CompanyCommission = t.CompanyCommission.Add(rule.CalculatedAmount)
		}
	case RuleTypeTax:
		t.TotalTaxes = t.TotalTaxes.Add(rule.CalculatedAmount)
	case RuleTypeFee:
		t.TotalFees = t.TotalFees.Add(rule.CalculatedAmount)
	case RuleTypeDiscount:
		t.TotalDiscounts = t.TotalDiscounts.Add(rule.CalculatedAmount)
	}
}

// Settle sets net = company - taxes - fees + discounts.
// Salesperson and manager commissions are tracked but not deducted.
func (t *BreakdownTotals) Settle() {
	t.NetCompanyRevenue = t.CompanyCommission.
		Sub(t.TotalTaxes).
		Sub(t.TotalFees).
		Add(t.TotalDiscounts)
}

// Round rounds every total to cents, half away from zero.
func (t *BreakdownTotals) Round() {
	for _, v := range []*decimal.Decimal{
		&t.CompanyCommission,
		&t.SalespersonCommission,
		&t.SalesManagerCommission,
		&t.TotalTaxes,
		&t.TotalFees,
		&t.TotalDiscounts,
		&t.NetCompanyRevenue,
	} {
		*v = utils.RoundMoney(*v)
	}
}

// FlatDetail keeps the intermediate figures of the settings-based strategy.
type FlatDetail struct {
	UnitTypeKey         string          `json:"unit_type_key"`
	CompanyRate         decimal.Decimal `json:"company_rate"`
	SalespersonRate     decimal.Decimal `json:"salesperson_rate"`
	SalesManagerRate    decimal.Decimal `json:"sales_manager_rate"`
	AdminDiscountRate   decimal.Decimal `json:"admin_discount_rate"`
	VatRate             decimal.Decimal `json:"vat_rate"`
	SalesTaxRate        decimal.Decimal `json:"sales_tax_rate"`
	GrossCompanyRevenue decimal.Decimal `json:"gross_company_revenue"`
	AfterAdminDiscount  decimal.Decimal `json:"after_admin_discount"`
	VatAmount           decimal.Decimal `json:"vat_amount"`
	SalesTaxAmount      decimal.Decimal `json:"sales_tax_amount"`
	HasSalesperson      bool            `json:"has_salesperson"`
	HasSalesManager     bool            `json:"has_sales_manager"`
}

type CalculationBreakdown struct {
	Version      int                 `json:"version"`
	Strategy     CalculationStrategy `json:"strategy"`
	Scope        string              `json:"scope"`
	Chaining     bool                `json:"chaining"`
	BaseAmount   decimal.Decimal     `json:"base_amount"`
	UnitType     string              `json:"unit_type"`
	AppliedRules []AppliedRule       `json:"applied_rules"`
	Totals       BreakdownTotals     `json:"totals"`
	Flat         *FlatDetail         `json:"flat,omitempty"`
}

func (b *CalculationBreakdown) Encode() (string, error) {
	return utils.EncodeJSONText(b)
}

// DecodeBreakdown never fails the read path: malformed or empty text yields an empty
// breakdown together with a *utils.CalculationDegradation describing why.
func DecodeBreakdown(raw string) (CalculationBreakdown, error) {
	var out CalculationBreakdown
	if err := utils.DecodeJSONText(raw, &out); err != nil {
		return CalculationBreakdown{}, &utils.CalculationDegradation{Source: "calculation_breakdown", Cause: err}
	}
	return out, nil
}
