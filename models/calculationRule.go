package models

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnitTypeFilter is the set of unit type labels a rule is limited to. Empty matches every type.
// Stored as a JSON array in a text column.
type UnitTypeFilter []string

func (f UnitTypeFilter) Matches(unitType string) bool {
	if len(f) == 0 {
		return true
	}
	for _, t := range f {
		if t == unitType {
			return true
		}
	}
	return false
}

func (f UnitTypeFilter) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "", nil
	}
	return utils.EncodeJSONText([]string(f))
}

// Scan treats NULL, empty and malformed text as "no filter".
func (f *UnitTypeFilter) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*f = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported unit type filter value %T", value)
	}
	var out []string
	if err := utils.DecodeJSONText(raw, &out); err != nil {
		*f = nil
		return nil
	}
	*f = out
	return nil
}

type CalculationRule struct {
	ID               int              `gorm:"primary_key" json:"id"`
	NameAr           string           `gorm:"size:200;not null" json:"name_ar"`
	NameEn           string           `gorm:"size:200;not null" json:"name_en"`
	RuleType         RuleType         `gorm:"size:50;not null" json:"rule_type"`
	CalculationType  CalculationType  `gorm:"size:50;not null" json:"calculation_type"`
	Value            decimal.Decimal  `gorm:"type:decimal(10,4);not null" json:"value"`
	AppliesTo        string           `gorm:"size:100;index;not null" json:"applies_to"`
	UnitTypeFilter   UnitTypeFilter   `gorm:"type:text" json:"unit_type_filter"`
	CommissionTarget CommissionTarget `gorm:"size:20" json:"commission_target,omitempty"`
	IsActive         *bool            `gorm:"not null;default:true" json:"is_active"`
	OrderIndex       int              `gorm:"index;default:0" json:"order_index"`
	DescriptionAr    string           `gorm:"type:text" json:"description_ar"`
	DescriptionEn    string           `gorm:"type:text" json:"description_en"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCalculationRule struct {
	NameAr           string            `json:"name_ar" validate:"required,max=200"`
	NameEn           string            `json:"name_en" validate:"required,max=200"`
	RuleType         RuleType          `json:"rule_type" validate:"required,oneof=commission tax discount fee"`
	CalculationType  CalculationType   `json:"calculation_type" validate:"required,oneof=percentage fixed_amount"`
	Value            decimal.Decimal   `json:"value" validate:"gte=0"`
	AppliesTo        string            `json:"applies_to" validate:"required,max=100"`
	UnitTypeFilter   UnitTypeFilter    `json:"unit_type_filter"`
	CommissionTarget *CommissionTarget `json:"commission_target"`
	OrderIndex       int               `json:"order_index"`
	IsActive         *bool             `json:"is_active"`
	DescriptionAr    string            `json:"description_ar"`
	DescriptionEn    string            `json:"description_en"`
}

func (r CalculationRule) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// Portion is what the rule computes against base. Percentage values are whole percents.
func (r CalculationRule) Portion(base decimal.Decimal) decimal.Decimal {
	return utils.CalculatePortion(base, r.Value, r.CalculationType == CalculationTypePercentage)
}

// ClassifyCommissionTarget reproduces the legacy name heuristic: company, then salesperson,
// then manager keywords in either language, falling back to company.
func ClassifyCommissionTarget(nameAr string, nameEn string) CommissionTarget {
	en := strings.ToLower(nameEn)
	switch {
	case strings.Contains(nameAr, "شركة") || strings.Contains(en, "company"):
		return CommissionTargetCompany
	case strings.Contains(nameAr, "بائع") || strings.Contains(en, "salesperson"):
		return CommissionTargetSalesperson
	case strings.Contains(nameAr, "مدير") || strings.Contains(en, "manager"):
		return CommissionTargetSalesManager
	}
	return CommissionTargetCompany
}

// validate input for both create & update
func (input *NewCalculationRule) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.CalculationType == CalculationTypePercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return utils.NewValidationError("value", "percentage must not exceed 100")
	}
	if input.CommissionTarget != nil {
		if input.RuleType != RuleTypeCommission {
			return utils.NewValidationError("commission_target", "only commission rules have a target")
		}
		if !input.CommissionTarget.IsValid() {
			return utils.NewValidationError("commission_target", "oneof=company salesperson sales_manager")
		}
	}
	return nil
}

func (input *NewCalculationRule) target() CommissionTarget {
	if input.RuleType != RuleTypeCommission {
		return ""
	}
	if input.CommissionTarget != nil {
		return *input.CommissionTarget
	}
	return ClassifyCommissionTarget(input.NameAr, input.NameEn)
}

func (input *NewCalculationRule) apply(rule *CalculationRule) {
	rule.NameAr = input.NameAr
	rule.NameEn = input.NameEn
	rule.RuleType = input.RuleType
	rule.CalculationType = input.CalculationType
	rule.Value = input.Value
	rule.AppliesTo = input.AppliesTo
	rule.UnitTypeFilter = input.UnitTypeFilter
	rule.CommissionTarget = input.target()
	rule.OrderIndex = input.OrderIndex
	rule.DescriptionAr = input.DescriptionAr
	rule.DescriptionEn = input.DescriptionEn
	if input.IsActive != nil {
		rule.IsActive = input.IsActive
	} else if rule.IsActive == nil {
		rule.IsActive = utils.NewTrue()
	}
}

func CreateCalculationRule(ctx context.Context, db *gorm.DB, input *NewCalculationRule) (*CalculationRule, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	rule := CalculationRule{}
	input.apply(&rule)
	if err := db.WithContext(ctx).Create(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func UpdateCalculationRule(ctx context.Context, db *gorm.DB, id int, input *NewCalculationRule) (*CalculationRule, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	rule, err := GetCalculationRule(ctx, db, id)
	if err != nil {
		return nil, err
	}
	input.apply(rule)
	if err := db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// SetCalculationRuleActive is the normal way to retire a rule.
func SetCalculationRuleActive(ctx context.Context, db *gorm.DB, id int, isActive bool) (*CalculationRule, error) {
	rule, err := GetCalculationRule(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(rule).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	rule.IsActive = &isActive
	return rule, nil
}

func DeleteCalculationRule(ctx context.Context, db *gorm.DB, id int) (*CalculationRule, error) {
	rule, err := GetCalculationRule(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func GetCalculationRule(ctx context.Context, db *gorm.DB, id int) (*CalculationRule, error) {
	var rule CalculationRule
	if err := db.WithContext(ctx).First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFound("calculation rule", id)
		}
		return nil, err
	}
	return &rule, nil
}

// ListCalculationRules returns every rule, optionally limited to one scope, in evaluation order.
func ListCalculationRules(ctx context.Context, db *gorm.DB, scope *string) ([]*CalculationRule, error) {
	var rules []*CalculationRule
	dbCtx := db.WithContext(ctx)
	if scope != nil && *scope != "" {
		dbCtx = dbCtx.Where("applies_to = ?", *scope)
	}
	if err := dbCtx.Order("order_index ASC").Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActiveRulesForScope is read on every evaluation; there is no rule cache.
func ListActiveRulesForScope(ctx context.Context, db *gorm.DB, scope string) ([]CalculationRule, error) {
	var rules []CalculationRule
	err := db.WithContext(ctx).
		Where("applies_to = ? AND is_active = ?", scope, true).
		Order("order_index ASC").Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func CountCalculationRules(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&CalculationRule{}).Count(&count).Error
	return count, err
}
