package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys read by the flat calculation strategy and the sale workflow.
const (
	SettingVatRate                 = "VAT_RATE"
	SettingSalesTaxRate            = "SALES_TAX_RATE"
	SettingAdminDiscountPercentage = "ADMIN_DISCOUNT_PERCENTAGE"
	SettingSalesManagerCommission  = "SALES_MANAGER_COMMISSION"
	SettingAnnualTaxRate           = "ANNUAL_TAX_RATE"
	SettingCalculationStrategy     = "CALCULATION_STRATEGY"
	settingCompanyCommissionPrefix = "COMPANY_COMMISSION_"
	settingSalespersonCommPrefix   = "SALESPERSON_COMMISSION_"
)

func CompanyCommissionKey(unitTypeKey string) string {
	return settingCompanyCommissionPrefix + unitTypeKey
}

func SalespersonCommissionKey(unitTypeKey string) string {
	return settingSalespersonCommPrefix + unitTypeKey
}

type FinancialSetting struct {
	ID            int         `gorm:"primary_key" json:"id"`
	Key           string      `gorm:"column:key;size:100;uniqueIndex;not null" json:"key"`
	Value         string      `gorm:"type:text;not null" json:"value"`
	Type          SettingType `gorm:"size:50;not null" json:"type"`
	DescriptionAr string      `gorm:"type:text" json:"description_ar"`
	DescriptionEn string      `gorm:"type:text" json:"description_en"`
	IsActive      *bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFinancialSetting struct {
	Key           string      `json:"key" validate:"required,max=100"`
	Value         string      `json:"value" validate:"required"`
	Type          SettingType `json:"type" validate:"required,oneof=percentage fixed_amount text json"`
	DescriptionAr string      `json:"description_ar"`
	DescriptionEn string      `json:"description_en"`
}

func (s FinancialSetting) Active() bool {
	return s.IsActive == nil || *s.IsActive
}

// TypedValue decodes Value by Type: percentage and fixed_amount give decimal.Decimal,
// json gives the decoded document, anything else the raw string.
func (s FinancialSetting) TypedValue() (any, error) {
	switch s.Type {
	case SettingTypePercentage, SettingTypeFixedAmount:
		return utils.ParseDecimal(s.Value)
	case SettingTypeJSON:
		var out any
		if err := utils.DecodeJSONText(s.Value, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return s.Value, nil
}

// SettingsStore is the typed key/value provider for fallback rates and options.
// Lookups of a missing or inactive key return the caller's default.
type SettingsStore struct {
	db       *gorm.DB
	logger   *logrus.Logger
	cache    *config.Redis
	cacheTTL time.Duration
}

// NewSettingsStore builds a store. cache may be nil.
func NewSettingsStore(db *gorm.DB, logger *logrus.Logger, cache *config.Redis) *SettingsStore {
	return &SettingsStore{db: db, logger: logger, cache: cache, cacheTTL: config.SettingsCacheTTL()}
}

// WithTx returns a store reading through tx, for lookups inside an open transaction.
func (s *SettingsStore) WithTx(tx *gorm.DB) *SettingsStore {
	clone := *s
	clone.db = tx
	return &clone
}

func settingCacheKey(key string) string {
	return "FinancialSetting:" + key
}

// lookup returns the active setting or nil.
func (s *SettingsStore) lookup(ctx context.Context, key string) (*FinancialSetting, error) {
	var setting FinancialSetting
	if s.cache != nil {
		found, err := s.cache.GetObject(ctx, settingCacheKey(key), &setting)
		if err != nil {
			config.LogError(s.logger, "SettingsStore", "lookup", "reading settings cache", key, err)
		} else if found {
			if !setting.Active() {
				return nil, nil
			}
			return &setting, nil
		}
	}

	err := s.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetObject(ctx, settingCacheKey(key), &setting, s.cacheTTL); err != nil {
			config.LogError(s.logger, "SettingsStore", "lookup", "writing settings cache", key, err)
		}
	}
	if !setting.Active() {
		return nil, nil
	}
	return &setting, nil
}

// Get returns the typed value of key, or def when the key is missing, inactive or undecodable.
// A json setting that does not parse degrades to def with a warning.
func (s *SettingsStore) Get(ctx context.Context, key string, def any) any {
	setting, err := s.lookup(ctx, key)
	if err != nil {
		config.LogError(s.logger, "SettingsStore", "Get", "loading setting", key, err)
		return def
	}
	if setting == nil {
		return def
	}
	value, err := setting.TypedValue()
	if err != nil {
		config.LogWarning(s.logger, "SettingsStore", "Get", "setting could not be decoded; using default",
			&utils.CalculationDegradation{Source: "financial_setting " + key, Cause: err})
		return def
	}
	return value
}

// GetDecimal reads a numeric setting. Non-numeric types fall back to def.
func (s *SettingsStore) GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	switch v := s.Get(ctx, key, def).(type) {
	case decimal.Decimal:
		return v
	case string:
		if d, err := utils.ParseDecimal(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	}
	return def
}

func (s *SettingsStore) GetString(ctx context.Context, key string, def string) string {
	switch v := s.Get(ctx, key, def).(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	}
	return def
}

// GetJSON decodes a json setting into dest. It reports false when the key is missing,
// inactive or malformed, leaving dest untouched.
func (s *SettingsStore) GetJSON(ctx context.Context, key string, dest any) bool {
	setting, err := s.lookup(ctx, key)
	if err != nil || setting == nil || setting.Type != SettingTypeJSON {
		return false
	}
	if err := utils.DecodeJSONText(setting.Value, dest); err != nil {
		config.LogWarning(s.logger, "SettingsStore", "GetJSON", "setting could not be decoded",
			&utils.CalculationDegradation{Source: "financial_setting " + key, Cause: err})
		return false
	}
	return true
}

// Set upserts key. Percentage and fixed amount values must parse as numbers.
func (s *SettingsStore) Set(ctx context.Context, input *NewFinancialSetting) (*FinancialSetting, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	input.Key = strings.TrimSpace(input.Key)
	switch input.Type {
	case SettingTypePercentage, SettingTypeFixedAmount:
		if _, err := utils.ParseDecimal(input.Value); err != nil {
			return nil, utils.NewValidationError("value", "must be numeric")
		}
	}

	setting := FinancialSetting{
		Key:           input.Key,
		Value:         input.Value,
		Type:          input.Type,
		DescriptionAr: input.DescriptionAr,
		DescriptionEn: input.DescriptionEn,
		IsActive:      utils.NewTrue(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "description_ar", "description_en", "is_active", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, input.Key)

	var saved FinancialSetting
	if err := s.db.WithContext(ctx).Where(map[string]interface{}{"key": input.Key}).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// SetIfMissing seeds key without touching an existing value.
func (s *SettingsStore) SetIfMissing(ctx context.Context, input *NewFinancialSetting) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&FinancialSetting{}).Where(map[string]interface{}{"key": input.Key}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.Set(ctx, input); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SettingsStore) Deactivate(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Model(&FinancialSetting{}).Where(map[string]interface{}{"key": key}).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewNotFound("financial setting", key)
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *SettingsStore) List(ctx context.Context) ([]*FinancialSetting, error) {
	var settings []*FinancialSetting
	if err := s.db.WithContext(ctx).Order("id").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *SettingsStore) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.RemoveKey(ctx, settingCacheKey(key)); err != nil {
		config.LogError(s.logger, "SettingsStore", "invalidate", fmt.Sprintf("removing cached setting %s", key), nil, err)
	}
}
