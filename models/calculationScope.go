package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/broman/realty_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CalculationScope holds per-scope evaluation options.
// With Chaining off every rule computes against the original base amount.
// With Chaining on each rule computes against what the previous rules left.
type CalculationScope struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Scope         string    `gorm:"size:100;uniqueIndex;not null" json:"scope"`
	Chaining      bool      `gorm:"not null;default:false" json:"chaining"`
	DescriptionAr string    `gorm:"type:text" json:"description_ar"`
	DescriptionEn string    `gorm:"type:text" json:"description_en"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCalculationScope struct {
	Scope         string `json:"scope" validate:"required,max=100"`
	Chaining      bool   `json:"chaining"`
	DescriptionAr string `json:"description_ar"`
	DescriptionEn string `json:"description_en"`
}

// GetCalculationScope returns the stored options or the defaults (chaining off) when none exist.
func GetCalculationScope(ctx context.Context, db *gorm.DB, scope string) (*CalculationScope, error) {
	var row CalculationScope
	err := db.WithContext(ctx).Where("scope = ?", scope).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CalculationScope{Scope: scope}, nil
		}
		return nil, err
	}
	return &row, nil
}

func SaveCalculationScope(ctx context.Context, db *gorm.DB, input *NewCalculationScope) (*CalculationScope, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	row := CalculationScope{
		Scope:         input.Scope,
		Chaining:      input.Chaining,
		DescriptionAr: input.DescriptionAr,
		DescriptionEn: input.DescriptionEn,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{"chaining", "description_ar", "description_en", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return GetCalculationScope(ctx, db, input.Scope)
}
