package models

import (
	"context"
	"time"

	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Unit struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Code          string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	UnitType      string          `gorm:"column:type;size:50;not null" json:"type"`
	Address       string          `gorm:"type:text" json:"address"`
	AreaSqm       decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"area_sqm"`
	Price         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	DescriptionAr string          `gorm:"type:text" json:"description_ar"`
	DescriptionEn string          `gorm:"type:text" json:"description_en"`
	Status        UnitStatus      `gorm:"size:50;index;not null;default:available" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUnit struct {
	Code          string          `json:"code" validate:"required,max=50"`
	UnitType      string          `json:"type" validate:"required,max=50"`
	Address       string          `json:"address"`
	AreaSqm       decimal.Decimal `json:"area_sqm" validate:"gte=0"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	DescriptionAr string          `json:"description_ar"`
	DescriptionEn string          `json:"description_en"`
}

func (u Unit) GetId() int {
	return u.ID
}

func CreateUnit(ctx context.Context, db *gorm.DB, input *NewUnit) (*Unit, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	unit := Unit{
		Code:          input.Code,
		UnitType:      input.UnitType,
		Address:       input.Address,
		AreaSqm:       input.AreaSqm,
		Price:         input.Price,
		DescriptionAr: input.DescriptionAr,
		DescriptionEn: input.DescriptionEn,
		Status:        UnitStatusAvailable,
	}
	if err := db.WithContext(ctx).Create(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func GetUnit(ctx context.Context, db *gorm.DB, id int) (*Unit, error) {
	return fetchById[Unit](ctx, db, "unit", id, false)
}

// GetUnitForUpdate locks the unit row so a concurrent sale or rental cannot claim it.
func GetUnitForUpdate(ctx context.Context, tx *gorm.DB, id int) (*Unit, error) {
	return fetchById[Unit](ctx, tx, "unit", id, true)
}

func SetUnitStatus(ctx context.Context, tx *gorm.DB, unit *Unit, status UnitStatus) error {
	if err := tx.WithContext(ctx).Model(unit).Update("status", status).Error; err != nil {
		return err
	}
	unit.Status = status
	return nil
}

func ListUnits(ctx context.Context, db *gorm.DB, status *UnitStatus) ([]*Unit, error) {
	var units []*Unit
	dbCtx := db.WithContext(ctx)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("code").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// GetUnitsByIds backs the unit dataloader.
func GetUnitsByIds(ctx context.Context, db *gorm.DB, ids []int) ([]*Unit, error) {
	var units []*Unit
	if len(ids) == 0 {
		return units, nil
	}
	if err := db.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}
