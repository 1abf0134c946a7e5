package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FinishingWork struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	UnitId        int                 `gorm:"index;not null" json:"unit_id"`
	ProjectNameAr string              `gorm:"size:100;not null" json:"project_name_ar"`
	ProjectNameEn string              `gorm:"size:100" json:"project_name_en"`
	StartDate     time.Time           `gorm:"not null" json:"start_date"`
	EndDate       *time.Time          `json:"end_date"`
	Budget        decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"budget"`
	ActualCost    decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"actual_cost"`
	Status        FinishingWorkStatus `gorm:"size:50;not null;default:in_progress" json:"status"`
	Notes         string              `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	Expenses []*FinishingWorkExpense `gorm:"foreignKey:FinishingWorkId" json:"expenses,omitempty"`
}

type NewFinishingWork struct {
	UnitId        int                 `json:"unit_id" validate:"required,gt=0"`
	ProjectNameAr string              `json:"project_name_ar" validate:"required,max=100"`
	ProjectNameEn string              `json:"project_name_en" validate:"max=100"`
	StartDate     string              `json:"start_date" validate:"required"`
	EndDate       *string             `json:"end_date"`
	Budget        decimal.Decimal     `json:"budget" validate:"gte=0"`
	Status        FinishingWorkStatus `json:"status" validate:"omitempty,oneof=in_progress completed stopped"`
	Notes         string              `json:"notes"`
}

type FinishingWorkExpense struct {
	ID              int             `gorm:"primary_key" json:"id"`
	FinishingWorkId int             `gorm:"index;not null" json:"finishing_work_id"`
	DescriptionAr   string          `gorm:"type:text;not null" json:"description_ar"`
	DescriptionEn   string          `gorm:"type:text" json:"description_en"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ExpenseDate     time.Time       `gorm:"index;not null" json:"expense_date"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFinishingWorkExpense struct {
	DescriptionAr string          `json:"description_ar" validate:"required"`
	DescriptionEn string          `json:"description_en"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	ExpenseDate   string          `json:"expense_date" validate:"required"`
	Notes         string          `json:"notes"`
}

// RemainingBudget is budget minus what has been spent so far.
func (w FinishingWork) RemainingBudget() decimal.Decimal {
	return w.Budget.Sub(w.ActualCost)
}

func GetFinishingWork(ctx context.Context, db *gorm.DB, id int) (*FinishingWork, error) {
	return fetchById[FinishingWork](ctx, db, "finishing work", id, false)
}

func GetFinishingWorkForUpdate(ctx context.Context, tx *gorm.DB, id int) (*FinishingWork, error) {
	return fetchById[FinishingWork](ctx, tx, "finishing work", id, true)
}

func GetFinishingWorkWithExpenses(ctx context.Context, db *gorm.DB, id int) (*FinishingWork, error) {
	work, err := GetFinishingWork(ctx, db, id)
	if err != nil {
		return nil, err
	}
	expenses, err := ListFinishingWorkExpenses(ctx, db, id)
	if err != nil {
		return nil, err
	}
	work.Expenses = expenses
	return work, nil
}

func ListFinishingWorks(ctx context.Context, db *gorm.DB, unitId *int) ([]*FinishingWork, error) {
	var works []*FinishingWork
	dbCtx := db.WithContext(ctx)
	if unitId != nil {
		dbCtx = dbCtx.Where("unit_id = ?", *unitId)
	}
	if err := dbCtx.Order("start_date DESC").Order("id DESC").Find(&works).Error; err != nil {
		return nil, err
	}
	return works, nil
}

func GetFinishingWorkExpenseForUpdate(ctx context.Context, tx *gorm.DB, id int) (*FinishingWorkExpense, error) {
	return fetchById[FinishingWorkExpense](ctx, tx, "finishing work expense", id, true)
}

func ListFinishingWorkExpenses(ctx context.Context, db *gorm.DB, finishingWorkId int) ([]*FinishingWorkExpense, error) {
	var expenses []*FinishingWorkExpense
	err := db.WithContext(ctx).Where("finishing_work_id = ?", finishingWorkId).
		Order("expense_date").Order("id").Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}
