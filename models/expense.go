package models

import (
	"context"
	"time"

	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseCategory struct {
	ID            int       `gorm:"primary_key" json:"id"`
	NameAr        string    `gorm:"size:100;uniqueIndex;not null" json:"name_ar"`
	NameEn        string    `gorm:"size:100;uniqueIndex;not null" json:"name_en"`
	DescriptionAr string    `gorm:"type:text" json:"description_ar"`
	DescriptionEn string    `gorm:"type:text" json:"description_en"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Expense struct {
	ID            int             `gorm:"primary_key" json:"id"`
	DescriptionAr string          `gorm:"type:text;not null" json:"description_ar"`
	DescriptionEn string          `gorm:"type:text" json:"description_en"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ExpenseDate   time.Time       `gorm:"index;not null" json:"expense_date"`
	CategoryId    int             `gorm:"index;not null" json:"category_id"`
	UserId        int             `gorm:"index" json:"user_id"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpense struct {
	DescriptionAr string          `json:"description_ar" validate:"required"`
	DescriptionEn string          `json:"description_en"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	ExpenseDate   string          `json:"expense_date" validate:"required"`
	CategoryId    int             `json:"category_id" validate:"required,gt=0"`
	Notes         string          `json:"notes"`
}

func GetExpenseCategory(ctx context.Context, db *gorm.DB, id int) (*ExpenseCategory, error) {
	return fetchById[ExpenseCategory](ctx, db, "expense category", id, false)
}

func ListExpenseCategories(ctx context.Context, db *gorm.DB) ([]*ExpenseCategory, error) {
	var categories []*ExpenseCategory
	if err := db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func GetExpense(ctx context.Context, db *gorm.DB, id int) (*Expense, error) {
	return fetchById[Expense](ctx, db, "expense", id, false)
}

func GetExpenseForUpdate(ctx context.Context, tx *gorm.DB, id int) (*Expense, error) {
	return fetchById[Expense](ctx, tx, "expense", id, true)
}

type ExpenseFilter struct {
	CategoryId *int
	FromDate   *time.Time
	ToDate     *time.Time
}

func (f ExpenseFilter) apply(db *gorm.DB) *gorm.DB {
	if f.CategoryId != nil {
		db = db.Where("category_id = ?", *f.CategoryId)
	}
	if f.FromDate != nil {
		db = db.Where("expense_date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		db = db.Where("expense_date <= ?", utils.EndOfDay(*f.ToDate))
	}
	return db
}

func ListExpenses(ctx context.Context, db *gorm.DB, filter ExpenseFilter) ([]*Expense, error) {
	var expenses []*Expense
	if err := filter.apply(db.WithContext(ctx)).Order("expense_date DESC").Order("id DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}
