package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MainCashierKey identifies the one cashier balance row.
const MainCashierKey = "main"

// CashierBalance is a keyed singleton: the unique BalanceKey makes a second row impossible.
type CashierBalance struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BalanceKey    string          `gorm:"size:32;uniqueIndex;not null" json:"balance_key"`
	Balance       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	LastUpdatedAt time.Time       `gorm:"not null" json:"last_updated_at"`
}

// CashierTransaction stores the business amount unsigned; the sign comes from TransactionType.
type CashierTransaction struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TransactionDate time.Time       `gorm:"index;not null" json:"transaction_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	TransactionType TransactionType `gorm:"size:50;not null;uniqueIndex:idx_cashier_txn_reference,priority:2" json:"transaction_type"`
	ReferenceId     *int            `gorm:"uniqueIndex:idx_cashier_txn_reference,priority:1" json:"reference_id"`
	Notes           string          `gorm:"type:text" json:"notes"`
	UserId          int             `gorm:"index" json:"user_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

var (
	incomeTypes = map[TransactionType]bool{
		TransactionTypeSaleRevenue:  true,
		TransactionTypeRentalIncome: true,
		TransactionTypeDeposit:      true,
	}
	expenseTypes = map[TransactionType]bool{
		TransactionTypeExpensePayment:                true,
		TransactionTypeSalespersonCommissionPayment:  true,
		TransactionTypeSalesManagerCommissionPayment: true,
		TransactionTypeWithdrawal:                    true,
		TransactionTypeFinishingWorkExpense:          true,
	}
)

// Sign is +1 for income types, -1 for expense types and 0 for anything else.
func (t TransactionType) Sign() int64 {
	switch {
	case incomeTypes[t]:
		return 1
	case expenseTypes[t]:
		return -1
	}
	return 0
}

func (t TransactionType) IsKnown() bool {
	return t.Sign() != 0
}

// Impact is the signed effect of amount on the balance.
func (t TransactionType) Impact(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(t.Sign()))
}

// SignedAmount is the transaction's effect on the balance.
func (c CashierTransaction) SignedAmount() decimal.Decimal {
	return c.TransactionType.Impact(c.Amount)
}

// EnsureCashierBalance creates the balance row if it does not exist yet.
func EnsureCashierBalance(ctx context.Context, db *gorm.DB) (*CashierBalance, error) {
	var balance CashierBalance
	err := db.WithContext(ctx).
		Where(CashierBalance{BalanceKey: MainCashierKey}).
		Attrs(CashierBalance{Balance: decimal.Zero, LastUpdatedAt: time.Now().UTC()}).
		FirstOrCreate(&balance).Error
	if err != nil {
		if !IsDuplicateKeyError(err) {
			return nil, err
		}
		// lost the creation race; the row exists now
		if err := db.WithContext(ctx).Where(CashierBalance{BalanceKey: MainCashierKey}).First(&balance).Error; err != nil {
			return nil, err
		}
	}
	return &balance, nil
}

type CashierTransactionFilter struct {
	TransactionType *TransactionType
	ReferenceId     *int
	FromDate        *time.Time
	ToDate          *time.Time
}

func (f CashierTransactionFilter) apply(db *gorm.DB) *gorm.DB {
	if f.TransactionType != nil {
		db = db.Where("transaction_type = ?", *f.TransactionType)
	}
	if f.ReferenceId != nil {
		db = db.Where("reference_id = ?", *f.ReferenceId)
	}
	if f.FromDate != nil {
		db = db.Where("transaction_date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		db = db.Where("transaction_date <= ?", *f.ToDate)
	}
	return db
}

func ListCashierTransactions(ctx context.Context, db *gorm.DB, filter CashierTransactionFilter) ([]*CashierTransaction, error) {
	var txns []*CashierTransaction
	err := filter.apply(db.WithContext(ctx)).
		Order("transaction_date DESC").Order("id DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
