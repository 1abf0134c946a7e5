package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerStore persists the cashier balance and its transactions.
// Every method runs on the handle it is given, so callers keep one transaction per operation.
type GormLedgerStore struct{}

func NewGormLedgerStore() *GormLedgerStore {
	return &GormLedgerStore{}
}

// LockBalance reads the balance row with a row lock, creating it on first use.
func (GormLedgerStore) LockBalance(ctx context.Context, tx *gorm.DB) (*CashierBalance, error) {
	var balance CashierBalance
	err := ForUpdate(tx.WithContext(ctx)).
		Where(CashierBalance{BalanceKey: MainCashierKey}).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	balance = CashierBalance{
		BalanceKey:    MainCashierKey,
		Balance:       decimal.Zero,
		LastUpdatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&balance).Error; err != nil {
		if !IsDuplicateKeyError(err) {
			return nil, err
		}
		// created concurrently; lock the winner's row
		balance = CashierBalance{}
		if err := ForUpdate(tx.WithContext(ctx)).Where(CashierBalance{BalanceKey: MainCashierKey}).First(&balance).Error; err != nil {
			return nil, err
		}
	}
	return &balance, nil
}

func (GormLedgerStore) SaveBalance(ctx context.Context, tx *gorm.DB, balance *CashierBalance) error {
	return tx.WithContext(ctx).Model(balance).Updates(map[string]interface{}{
		"balance":         balance.Balance,
		"last_updated_at": balance.LastUpdatedAt,
	}).Error
}

// ReadBalance returns the current balance without locking. A missing row reads as zero.
func (GormLedgerStore) ReadBalance(ctx context.Context, db *gorm.DB) (*CashierBalance, error) {
	var balance CashierBalance
	err := db.WithContext(ctx).Where(CashierBalance{BalanceKey: MainCashierKey}).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CashierBalance{BalanceKey: MainCashierKey, Balance: decimal.Zero}, nil
		}
		return nil, err
	}
	return &balance, nil
}

// FindTransaction looks a transaction up by its logical key. It returns nil, nil when there is none.
func (GormLedgerStore) FindTransaction(ctx context.Context, tx *gorm.DB, referenceId int, txnType TransactionType) (*CashierTransaction, error) {
	var txn CashierTransaction
	err := ForUpdate(tx.WithContext(ctx)).
		Where("reference_id = ? AND transaction_type = ?", referenceId, txnType).
		Order("id").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (GormLedgerStore) CreateTransaction(ctx context.Context, tx *gorm.DB, txn *CashierTransaction) error {
	return tx.WithContext(ctx).Create(txn).Error
}

func (GormLedgerStore) SaveTransaction(ctx context.Context, tx *gorm.DB, txn *CashierTransaction) error {
	return tx.WithContext(ctx).Save(txn).Error
}

func (GormLedgerStore) DeleteTransaction(ctx context.Context, tx *gorm.DB, txn *CashierTransaction) error {
	return tx.WithContext(ctx).Delete(txn).Error
}

// SumSignedTransactions folds every transaction through the sign table.
// Per-type sums are rounded to cents since some dialects sum in floating point.
func (GormLedgerStore) SumSignedTransactions(ctx context.Context, db *gorm.DB) (decimal.Decimal, error) {
	type typeTotal struct {
		TransactionType TransactionType
		Total           decimal.Decimal
	}
	var rows []typeTotal
	err := db.WithContext(ctx).Model(&CashierTransaction{}).
		Select("transaction_type, COALESCE(SUM(amount), 0) AS total").
		Group("transaction_type").
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.TransactionType.Impact(utils.RoundMoney(r.Total)))
	}
	return sum, nil
}
