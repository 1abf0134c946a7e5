package workflow

import (
	"context"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewCashMovement struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Date   string          `json:"date"`
	Notes  string          `json:"notes"`
}

// NewLedgerEvent is a posting requested from outside the business workflows.
type NewLedgerEvent struct {
	TransactionType models.TransactionType `json:"transaction_type" validate:"required,max=50"`
	Amount          decimal.Decimal        `json:"amount"`
	ReferenceId     *int                   `json:"reference_id" validate:"omitempty,gt=0"`
	Date            string                 `json:"date"`
	Notes           string                 `json:"notes"`
}

func optionalDate(value string) (LedgerEntry, error) {
	var entry LedgerEntry
	if value == "" {
		return entry, nil
	}
	d, err := utils.ParseDate(value)
	if err != nil {
		return entry, err
	}
	entry.Date = d
	return entry, nil
}

func (s *Service) manualMovement(ctx context.Context, txnType models.TransactionType, input *NewCashMovement) (*models.CashierTransaction, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	entry, err := optionalDate(input.Date)
	if err != nil {
		return nil, nil, err
	}
	entry.Type = txnType
	entry.Amount = input.Amount
	entry.Note = input.Notes
	entry.ActorId = actorId(ctx)

	var txn *models.CashierTransaction
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		res, err := s.ledger.Record(ctx, tx, entry)
		if err != nil {
			return err
		}
		txn = res.Transaction
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("manualMovement", string(txnType), input, err)
		return nil, nil, err
	}
	return txn, outcome, nil
}

// Deposit adds cash that belongs to no business record.
func (s *Service) Deposit(ctx context.Context, input *NewCashMovement) (*models.CashierTransaction, *Outcome, error) {
	return s.manualMovement(ctx, models.TransactionTypeDeposit, input)
}

// Withdraw takes cash out without a business record.
func (s *Service) Withdraw(ctx context.Context, input *NewCashMovement) (*models.CashierTransaction, *Outcome, error) {
	return s.manualMovement(ctx, models.TransactionTypeWithdrawal, input)
}

// RecordLedgerEvent posts an arbitrary transaction type. Unknown types are stored with no impact.
func (s *Service) RecordLedgerEvent(ctx context.Context, input *NewLedgerEvent) (*models.CashierTransaction, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	entry, err := optionalDate(input.Date)
	if err != nil {
		return nil, nil, err
	}
	entry.Type = input.TransactionType
	entry.Amount = input.Amount
	entry.ReferenceId = input.ReferenceId
	entry.Note = input.Notes
	entry.ActorId = actorId(ctx)

	var txn *models.CashierTransaction
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		res, err := s.ledger.Record(ctx, tx, entry)
		if err != nil {
			return err
		}
		txn = res.Transaction
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("RecordLedgerEvent", "recording ledger event", input, err)
		return nil, nil, err
	}
	return txn, outcome, nil
}

// AdjustLedgerEvent moves the transaction of (referenceId, type) to a new amount.
func (s *Service) AdjustLedgerEvent(ctx context.Context, referenceId int, txnType models.TransactionType, amount decimal.Decimal) (*Outcome, error) {
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		res, err := s.ledger.Adjust(ctx, tx, referenceId, txnType, LedgerAdjustment{Amount: amount, ActorId: actorId(ctx)})
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("AdjustLedgerEvent", "adjusting ledger event", referenceId, err)
		return nil, err
	}
	return outcome, nil
}

// ReverseLedgerEvent undoes the transaction of (referenceId, type).
func (s *Service) ReverseLedgerEvent(ctx context.Context, referenceId int, txnType models.TransactionType) (*Outcome, error) {
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		res, err := s.ledger.Reverse(ctx, tx, referenceId, txnType)
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("ReverseLedgerEvent", "reversing ledger event", referenceId, err)
		return nil, err
	}
	return outcome, nil
}

// RepairLedgerGap records a transaction that a gap report found missing.
func (s *Service) RepairLedgerGap(ctx context.Context, referenceId int, txnType models.TransactionType, amount decimal.Decimal, note string) (*models.CashierTransaction, *Outcome, error) {
	var txn *models.CashierTransaction
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		res, err := s.ledger.RepairGap(ctx, tx, referenceId, txnType, amount, actorId(ctx), note)
		if err != nil {
			return err
		}
		txn = res.Transaction
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("RepairLedgerGap", "repairing ledger gap", referenceId, err)
		return nil, nil, err
	}
	return txn, outcome, nil
}

func (s *Service) GetCurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.ledger.CurrentBalance(ctx, s.db)
}

func (s *Service) GetSetting(ctx context.Context, key string, def any) any {
	return s.settings.Get(ctx, key, def)
}

func (s *Service) SetSetting(ctx context.Context, input *models.NewFinancialSetting) (*models.FinancialSetting, error) {
	return s.settings.Set(ctx, input)
}
