package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// LedgerStore persists the cashier balance and transactions.
// Every method runs on the handle it receives; callers pass their open transaction.
type LedgerStore interface {
	LockBalance(ctx context.Context, tx *gorm.DB) (*models.CashierBalance, error)
	SaveBalance(ctx context.Context, tx *gorm.DB, balance *models.CashierBalance) error
	ReadBalance(ctx context.Context, db *gorm.DB) (*models.CashierBalance, error)
	FindTransaction(ctx context.Context, tx *gorm.DB, referenceId int, txnType models.TransactionType) (*models.CashierTransaction, error)
	CreateTransaction(ctx context.Context, tx *gorm.DB, txn *models.CashierTransaction) error
	SaveTransaction(ctx context.Context, tx *gorm.DB, txn *models.CashierTransaction) error
	DeleteTransaction(ctx context.Context, tx *gorm.DB, txn *models.CashierTransaction) error
	SumSignedTransactions(ctx context.Context, db *gorm.DB) (decimal.Decimal, error)
}

// LedgerEntry describes a new cashier transaction.
type LedgerEntry struct {
	Type        models.TransactionType
	Amount      decimal.Decimal
	ReferenceId *int
	ActorId     int
	Note        string
	Date        time.Time
}

// LedgerAdjustment is the new state of an existing transaction. Empty Note, zero ActorId and
// zero Date keep the stored values.
type LedgerAdjustment struct {
	Amount  decimal.Decimal
	Note    string
	ActorId int
	Date    time.Time
}

// LedgerResult is what a posting step leaves behind. Gap is set when the step found no
// transaction to adjust or reverse; the balance is then untouched.
type LedgerResult struct {
	Transaction *models.CashierTransaction
	Balance     decimal.Decimal
	Gap         *utils.ReconciliationGapError
}

// AuditResult compares the stored balance with the sum of signed transactions.
type AuditResult struct {
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ComputedBalance decimal.Decimal `json:"computed_balance"`
	Drift           decimal.Decimal `json:"drift"`
	Repaired        bool            `json:"repaired"`
}

func (a AuditResult) Consistent() bool {
	return a.Drift.IsZero()
}

// CashierLedger keeps the balance equal to the signed sum of its transactions.
// Each step locks the balance row before the transaction row so concurrent postings
// always take locks in the same order. Callers lock their own rows (unit, sale, work)
// before posting, which keeps the balance row the last lock a workflow takes.
type CashierLedger struct {
	store  LedgerStore
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewCashierLedger(store LedgerStore, logger *logrus.Logger, tracer trace.Tracer) *CashierLedger {
	return &CashierLedger{store: store, logger: logger, tracer: tracer}
}

func (l *CashierLedger) warnUnknownType(funcName string, txnType models.TransactionType, ref *int) {
	if txnType.IsKnown() {
		return
	}
	config.LogWarning(l.logger, "CashierLedger", funcName, "unknown transaction type has no balance impact", map[string]interface{}{
		"transaction_type": txnType,
		"reference_id":     ref,
	})
}

// Record adds a transaction and applies sign(type) * amount to the balance.
// A second transaction for the same (reference, type) is a conflict.
func (l *CashierLedger) Record(ctx context.Context, tx *gorm.DB, entry LedgerEntry) (*LedgerResult, error) {
	if entry.Type == "" {
		return nil, utils.NewValidationError("transaction_type", "required")
	}
	ctx, span := startSpan(ctx, l.tracer, "CashierLedger.Record",
		attribute.String("transaction_type", string(entry.Type)),
		attribute.String("amount", entry.Amount.String()),
	)
	defer span.End()

	balance, err := l.store.LockBalance(ctx, tx)
	if err != nil {
		return nil, err
	}
	if entry.ReferenceId != nil {
		existing, err := l.store.FindTransaction(ctx, tx, *entry.ReferenceId, entry.Type)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, utils.NewConflict("cashier transaction", *entry.ReferenceId,
				fmt.Sprintf("%s already recorded", entry.Type))
		}
	}
	l.warnUnknownType("Record", entry.Type, entry.ReferenceId)

	date := entry.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	txn := &models.CashierTransaction{
		TransactionDate: date,
		Amount:          utils.RoundMoney(entry.Amount),
		TransactionType: entry.Type,
		ReferenceId:     entry.ReferenceId,
		Notes:           entry.Note,
		UserId:          entry.ActorId,
	}
	if err := l.store.CreateTransaction(ctx, tx, txn); err != nil {
		if models.IsDuplicateKeyError(err) {
			return nil, utils.NewConflict("cashier transaction", utils.DereferencePtr(entry.ReferenceId),
				fmt.Sprintf("%s already recorded", entry.Type))
		}
		return nil, err
	}

	balance.Balance = balance.Balance.Add(txn.SignedAmount())
	balance.LastUpdatedAt = time.Now().UTC()
	if err := l.store.SaveBalance(ctx, tx, balance); err != nil {
		return nil, err
	}
	return &LedgerResult{Transaction: txn, Balance: balance.Balance}, nil
}

// Adjust moves the transaction of (referenceId, type) to change.Amount and shifts the balance
// by sign * (new - old). A missing transaction is a reconciliation gap.
func (l *CashierLedger) Adjust(ctx context.Context, tx *gorm.DB, referenceId int, txnType models.TransactionType, change LedgerAdjustment) (*LedgerResult, error) {
	ctx, span := startSpan(ctx, l.tracer, "CashierLedger.Adjust",
		attribute.Int("reference_id", referenceId),
		attribute.String("transaction_type", string(txnType)),
	)
	defer span.End()

	balance, err := l.store.LockBalance(ctx, tx)
	if err != nil {
		return nil, err
	}
	txn, err := l.store.FindTransaction(ctx, tx, referenceId, txnType)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		gap, err := l.reportGap(ctx, tx, referenceId, txnType, "update")
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Bool("gap", true))
		return &LedgerResult{Balance: balance.Balance, Gap: gap}, nil
	}

	oldImpact := txn.SignedAmount()
	txn.Amount = utils.RoundMoney(change.Amount)
	if change.Note != "" {
		txn.Notes = change.Note
	}
	if change.ActorId != 0 {
		txn.UserId = change.ActorId
	}
	if !change.Date.IsZero() {
		txn.TransactionDate = change.Date
	}
	if err := l.store.SaveTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	balance.Balance = balance.Balance.Sub(oldImpact).Add(txn.SignedAmount())
	balance.LastUpdatedAt = time.Now().UTC()
	if err := l.store.SaveBalance(ctx, tx, balance); err != nil {
		return nil, err
	}
	return &LedgerResult{Transaction: txn, Balance: balance.Balance}, nil
}

// Reverse removes the transaction of (referenceId, type) and takes its impact back out of
// the balance. A missing transaction is a reconciliation gap.
func (l *CashierLedger) Reverse(ctx context.Context, tx *gorm.DB, referenceId int, txnType models.TransactionType) (*LedgerResult, error) {
	ctx, span := startSpan(ctx, l.tracer, "CashierLedger.Reverse",
		attribute.Int("reference_id", referenceId),
		attribute.String("transaction_type", string(txnType)),
	)
	defer span.End()

	balance, err := l.store.LockBalance(ctx, tx)
	if err != nil {
		return nil, err
	}
	txn, err := l.store.FindTransaction(ctx, tx, referenceId, txnType)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		gap, err := l.reportGap(ctx, tx, referenceId, txnType, "delete")
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Bool("gap", true))
		return &LedgerResult{Balance: balance.Balance, Gap: gap}, nil
	}

	if err := l.store.DeleteTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}
	balance.Balance = balance.Balance.Sub(txn.SignedAmount())
	balance.LastUpdatedAt = time.Now().UTC()
	if err := l.store.SaveBalance(ctx, tx, balance); err != nil {
		return nil, err
	}
	return &LedgerResult{Transaction: txn, Balance: balance.Balance}, nil
}

// RepairGap records the transaction a previous gap report found missing.
func (l *CashierLedger) RepairGap(ctx context.Context, tx *gorm.DB, referenceId int, txnType models.TransactionType, amount decimal.Decimal, actorId int, note string) (*LedgerResult, error) {
	ref := referenceId
	result, err := l.Record(ctx, tx, LedgerEntry{
		Type:        txnType,
		Amount:      amount,
		ReferenceId: &ref,
		ActorId:     actorId,
		Note:        note,
	})
	if err != nil {
		return nil, err
	}
	report := &models.ReconciliationReport{
		CheckType:       models.CheckTypeGapRepaired,
		ReferenceType:   "CashierTransaction",
		ReferenceId:     referenceId,
		TransactionType: txnType,
		Step:            "repair",
		Details:         fmt.Sprintf("recorded %s for %s", txnType, result.Transaction.Amount),
		CorrelationId:   utils.CorrelationId(ctx),
	}
	if err := models.CreateReconciliationReport(ctx, tx, report); err != nil {
		return nil, err
	}
	return result, nil
}

// reportGap persists and logs a missing-transaction finding.
func (l *CashierLedger) reportGap(ctx context.Context, tx *gorm.DB, referenceId int, txnType models.TransactionType, step string) (*utils.ReconciliationGapError, error) {
	gap := &utils.ReconciliationGapError{
		ReferenceId:     referenceId,
		TransactionType: string(txnType),
		Step:            step,
	}
	report := &models.ReconciliationReport{
		CheckType:       models.CheckTypeMissingTransaction,
		ReferenceType:   "CashierTransaction",
		ReferenceId:     referenceId,
		TransactionType: txnType,
		Step:            step,
		Details:         gap.Error(),
		CorrelationId:   utils.CorrelationId(ctx),
	}
	if err := models.CreateReconciliationReport(ctx, tx, report); err != nil {
		return nil, err
	}
	config.LogWarning(l.logger, "CashierLedger", step, gap.Error(), map[string]interface{}{
		"reference_id":     referenceId,
		"transaction_type": txnType,
		"correlation_id":   report.CorrelationId,
	})
	return gap, nil
}

// CurrentBalance reads the balance without locking.
func (l *CashierLedger) CurrentBalance(ctx context.Context, db *gorm.DB) (decimal.Decimal, error) {
	balance, err := l.store.ReadBalance(ctx, db)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Balance, nil
}

// Audit compares the locked balance with the signed transaction sum and files a drift report.
// With repair set the balance is overwritten by the computed value.
func (l *CashierLedger) Audit(ctx context.Context, tx *gorm.DB, repair bool) (*AuditResult, error) {
	ctx, span := startSpan(ctx, l.tracer, "CashierLedger.Audit", attribute.Bool("repair", repair))
	defer span.End()

	balance, err := l.store.LockBalance(ctx, tx)
	if err != nil {
		return nil, err
	}
	computed, err := l.store.SumSignedTransactions(ctx, tx)
	if err != nil {
		return nil, err
	}
	result := &AuditResult{
		StoredBalance:   balance.Balance,
		ComputedBalance: computed,
		Drift:           balance.Balance.Sub(computed),
	}
	if result.Consistent() {
		return result, nil
	}

	report := &models.ReconciliationReport{
		CheckType:     models.CheckTypeBalanceDrift,
		ReferenceType: "CashierBalance",
		ReferenceId:   balance.ID,
		Step:          "audit",
		Details:       fmt.Sprintf("stored=%s computed=%s drift=%s repaired=%t", result.StoredBalance, computed, result.Drift, repair),
		CorrelationId: utils.CorrelationId(ctx),
	}
	if err := models.CreateReconciliationReport(ctx, tx, report); err != nil {
		return nil, err
	}
	config.LogWarning(l.logger, "CashierLedger", "Audit", "cashier balance drift", report.Details)

	if repair {
		balance.Balance = computed
		balance.LastUpdatedAt = time.Now().UTC()
		if err := l.store.SaveBalance(ctx, tx, balance); err != nil {
			return nil, err
		}
		result.Repaired = true
	}
	return result, nil
}
