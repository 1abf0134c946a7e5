package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LedgerCheckOptions struct {
	// RepairBalance overwrites the stored balance with the transaction sum when they drift.
	RepairBalance bool
	// DryRun rolls every write back, reports included.
	DryRun bool
}

// MissingPosting is a business record with no cashier transaction.
type MissingPosting struct {
	ReferenceType   string                 `json:"reference_type"`
	ReferenceId     int                    `json:"reference_id"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal        `json:"amount"`
}

type LedgerCheckReport struct {
	Audit             *AuditResult     `json:"audit"`
	Missing           []MissingPosting `json:"missing"`
	DegradedSales     []int            `json:"degraded_sales"`
	ReportsWritten    int              `json:"reports_written"`
	DryRun            bool             `json:"dry_run"`
	BalanceConsistent bool             `json:"balance_consistent"`
}

var errDryRunRollback = errors.New("dry run rollback")

// postingSources lists every table whose rows must own exactly one cashier transaction.
var postingSources = []struct {
	referenceType string
	table         string
	amountColumn  string
	txnType       models.TransactionType
}{
	{"Sale", "sales", "net_company_revenue", models.TransactionTypeSaleRevenue},
	{"Expense", "expenses", "amount", models.TransactionTypeExpensePayment},
	{"RentalPayment", "rental_payments", "amount", models.TransactionTypeRentalIncome},
	{"FinishingWorkExpense", "finishing_work_expenses", "amount", models.TransactionTypeFinishingWorkExpense},
}

func findMissingPostings(ctx context.Context, tx *gorm.DB) ([]MissingPosting, error) {
	var missing []MissingPosting
	for _, src := range postingSources {
		var rows []struct {
			Id     int
			Amount decimal.Decimal
		}
		err := tx.WithContext(ctx).Table(src.table+" AS r").
			Select(fmt.Sprintf("r.id AS id, r.%s AS amount", src.amountColumn)).
			Joins("LEFT JOIN cashier_transactions t ON t.reference_id = r.id AND t.transaction_type = ?", src.txnType).
			Where("t.id IS NULL").
			Order("r.id").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			missing = append(missing, MissingPosting{
				ReferenceType:   src.referenceType,
				ReferenceId:     r.Id,
				TransactionType: src.txnType,
				Amount:          r.Amount,
			})
		}
	}
	return missing, nil
}

func findDegradedSales(ctx context.Context, tx *gorm.DB) ([]int, error) {
	var sales []*models.Sale
	if err := tx.WithContext(ctx).Order("id").Find(&sales).Error; err != nil {
		return nil, err
	}
	var ids []int
	for _, sale := range sales {
		if sale.BreakdownError != nil {
			ids = append(ids, sale.ID)
		}
	}
	return ids, nil
}

// RunLedgerChecks audits the balance against its transactions, lists business records with
// no posting and sales whose stored breakdown cannot be decoded. Every finding is written
// to cashier_reconciliation_reports.
func (s *Service) RunLedgerChecks(ctx context.Context, opts LedgerCheckOptions) (*LedgerCheckReport, error) {
	report := &LedgerCheckReport{DryRun: opts.DryRun}
	correlationId := utils.CorrelationId(ctx)

	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		audit, err := s.ledger.Audit(ctx, tx, opts.RepairBalance)
		if err != nil {
			return err
		}
		report.Audit = audit
		report.BalanceConsistent = audit.Consistent()
		if !audit.Consistent() {
			report.ReportsWritten++
		}

		report.Missing, err = findMissingPostings(ctx, tx)
		if err != nil {
			return err
		}
		for _, m := range report.Missing {
			row := &models.ReconciliationReport{
				CheckType:       models.CheckTypeMissingTransaction,
				ReferenceType:   m.ReferenceType,
				ReferenceId:     m.ReferenceId,
				TransactionType: m.TransactionType,
				Step:            "audit",
				Details:         fmt.Sprintf("no %s posting for %s %d (amount %s)", m.TransactionType, m.ReferenceType, m.ReferenceId, m.Amount),
				CorrelationId:   correlationId,
			}
			if err := models.CreateReconciliationReport(ctx, tx, row); err != nil {
				return err
			}
			report.ReportsWritten++
		}

		report.DegradedSales, err = findDegradedSales(ctx, tx)
		if err != nil {
			return err
		}
		for _, id := range report.DegradedSales {
			row := &models.ReconciliationReport{
				CheckType:     models.CheckTypeDegradedBreakdown,
				ReferenceType: "Sale",
				ReferenceId:   id,
				Step:          "audit",
				Details:       "stored calculation breakdown could not be decoded",
				CorrelationId: correlationId,
			}
			if err := models.CreateReconciliationReport(ctx, tx, row); err != nil {
				return err
			}
			report.ReportsWritten++
		}

		if opts.DryRun {
			return errDryRunRollback
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRunRollback) {
		s.logError("RunLedgerChecks", "running ledger checks", opts, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"field":              "LedgerChecks",
		"balance_consistent": report.BalanceConsistent,
		"missing":            len(report.Missing),
		"degraded_sales":     len(report.DegradedSales),
		"dry_run":            opts.DryRun,
		"correlation_id":     correlationId,
	}).Info("cashier ledger checks completed")
	return report, nil
}
