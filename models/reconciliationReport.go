package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Check types written to cashier_reconciliation_reports.
const (
	CheckTypeMissingTransaction = "MISSING_TRANSACTION"
	CheckTypeBalanceDrift       = "BALANCE_DRIFT"
	CheckTypeGapRepaired        = "GAP_REPAIRED"
	CheckTypeDegradedBreakdown  = "DEGRADED_BREAKDOWN"
)

// ReconciliationReport records a ledger inconsistency for manual follow-up.
type ReconciliationReport struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CheckType       string          `gorm:"size:50;index;not null" json:"check_type"`
	ReferenceType   string          `gorm:"size:50;index" json:"reference_type"` // e.g. Sale, Expense, CashierBalance
	ReferenceId     int             `gorm:"index" json:"reference_id"`
	TransactionType TransactionType `gorm:"size:50" json:"transaction_type"`
	Step            string          `gorm:"size:50" json:"step"` // update, delete, audit
	Details         string          `gorm:"type:text" json:"details"`
	CorrelationId   string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (ReconciliationReport) TableName() string {
	return "cashier_reconciliation_reports"
}

func CreateReconciliationReport(ctx context.Context, db *gorm.DB, report *ReconciliationReport) error {
	return db.WithContext(ctx).Create(report).Error
}

type ReconciliationReportFilter struct {
	CheckType   *string
	ReferenceId *int
	Limit       int
}

func ListReconciliationReports(ctx context.Context, db *gorm.DB, filter ReconciliationReportFilter) ([]*ReconciliationReport, error) {
	var reports []*ReconciliationReport
	dbCtx := db.WithContext(ctx)
	if filter.CheckType != nil {
		dbCtx = dbCtx.Where("check_type = ?", *filter.CheckType)
	}
	if filter.ReferenceId != nil {
		dbCtx = dbCtx.Where("reference_id = ?", *filter.ReferenceId)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if err := dbCtx.Order("id DESC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
