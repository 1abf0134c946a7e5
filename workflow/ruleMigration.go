package workflow

import (
	"context"
	"errors"

	"bitbucket.org/broman/realty_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TargetAssignment is one commission rule classified by the migration.
type TargetAssignment struct {
	RuleId int                     `json:"rule_id"`
	NameAr string                  `json:"name_ar"`
	NameEn string                  `json:"name_en"`
	Target models.CommissionTarget `json:"target"`
}

// MigrateCommissionTargets fills commission_target on commission rules stored without one,
// using the legacy name keywords. With dryRun nothing is written.
func MigrateCommissionTargets(ctx context.Context, db *gorm.DB, logger *logrus.Logger, dryRun bool) ([]TargetAssignment, error) {
	var assignments []TargetAssignment
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rules []*models.CalculationRule
		err := models.ForUpdate(tx.WithContext(ctx)).
			Where("rule_type = ?", models.RuleTypeCommission).
			Where("commission_target IS NULL OR commission_target = ''").
			Order("id").
			Find(&rules).Error
		if err != nil {
			return err
		}
		for _, rule := range rules {
			target := models.ClassifyCommissionTarget(rule.NameAr, rule.NameEn)
			assignments = append(assignments, TargetAssignment{
				RuleId: rule.ID,
				NameAr: rule.NameAr,
				NameEn: rule.NameEn,
				Target: target,
			})
			if dryRun {
				continue
			}
			if err := tx.WithContext(ctx).Model(rule).Update("commission_target", target).Error; err != nil {
				return err
			}
		}
		if dryRun {
			return errDryRunRollback
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRunRollback) {
		return nil, err
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":   "MigrateCommissionTargets",
			"rules":   len(assignments),
			"dry_run": dryRun,
		}).Info("commission target migration completed")
	}
	return assignments, nil
}
