package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func saleRevenueNote(unit *models.Unit) string {
	return fmt.Sprintf("Sale revenue for unit %s", unit.Code)
}

// EvaluateSaleCalculation previews the breakdown of selling unitId at price without writing anything.
func (s *Service) EvaluateSaleCalculation(ctx context.Context, unitId int, price decimal.Decimal, salespersonId *int, salesManagerId *int) (*models.CalculationBreakdown, error) {
	unit, err := models.GetUnit(ctx, s.db, unitId)
	if err != nil {
		return nil, err
	}
	return s.calculator(ctx, s.db).Calculate(ctx, s.db, price, CalculationContext{
		UnitType:       unit.UnitType,
		SalespersonId:  salespersonId,
		SalesManagerId: salesManagerId,
	})
}

// CreateSale sells an available unit, stores the breakdown and books the net company
// revenue as sale_revenue.
func (s *Service) CreateSale(ctx context.Context, input *models.NewSale) (*models.Sale, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	saleDate, err := utils.ParseDate(input.SaleDate)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := startSpan(ctx, s.tracer, "Service.CreateSale", attribute.Int("unit_id", input.UnitId))
	defer span.End()

	var sale *models.Sale
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		unit, err := models.GetUnitForUpdate(ctx, tx, input.UnitId)
		if err != nil {
			return err
		}
		if unit.Status != models.UnitStatusAvailable {
			return utils.NewConflict("unit", unit.ID, "unit is not available")
		}

		breakdown, err := s.calculator(ctx, tx).Calculate(ctx, tx, input.SalePrice, CalculationContext{
			UnitType:       unit.UnitType,
			SalespersonId:  input.SalespersonId,
			SalesManagerId: input.SalesManagerId,
		})
		if err != nil {
			return err
		}

		sale = &models.Sale{
			UnitId:         unit.ID,
			ClientName:     input.ClientName,
			SaleDate:       saleDate,
			SalePrice:      input.SalePrice,
			SalespersonId:  input.SalespersonId,
			SalesManagerId: input.SalesManagerId,
			Notes:          input.Notes,
			UserId:         actorId(ctx),
		}
		if err := sale.ApplyBreakdown(breakdown); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(sale).Error; err != nil {
			return err
		}
		if err := models.SetUnitStatus(ctx, tx, unit, models.UnitStatusSold); err != nil {
			return err
		}

		ref := sale.ID
		res, err := s.ledger.Record(ctx, tx, LedgerEntry{
			Type:        models.TransactionTypeSaleRevenue,
			Amount:      sale.NetCompanyRevenue,
			ReferenceId: &ref,
			ActorId:     sale.UserId,
			Note:        saleRevenueNote(unit),
			Date:        saleDate,
		})
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("CreateSale", "creating sale", input, err)
		return nil, nil, err
	}
	return sale, outcome, nil
}

// UpdateSale rewrites a sale. The breakdown is recomputed only when the price, the unit,
// the unit type or the participants changed; the ledger follows the new net revenue.
func (s *Service) UpdateSale(ctx context.Context, id int, input *models.NewSale) (*models.Sale, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	saleDate, err := utils.ParseDate(input.SaleDate)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := startSpan(ctx, s.tracer, "Service.UpdateSale", attribute.Int("sale_id", id))
	defer span.End()

	var sale *models.Sale
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		sale, err = models.GetSaleForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		unit, err := models.GetUnitForUpdate(ctx, tx, input.UnitId)
		if err != nil {
			return err
		}
		unitChanged := sale.UnitId != input.UnitId
		if unitChanged {
			if unit.Status != models.UnitStatusAvailable {
				return utils.NewConflict("unit", unit.ID, "unit is not available")
			}
			oldUnit, err := models.GetUnitForUpdate(ctx, tx, sale.UnitId)
			if err != nil && !utils.IsNotFound(err) {
				return err
			}
			if oldUnit != nil && oldUnit.Status == models.UnitStatusSold {
				if err := models.SetUnitStatus(ctx, tx, oldUnit, models.UnitStatusAvailable); err != nil {
					return err
				}
			}
			if err := models.SetUnitStatus(ctx, tx, unit, models.UnitStatusSold); err != nil {
				return err
			}
		}

		recompute := unitChanged ||
			!sale.SalePrice.Equal(input.SalePrice) ||
			!sameIntPtr(sale.SalespersonId, input.SalespersonId) ||
			!sameIntPtr(sale.SalesManagerId, input.SalesManagerId) ||
			sale.BreakdownError != nil ||
			sale.Breakdown == nil ||
			sale.Breakdown.UnitType != unit.UnitType

		oldNet := sale.NetCompanyRevenue
		oldDate := sale.SaleDate
		sale.UnitId = unit.ID
		sale.ClientName = input.ClientName
		sale.SaleDate = saleDate
		sale.SalePrice = input.SalePrice
		sale.SalespersonId = input.SalespersonId
		sale.SalesManagerId = input.SalesManagerId
		sale.Notes = input.Notes

		if recompute {
			breakdown, err := s.calculator(ctx, tx).Calculate(ctx, tx, input.SalePrice, CalculationContext{
				UnitType:       unit.UnitType,
				SalespersonId:  input.SalespersonId,
				SalesManagerId: input.SalesManagerId,
			})
			if err != nil {
				return err
			}
			if err := sale.ApplyBreakdown(breakdown); err != nil {
				return err
			}
		}

		if !oldNet.Equal(sale.NetCompanyRevenue) || !oldDate.Equal(sale.SaleDate) {
			res, err := s.ledger.Adjust(ctx, tx, sale.ID, models.TransactionTypeSaleRevenue, LedgerAdjustment{
				Amount:  sale.NetCompanyRevenue,
				Note:    saleRevenueNote(unit),
				ActorId: actorId(ctx),
				Date:    sale.SaleDate,
			})
			if err != nil {
				return err
			}
			outcome.absorb(res)
		}

		if err := s.syncCommissionPayouts(ctx, tx, sale, outcome); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Save(sale).Error; err != nil {
			return err
		}
		outcome.Balance, err = s.ledger.CurrentBalance(ctx, tx)
		return err
	})
	if err != nil {
		s.logError("UpdateSale", "updating sale", id, err)
		return nil, nil, err
	}
	return sale, outcome, nil
}

// syncCommissionPayouts keeps already paid commissions in step with the recomputed amounts.
// A payout whose participant was removed, or whose amount dropped to zero, is reversed.
func (s *Service) syncCommissionPayouts(ctx context.Context, tx *gorm.DB, sale *models.Sale, outcome *Outcome) error {
	for _, target := range []models.CommissionTarget{models.CommissionTargetSalesperson, models.CommissionTargetSalesManager} {
		payout := commissionPayoutOf(sale, target)
		if *payout.paidAt == nil {
			continue
		}
		var (
			res *LedgerResult
			err error
		)
		if payout.participant == nil || !payout.amount.IsPositive() {
			res, err = s.ledger.Reverse(ctx, tx, sale.ID, payout.txnType)
			*payout.paidAt = nil
		} else {
			res, err = s.ledger.Adjust(ctx, tx, sale.ID, payout.txnType, LedgerAdjustment{Amount: payout.amount, ActorId: actorId(ctx)})
		}
		if err != nil {
			return err
		}
		outcome.absorb(res)
	}
	return nil
}

type commissionPayout struct {
	txnType     models.TransactionType
	participant *int
	amount      decimal.Decimal
	paidAt      **time.Time
}

func commissionPayoutOf(sale *models.Sale, target models.CommissionTarget) commissionPayout {
	if target == models.CommissionTargetSalesManager {
		return commissionPayout{
			txnType:     models.TransactionTypeSalesManagerCommissionPayment,
			participant: sale.SalesManagerId,
			amount:      sale.SalesManagerCommission,
			paidAt:      &sale.SalesManagerCommissionPaidAt,
		}
	}
	return commissionPayout{
		txnType:     models.TransactionTypeSalespersonCommissionPayment,
		participant: sale.SalespersonId,
		amount:      sale.SalespersonCommission,
		paidAt:      &sale.SalespersonCommissionPaidAt,
	}
}

// DeleteSale frees the unit, then reverses the sale revenue and any paid commissions.
// The unit row is locked before the cashier balance, the same order CreateSale uses.
func (s *Service) DeleteSale(ctx context.Context, id int) (*models.Sale, *Outcome, error) {
	ctx, span := startSpan(ctx, s.tracer, "Service.DeleteSale", attribute.Int("sale_id", id))
	defer span.End()

	var sale *models.Sale
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		sale, err = models.GetSaleForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		unit, err := models.GetUnitForUpdate(ctx, tx, sale.UnitId)
		if err != nil && !utils.IsNotFound(err) {
			return err
		}
		if unit != nil && unit.Status == models.UnitStatusSold {
			if err := models.SetUnitStatus(ctx, tx, unit, models.UnitStatusAvailable); err != nil {
				return err
			}
		}

		res, err := s.ledger.Reverse(ctx, tx, sale.ID, models.TransactionTypeSaleRevenue)
		if err != nil {
			return err
		}
		outcome.absorb(res)

		for _, target := range []models.CommissionTarget{models.CommissionTargetSalesperson, models.CommissionTargetSalesManager} {
			payout := commissionPayoutOf(sale, target)
			if *payout.paidAt == nil {
				continue
			}
			res, err := s.ledger.Reverse(ctx, tx, sale.ID, payout.txnType)
			if err != nil {
				return err
			}
			outcome.absorb(res)
		}

		return tx.WithContext(ctx).Delete(sale).Error
	})
	if err != nil {
		s.logError("DeleteSale", "deleting sale", id, err)
		return nil, nil, err
	}
	return sale, outcome, nil
}

// PayCommission pays out the salesperson or sales manager commission of a sale from the cashier.
func (s *Service) PayCommission(ctx context.Context, saleId int, target models.CommissionTarget) (*models.Sale, *Outcome, error) {
	if target != models.CommissionTargetSalesperson && target != models.CommissionTargetSalesManager {
		return nil, nil, utils.NewValidationError("target", "must be salesperson or sales_manager")
	}

	var sale *models.Sale
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		sale, err = models.GetSaleForUpdate(ctx, tx, saleId)
		if err != nil {
			return err
		}
		payout := commissionPayoutOf(sale, target)
		if payout.participant == nil {
			return utils.NewValidationError("target", fmt.Sprintf("sale has no %s", target))
		}
		if *payout.paidAt != nil {
			return utils.NewConflict("sale", sale.ID, fmt.Sprintf("%s commission already paid", target))
		}
		if !payout.amount.IsPositive() {
			return utils.NewValidationError("target", fmt.Sprintf("%s commission is zero", target))
		}

		ref := sale.ID
		res, err := s.ledger.Record(ctx, tx, LedgerEntry{
			Type:        payout.txnType,
			Amount:      payout.amount,
			ReferenceId: &ref,
			ActorId:     actorId(ctx),
			Note:        fmt.Sprintf("%s commission for sale %d", target, sale.ID),
		})
		if err != nil {
			return err
		}
		outcome.absorb(res)

		now := time.Now().UTC()
		*payout.paidAt = &now
		return tx.WithContext(ctx).Save(sale).Error
	})
	if err != nil {
		s.logError("PayCommission", "paying commission", map[string]interface{}{"sale_id": saleId, "target": target}, err)
		return nil, nil, err
	}
	return sale, outcome, nil
}

// CancelCommissionPayment reverses a commission payout and marks it unpaid.
func (s *Service) CancelCommissionPayment(ctx context.Context, saleId int, target models.CommissionTarget) (*models.Sale, *Outcome, error) {
	if target != models.CommissionTargetSalesperson && target != models.CommissionTargetSalesManager {
		return nil, nil, utils.NewValidationError("target", "must be salesperson or sales_manager")
	}

	var sale *models.Sale
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		sale, err = models.GetSaleForUpdate(ctx, tx, saleId)
		if err != nil {
			return err
		}
		payout := commissionPayoutOf(sale, target)
		if *payout.paidAt == nil {
			return utils.NewConflict("sale", sale.ID, fmt.Sprintf("%s commission is not paid", target))
		}
		res, err := s.ledger.Reverse(ctx, tx, sale.ID, payout.txnType)
		if err != nil {
			return err
		}
		outcome.absorb(res)
		*payout.paidAt = nil
		return tx.WithContext(ctx).Save(sale).Error
	})
	if err != nil {
		s.logError("CancelCommissionPayment", "reversing commission payout", saleId, err)
		return nil, nil, err
	}
	return sale, outcome, nil
}
