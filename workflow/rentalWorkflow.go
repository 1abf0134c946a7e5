package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"gorm.io/gorm"
)

func rentalPaymentNote(rental *models.Rental) string {
	return fmt.Sprintf("Rent from %s", rental.TenantName)
}

func parseRentalPeriod(input *models.NewRental) (start, end time.Time, err error) {
	s, err := utils.ParseDate(input.StartDate)
	if err != nil {
		return start, end, utils.NewValidationError("start_date", "must be YYYY-MM-DD")
	}
	e, err := utils.ParseDate(input.EndDate)
	if err != nil {
		return start, end, utils.NewValidationError("end_date", "must be YYYY-MM-DD")
	}
	if e.Before(s) {
		return start, end, utils.NewValidationError("end_date", "must not be before start_date")
	}
	return s, e, nil
}

// claimUnitForRental marks the unit rented. A sold unit cannot be rented.
func claimUnitForRental(ctx context.Context, tx *gorm.DB, unitId int) (*models.Unit, error) {
	unit, err := models.GetUnitForUpdate(ctx, tx, unitId)
	if err != nil {
		return nil, err
	}
	if unit.Status == models.UnitStatusSold {
		return nil, utils.NewConflict("unit", unit.ID, "unit is sold")
	}
	if err := models.SetUnitStatus(ctx, tx, unit, models.UnitStatusRented); err != nil {
		return nil, err
	}
	return unit, nil
}

// releaseRentedUnit puts a rented unit back on the market.
func releaseRentedUnit(ctx context.Context, tx *gorm.DB, unitId int) error {
	unit, err := models.GetUnitForUpdate(ctx, tx, unitId)
	if err != nil {
		if utils.IsNotFound(err) {
			return nil
		}
		return err
	}
	if unit.Status != models.UnitStatusRented {
		return nil
	}
	return models.SetUnitStatus(ctx, tx, unit, models.UnitStatusAvailable)
}

func (s *Service) CreateRental(ctx context.Context, input *models.NewRental) (*models.Rental, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	start, end, err := parseRentalPeriod(input)
	if err != nil {
		return nil, err
	}

	var rental *models.Rental
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := claimUnitForRental(ctx, tx, input.UnitId); err != nil {
			return err
		}
		rental = &models.Rental{
			UnitId:           input.UnitId,
			TenantName:       input.TenantName,
			StartDate:        start,
			EndDate:          end,
			RentAmount:       utils.RoundMoney(input.RentAmount),
			PaymentFrequency: input.PaymentFrequency,
			Notes:            input.Notes,
			UserId:           actorId(ctx),
		}
		return tx.WithContext(ctx).Create(rental).Error
	})
	if err != nil {
		s.logError("CreateRental", "creating rental", input, err)
		return nil, err
	}
	return rental, nil
}

// UpdateRental rewrites the contract. Moving it to another unit frees the old one.
func (s *Service) UpdateRental(ctx context.Context, id int, input *models.NewRental) (*models.Rental, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	start, end, err := parseRentalPeriod(input)
	if err != nil {
		return nil, err
	}

	var rental *models.Rental
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rental, err = models.GetRentalForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if rental.UnitId != input.UnitId {
			if err := releaseRentedUnit(ctx, tx, rental.UnitId); err != nil {
				return err
			}
			if _, err := claimUnitForRental(ctx, tx, input.UnitId); err != nil {
				return err
			}
		}
		rental.UnitId = input.UnitId
		rental.TenantName = input.TenantName
		rental.StartDate = start
		rental.EndDate = end
		rental.RentAmount = utils.RoundMoney(input.RentAmount)
		rental.PaymentFrequency = input.PaymentFrequency
		rental.Notes = input.Notes
		return tx.WithContext(ctx).Omit("Payments").Save(rental).Error
	})
	if err != nil {
		s.logError("UpdateRental", "updating rental", id, err)
		return nil, err
	}
	return rental, nil
}

// DeleteRental frees the unit, then reverses and deletes every payment of the rental.
// The unit row is locked before the cashier balance, the same order CreateSale uses.
func (s *Service) DeleteRental(ctx context.Context, id int) (*models.Rental, *Outcome, error) {
	var rental *models.Rental
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		rental, err = models.GetRentalForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := releaseRentedUnit(ctx, tx, rental.UnitId); err != nil {
			return err
		}
		payments, err := models.ListRentalPayments(ctx, tx, rental.ID)
		if err != nil {
			return err
		}
		for _, payment := range payments {
			res, err := s.ledger.Reverse(ctx, tx, payment.ID, models.TransactionTypeRentalIncome)
			if err != nil {
				return err
			}
			outcome.absorb(res)
			if err := tx.WithContext(ctx).Delete(payment).Error; err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Delete(rental).Error; err != nil {
			return err
		}
		outcome.Balance, err = s.ledger.CurrentBalance(ctx, tx)
		return err
	})
	if err != nil {
		s.logError("DeleteRental", "deleting rental", id, err)
		return nil, nil, err
	}
	return rental, outcome, nil
}

// AddRentalPayment records a rent payment as rental_income.
func (s *Service) AddRentalPayment(ctx context.Context, rentalId int, input *models.NewRentalPayment) (*models.RentalPayment, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	paymentDate, err := utils.ParseDate(input.PaymentDate)
	if err != nil {
		return nil, nil, err
	}
	status := input.Status
	if status == "" {
		status = models.RentalPaymentStatusPaid
	}

	var payment *models.RentalPayment
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		rental, err := models.GetRental(ctx, tx, rentalId)
		if err != nil {
			return err
		}
		payment = &models.RentalPayment{
			RentalId:    rental.ID,
			PaymentDate: paymentDate,
			Amount:      utils.RoundMoney(input.Amount),
			Status:      status,
			Notes:       input.Notes,
		}
		if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
			return err
		}

		ref := payment.ID
		res, err := s.ledger.Record(ctx, tx, LedgerEntry{
			Type:        models.TransactionTypeRentalIncome,
			Amount:      payment.Amount,
			ReferenceId: &ref,
			ActorId:     actorId(ctx),
			Note:        rentalPaymentNote(rental),
			Date:        paymentDate,
		})
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("AddRentalPayment", "adding rental payment", rentalId, err)
		return nil, nil, err
	}
	return payment, outcome, nil
}

func (s *Service) UpdateRentalPayment(ctx context.Context, id int, input *models.NewRentalPayment) (*models.RentalPayment, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	paymentDate, err := utils.ParseDate(input.PaymentDate)
	if err != nil {
		return nil, nil, err
	}

	var payment *models.RentalPayment
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = models.GetRentalPaymentForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		oldAmount := payment.Amount
		oldDate := payment.PaymentDate
		payment.PaymentDate = paymentDate
		payment.Amount = utils.RoundMoney(input.Amount)
		if input.Status != "" {
			payment.Status = input.Status
		}
		payment.Notes = input.Notes
		if err := tx.WithContext(ctx).Save(payment).Error; err != nil {
			return err
		}
		if !oldAmount.Equal(payment.Amount) || !oldDate.Equal(payment.PaymentDate) {
			res, err := s.ledger.Adjust(ctx, tx, payment.ID, models.TransactionTypeRentalIncome, LedgerAdjustment{
				Amount:  payment.Amount,
				ActorId: actorId(ctx),
				Date:    payment.PaymentDate,
			})
			if err != nil {
				return err
			}
			outcome.absorb(res)
		}
		outcome.Balance, err = s.ledger.CurrentBalance(ctx, tx)
		return err
	})
	if err != nil {
		s.logError("UpdateRentalPayment", "updating rental payment", id, err)
		return nil, nil, err
	}
	return payment, outcome, nil
}

func (s *Service) DeleteRentalPayment(ctx context.Context, id int) (*models.RentalPayment, *Outcome, error) {
	var payment *models.RentalPayment
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = models.GetRentalPaymentForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := s.ledger.Reverse(ctx, tx, payment.ID, models.TransactionTypeRentalIncome)
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return tx.WithContext(ctx).Delete(payment).Error
	})
	if err != nil {
		s.logError("DeleteRentalPayment", "deleting rental payment", id, err)
		return nil, nil, err
	}
	return payment, outcome, nil
}
