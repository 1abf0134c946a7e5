package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func finishingWorkExpenseNote(work *models.FinishingWork, e *models.FinishingWorkExpense) string {
	return fmt.Sprintf("Finishing work %s: %s", work.ProjectNameAr, e.DescriptionAr)
}

func parseOptionalDate(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(*value)
	if err != nil {
		return nil, utils.NewValidationError(field, "must be YYYY-MM-DD")
	}
	return &t, nil
}

func (s *Service) CreateFinishingWork(ctx context.Context, input *models.NewFinishingWork) (*models.FinishingWork, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	start, err := utils.ParseDate(input.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate(input.EndDate, "end_date")
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = models.FinishingWorkStatusInProgress
	}

	var work *models.FinishingWork
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := models.GetUnit(ctx, tx, input.UnitId); err != nil {
			return err
		}
		work = &models.FinishingWork{
			UnitId:        input.UnitId,
			ProjectNameAr: input.ProjectNameAr,
			ProjectNameEn: input.ProjectNameEn,
			StartDate:     start,
			EndDate:       end,
			Budget:        utils.RoundMoney(input.Budget),
			ActualCost:    decimal.Zero,
			Status:        status,
			Notes:         input.Notes,
		}
		return tx.WithContext(ctx).Create(work).Error
	})
	if err != nil {
		s.logError("CreateFinishingWork", "creating finishing work", input, err)
		return nil, err
	}
	return work, nil
}

// UpdateFinishingWork edits the project. ActualCost is owned by the expense operations.
func (s *Service) UpdateFinishingWork(ctx context.Context, id int, input *models.NewFinishingWork) (*models.FinishingWork, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	start, err := utils.ParseDate(input.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate(input.EndDate, "end_date")
	if err != nil {
		return nil, err
	}

	var work *models.FinishingWork
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		work, err = models.GetFinishingWorkForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if work.UnitId != input.UnitId {
			if _, err := models.GetUnit(ctx, tx, input.UnitId); err != nil {
				return err
			}
		}
		work.UnitId = input.UnitId
		work.ProjectNameAr = input.ProjectNameAr
		work.ProjectNameEn = input.ProjectNameEn
		work.StartDate = start
		work.EndDate = end
		work.Budget = utils.RoundMoney(input.Budget)
		if input.Status != "" {
			work.Status = input.Status
		}
		work.Notes = input.Notes
		return tx.WithContext(ctx).Omit("Expenses").Save(work).Error
	})
	if err != nil {
		s.logError("UpdateFinishingWork", "updating finishing work", id, err)
		return nil, err
	}
	return work, nil
}

// DeleteFinishingWork reverses every expense of the project before removing it.
func (s *Service) DeleteFinishingWork(ctx context.Context, id int) (*models.FinishingWork, *Outcome, error) {
	var work *models.FinishingWork
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		work, err = models.GetFinishingWorkForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		expenses, err := models.ListFinishingWorkExpenses(ctx, tx, work.ID)
		if err != nil {
			return err
		}
		for _, expense := range expenses {
			res, err := s.ledger.Reverse(ctx, tx, expense.ID, models.TransactionTypeFinishingWorkExpense)
			if err != nil {
				return err
			}
			outcome.absorb(res)
			if err := tx.WithContext(ctx).Delete(expense).Error; err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Delete(work).Error; err != nil {
			return err
		}
		outcome.Balance, err = s.ledger.CurrentBalance(ctx, tx)
		return err
	})
	if err != nil {
		s.logError("DeleteFinishingWork", "deleting finishing work", id, err)
		return nil, nil, err
	}
	return work, outcome, nil
}

func (s *Service) saveActualCost(ctx context.Context, tx *gorm.DB, work *models.FinishingWork, delta decimal.Decimal) error {
	work.ActualCost = work.ActualCost.Add(delta)
	return tx.WithContext(ctx).Model(work).Update("actual_cost", work.ActualCost).Error
}

// AddFinishingWorkExpense pays a project cost from the cashier and adds it to actual_cost.
func (s *Service) AddFinishingWorkExpense(ctx context.Context, workId int, input *models.NewFinishingWorkExpense) (*models.FinishingWorkExpense, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	expenseDate, err := utils.ParseDate(input.ExpenseDate)
	if err != nil {
		return nil, nil, err
	}

	var expense *models.FinishingWorkExpense
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		work, err := models.GetFinishingWorkForUpdate(ctx, tx, workId)
		if err != nil {
			return err
		}
		expense = &models.FinishingWorkExpense{
			FinishingWorkId: work.ID,
			DescriptionAr:   input.DescriptionAr,
			DescriptionEn:   input.DescriptionEn,
			Amount:          utils.RoundMoney(input.Amount),
			ExpenseDate:     expenseDate,
			Notes:           input.Notes,
		}
		if err := tx.WithContext(ctx).Create(expense).Error; err != nil {
			return err
		}
		if err := s.saveActualCost(ctx, tx, work, expense.Amount); err != nil {
			return err
		}

		ref := expense.ID
		res, err := s.ledger.Record(ctx, tx, LedgerEntry{
			Type:        models.TransactionTypeFinishingWorkExpense,
			Amount:      expense.Amount,
			ReferenceId: &ref,
			ActorId:     actorId(ctx),
			Note:        finishingWorkExpenseNote(work, expense),
			Date:        expenseDate,
		})
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("AddFinishingWorkExpense", "adding finishing work expense", workId, err)
		return nil, nil, err
	}
	return expense, outcome, nil
}

func (s *Service) UpdateFinishingWorkExpense(ctx context.Context, id int, input *models.NewFinishingWorkExpense) (*models.FinishingWorkExpense, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	expenseDate, err := utils.ParseDate(input.ExpenseDate)
	if err != nil {
		return nil, nil, err
	}

	var expense *models.FinishingWorkExpense
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		expense, err = models.GetFinishingWorkExpenseForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		work, err := models.GetFinishingWorkForUpdate(ctx, tx, expense.FinishingWorkId)
		if err != nil {
			return err
		}

		oldAmount := expense.Amount
		oldDate := expense.ExpenseDate
		expense.DescriptionAr = input.DescriptionAr
		expense.DescriptionEn = input.DescriptionEn
		expense.Amount = utils.RoundMoney(input.Amount)
		expense.ExpenseDate = expenseDate
		expense.Notes = input.Notes
		if err := tx.WithContext(ctx).Save(expense).Error; err != nil {
			return err
		}

		delta := expense.Amount.Sub(oldAmount)
		if !delta.IsZero() {
			if err := s.saveActualCost(ctx, tx, work, delta); err != nil {
				return err
			}
		}
		if !delta.IsZero() || !oldDate.Equal(expense.ExpenseDate) {
			res, err := s.ledger.Adjust(ctx, tx, expense.ID, models.TransactionTypeFinishingWorkExpense, LedgerAdjustment{
				Amount:  expense.Amount,
				Note:    finishingWorkExpenseNote(work, expense),
				ActorId: actorId(ctx),
				Date:    expense.ExpenseDate,
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
		s.logError("UpdateFinishingWorkExpense", "updating finishing work expense", id, err)
		return nil, nil, err
	}
	return expense, outcome, nil
}

func (s *Service) DeleteFinishingWorkExpense(ctx context.Context, id int) (*models.FinishingWorkExpense, *Outcome, error) {
	var expense *models.FinishingWorkExpense
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		expense, err = models.GetFinishingWorkExpenseForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		work, err := models.GetFinishingWorkForUpdate(ctx, tx, expense.FinishingWorkId)
		if err != nil {
			return err
		}
		if err := s.saveActualCost(ctx, tx, work, expense.Amount.Neg()); err != nil {
			return err
		}
		res, err := s.ledger.Reverse(ctx, tx, expense.ID, models.TransactionTypeFinishingWorkExpense)
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return tx.WithContext(ctx).Delete(expense).Error
	})
	if err != nil {
		s.logError("DeleteFinishingWorkExpense", "deleting finishing work expense", id, err)
		return nil, nil, err
	}
	return expense, outcome, nil
}
