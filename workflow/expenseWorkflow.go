package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

func expenseNote(e *models.Expense) string {
	return fmt.Sprintf("Expense: %s", e.DescriptionAr)
}

// CreateExpense stores an expense and pays it out of the cashier.
func (s *Service) CreateExpense(ctx context.Context, input *models.NewExpense) (*models.Expense, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	expenseDate, err := utils.ParseDate(input.ExpenseDate)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := startSpan(ctx, s.tracer, "Service.CreateExpense", attribute.Int("category_id", input.CategoryId))
	defer span.End()

	var expense *models.Expense
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		if _, err := models.GetExpenseCategory(ctx, tx, input.CategoryId); err != nil {
			return err
		}
		expense = &models.Expense{
			DescriptionAr: input.DescriptionAr,
			DescriptionEn: input.DescriptionEn,
			Amount:        utils.RoundMoney(input.Amount),
			ExpenseDate:   expenseDate,
			CategoryId:    input.CategoryId,
			UserId:        actorId(ctx),
			Notes:         input.Notes,
		}
		if err := tx.WithContext(ctx).Create(expense).Error; err != nil {
			return err
		}

		ref := expense.ID
		res, err := s.ledger.Record(ctx, tx, LedgerEntry{
			Type:        models.TransactionTypeExpensePayment,
			Amount:      expense.Amount,
			ReferenceId: &ref,
			ActorId:     expense.UserId,
			Note:        expenseNote(expense),
			Date:        expenseDate,
		})
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return nil
	})
	if err != nil {
		s.logError("CreateExpense", "creating expense", input, err)
		return nil, nil, err
	}
	return expense, outcome, nil
}

// UpdateExpense rewrites an expense; a changed amount moves the cashier by the difference.
func (s *Service) UpdateExpense(ctx context.Context, id int, input *models.NewExpense) (*models.Expense, *Outcome, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	expenseDate, err := utils.ParseDate(input.ExpenseDate)
	if err != nil {
		return nil, nil, err
	}

	var expense *models.Expense
	outcome := &Outcome{}
	err = s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		expense, err = models.GetExpenseForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := models.GetExpenseCategory(ctx, tx, input.CategoryId); err != nil {
			return err
		}

		oldAmount := expense.Amount
		oldDate := expense.ExpenseDate
		expense.DescriptionAr = input.DescriptionAr
		expense.DescriptionEn = input.DescriptionEn
		expense.Amount = utils.RoundMoney(input.Amount)
		expense.ExpenseDate = expenseDate
		expense.CategoryId = input.CategoryId
		expense.Notes = input.Notes
		if err := tx.WithContext(ctx).Save(expense).Error; err != nil {
			return err
		}

		if !oldAmount.Equal(expense.Amount) || !oldDate.Equal(expense.ExpenseDate) {
			res, err := s.ledger.Adjust(ctx, tx, expense.ID, models.TransactionTypeExpensePayment, LedgerAdjustment{
				Amount:  expense.Amount,
				Note:    expenseNote(expense),
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
		s.logError("UpdateExpense", "updating expense", id, err)
		return nil, nil, err
	}
	return expense, outcome, nil
}

// DeleteExpense removes an expense and gives its amount back to the cashier.
func (s *Service) DeleteExpense(ctx context.Context, id int) (*models.Expense, *Outcome, error) {
	var expense *models.Expense
	outcome := &Outcome{}
	err := s.runLedgerTx(ctx, func(tx *gorm.DB) error {
		var err error
		expense, err = models.GetExpenseForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := s.ledger.Reverse(ctx, tx, expense.ID, models.TransactionTypeExpensePayment)
		if err != nil {
			return err
		}
		outcome.absorb(res)
		return tx.WithContext(ctx).Delete(expense).Error
	})
	if err != nil {
		s.logError("DeleteExpense", "deleting expense", id, err)
		return nil, nil, err
	}
	return expense, outcome, nil
}
