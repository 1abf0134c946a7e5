package models

import "gorm.io/gorm"

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&CalculationRule{}, &CalculationScope{},
		&CashierBalance{}, &CashierTransaction{},
		&ExpenseCategory{}, &Expense{},
		&FinancialSetting{},
		&FinishingWork{}, &FinishingWorkExpense{},
		&ReconciliationReport{},
		&Rental{}, &RentalPayment{},
		&Sale{},
		&Unit{},
	)
}
