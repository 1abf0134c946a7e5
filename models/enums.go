package models

import (
	"encoding/json"
	"errors"
)

type RuleType string

const (
	RuleTypeCommission RuleType = "commission"
	RuleTypeTax        RuleType = "tax"
	RuleTypeDiscount   RuleType = "discount"
	RuleTypeFee        RuleType = "fee"
)

func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeCommission, RuleTypeTax, RuleTypeDiscount, RuleTypeFee:
		return true
	}
	return false
}

// convert input to enum type
func (t *RuleType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("rule type must be string")
	}
	v := RuleType(str)
	if !v.IsValid() {
		return errors.New("invalid rule type")
	}
	*t = v
	return nil
}

type CalculationType string

const (
	CalculationTypePercentage  CalculationType = "percentage"
	CalculationTypeFixedAmount CalculationType = "fixed_amount"
)

func (t CalculationType) IsValid() bool {
	return t == CalculationTypePercentage || t == CalculationTypeFixedAmount
}

func (t *CalculationType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("calculation type must be string")
	}
	v := CalculationType(str)
	if !v.IsValid() {
		return errors.New("invalid calculation type")
	}
	*t = v
	return nil
}

// CommissionTarget says whose commission a commission rule computes.
type CommissionTarget string

const (
	CommissionTargetCompany      CommissionTarget = "company"
	CommissionTargetSalesperson  CommissionTarget = "salesperson"
	CommissionTargetSalesManager CommissionTarget = "sales_manager"
)

func (t CommissionTarget) IsValid() bool {
	switch t {
	case CommissionTargetCompany, CommissionTargetSalesperson, CommissionTargetSalesManager:
		return true
	}
	return false
}

type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusSold      UnitStatus = "sold"
	UnitStatusRented    UnitStatus = "rented"
)

type SettingType string

const (
	SettingTypePercentage  SettingType = "percentage"
	SettingTypeFixedAmount SettingType = "fixed_amount"
	SettingTypeText        SettingType = "text"
	SettingTypeJSON        SettingType = "json"
)

func (t SettingType) IsValid() bool {
	switch t {
	case SettingTypePercentage, SettingTypeFixedAmount, SettingTypeText, SettingTypeJSON:
		return true
	}
	return false
}

// TransactionType tags a cashier transaction with the business event that produced it.
// The set is open: unknown tags are stored but carry no balance impact.
type TransactionType string

const (
	TransactionTypeSaleRevenue                   TransactionType = "sale_revenue"
	TransactionTypeRentalIncome                  TransactionType = "rental_income"
	TransactionTypeDeposit                       TransactionType = "deposit"
	TransactionTypeExpensePayment                TransactionType = "expense_payment"
	TransactionTypeSalespersonCommissionPayment  TransactionType = "salesperson_commission_payment"
	TransactionTypeSalesManagerCommissionPayment TransactionType = "sales_manager_commission_payment"
	TransactionTypeWithdrawal                    TransactionType = "withdrawal"
	TransactionTypeFinishingWorkExpense          TransactionType = "finishing_work_expense"
)

type RentalPaymentStatus string

const (
	RentalPaymentStatusDue     RentalPaymentStatus = "due"
	RentalPaymentStatusPaid    RentalPaymentStatus = "paid"
	RentalPaymentStatusOverdue RentalPaymentStatus = "overdue"
)

type PaymentFrequency string

const (
	PaymentFrequencyMonthly   PaymentFrequency = "monthly"
	PaymentFrequencyQuarterly PaymentFrequency = "quarterly"
	PaymentFrequencyAnnual    PaymentFrequency = "annual"
)

type FinishingWorkStatus string

const (
	FinishingWorkStatusInProgress FinishingWorkStatus = "in_progress"
	FinishingWorkStatusCompleted  FinishingWorkStatus = "completed"
	FinishingWorkStatusStopped    FinishingWorkStatus = "stopped"
)

type CalculationStrategy string

const (
	CalculationStrategyRules CalculationStrategy = "rules"
	CalculationStrategyFlat  CalculationStrategy = "flat"
)

// Scopes used by the calculation engine.
const (
	ScopeSales = "sales"
)
