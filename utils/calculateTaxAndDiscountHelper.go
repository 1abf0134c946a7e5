package utils

import "github.com/shopspring/decimal"

var decimalOneHundred = decimal.NewFromInt(100)

// CalculatePortion applies a rate to a base amount.
// Percentage values are whole percents (3 means 3%); fixed values ignore the base.
func CalculatePortion(base decimal.Decimal, value decimal.Decimal, isPercentage bool) decimal.Decimal {
	if !isPercentage {
		return value
	}
	return base.Mul(value).Div(decimalOneHundred)
}

// RateToPercent converts a fractional rate (0.14) to the whole-percent form used by rules (14).
func RateToPercent(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimalOneHundred)
}
