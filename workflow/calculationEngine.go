package workflow

import (
	"context"
	"strings"

	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// CalculationContext carries the facts a calculation may depend on.
// Participant ids only drive filtering and attribution, never differentiated rates.
type CalculationContext struct {
	UnitType       string
	SalespersonId  *int
	SalesManagerId *int
}

// Calculator turns a sale price into a breakdown. Both strategies implement it.
type Calculator interface {
	Calculate(ctx context.Context, tx *gorm.DB, base decimal.Decimal, calcCtx CalculationContext) (*models.CalculationBreakdown, error)
	Strategy() models.CalculationStrategy
}

// ruleTerm is one rule in a fold. A non-nil base pins the amount the rule is computed on.
type ruleTerm struct {
	rule models.CalculationRule
	base *decimal.Decimal
}

// commissionTarget falls back to the name heuristic for rules stored before targets existed.
func commissionTarget(rule models.CalculationRule) models.CommissionTarget {
	if rule.RuleType != models.RuleTypeCommission {
		return ""
	}
	if rule.CommissionTarget.IsValid() {
		return rule.CommissionTarget
	}
	return models.ClassifyCommissionTarget(rule.NameAr, rule.NameEn)
}

// foldOptions controls how foldRules accumulates.
// With roundLines each line is rounded to cents before it is totalled, so the lines add up
// to the totals exactly. Without it the totals accumulate unrounded amounts and are rounded
// once after settling.
type foldOptions struct {
	chaining   bool
	roundLines bool
}

// foldRules applies terms in order. Every applied line reports its amount rounded to cents.
// Without chaining every rule sees the original base. With chaining the running base
// shrinks by each commission, tax and fee and grows by each discount.
func foldRules(base decimal.Decimal, terms []ruleTerm, opts foldOptions) ([]models.AppliedRule, models.BreakdownTotals) {
	applied := make([]models.AppliedRule, 0, len(terms))
	totals := models.BreakdownTotals{}
	current := base

	for _, t := range terms {
		ruleBase := current
		if t.base != nil {
			ruleBase = *t.base
		}
		raw := t.rule.Portion(ruleBase)
		line := models.AppliedRule{
			RuleId:           t.rule.ID,
			NameAr:           t.rule.NameAr,
			NameEn:           t.rule.NameEn,
			RuleType:         t.rule.RuleType,
			CalculationType:  t.rule.CalculationType,
			CommissionTarget: commissionTarget(t.rule),
			Value:            t.rule.Value,
			CalculatedAmount: utils.RoundMoney(raw),
			BaseAmount:       ruleBase,
		}
		applied = append(applied, line)

		amount := line.CalculatedAmount
		if !opts.roundLines {
			amount = raw
		}
		counted := line
		counted.CalculatedAmount = amount
		totals.Add(counted)

		if opts.chaining {
			if t.rule.RuleType == models.RuleTypeDiscount {
				current = current.Add(amount)
			} else {
				current = current.Sub(amount)
			}
		}
	}
	totals.Settle()
	if !opts.roundLines {
		totals.Round()
	}
	return applied, totals
}

// RuleEngine evaluates the configured rules of a scope. It has no state of its own and
// reads the rule table on every call.
type RuleEngine struct {
	Tracer trace.Tracer
}

func NewRuleEngine(tracer trace.Tracer) *RuleEngine {
	return &RuleEngine{Tracer: tracer}
}

func (e *RuleEngine) Strategy() models.CalculationStrategy {
	return models.CalculationStrategyRules
}

// Evaluate selects the active rules of scope ordered by (order_index, id), keeps those whose
// unit type filter admits calcCtx.UnitType and folds them over base.
// A scope without rules yields an all-zero breakdown.
func (e *RuleEngine) Evaluate(ctx context.Context, db *gorm.DB, scope string, base decimal.Decimal, calcCtx CalculationContext) (*models.CalculationBreakdown, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, utils.NewValidationError("scope", "required")
	}
	if base.IsNegative() {
		return nil, utils.NewValidationError("base_amount", "must not be negative")
	}

	ctx, span := startSpan(ctx, e.Tracer, "RuleEngine.Evaluate",
		attribute.String("scope", scope),
		attribute.String("unit_type", calcCtx.UnitType),
	)
	defer span.End()

	options, err := models.GetCalculationScope(ctx, db, scope)
	if err != nil {
		return nil, err
	}
	rules, err := models.ListActiveRulesForScope(ctx, db, scope)
	if err != nil {
		return nil, err
	}

	terms := make([]ruleTerm, 0, len(rules))
	for _, rule := range rules {
		if rule.UnitTypeFilter.Matches(calcCtx.UnitType) {
			terms = append(terms, ruleTerm{rule: rule})
		}
	}

	// Configured rules are itemized money: each line is rounded to cents and the totals are
	// the sum of the rounded lines, unlike the unrounded accumulation of the legacy code.
	applied, totals := foldRules(base, terms, foldOptions{chaining: options.Chaining, roundLines: true})
	span.SetAttributes(attribute.Int("rules_applied", len(applied)))

	return &models.CalculationBreakdown{
		Version:      models.BreakdownVersion,
		Strategy:     models.CalculationStrategyRules,
		Scope:        scope,
		Chaining:     options.Chaining,
		BaseAmount:   base,
		UnitType:     calcCtx.UnitType,
		AppliedRules: applied,
		Totals:       totals,
	}, nil
}

// Calculate evaluates the sales scope.
func (e *RuleEngine) Calculate(ctx context.Context, tx *gorm.DB, base decimal.Decimal, calcCtx CalculationContext) (*models.CalculationBreakdown, error) {
	return e.Evaluate(ctx, tx, models.ScopeSales, base, calcCtx)
}
