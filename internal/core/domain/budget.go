package domain

import "github.com/shopspring/decimal"

type BudgetStatus string

const (
	BudgetWithin    BudgetStatus = "within_budget"
	BudgetNearLimit BudgetStatus = "near_limit"
	BudgetOver      BudgetStatus = "over_budget"
)

// Usage thresholds in percent. Near limit starts at exactly 85.
var (
	nearLimitThreshold  = decimal.NewFromInt(85)
	overBudgetThreshold = decimal.NewFromInt(100)
)

var hundred = decimal.NewFromInt(100)

// BudgetUsagePercent is zero when no positive budget is allocated.
func BudgetUsagePercent(total, allocated decimal.Decimal) decimal.Decimal {
	if !allocated.IsPositive() {
		return decimal.Zero
	}
	return total.Div(allocated).Mul(hundred)
}

func ClassifyBudget(usagePercent decimal.Decimal) BudgetStatus {
	switch {
	case usagePercent.GreaterThan(overBudgetThreshold):
		return BudgetOver
	case usagePercent.GreaterThanOrEqual(nearLimitThreshold):
		return BudgetNearLimit
	default:
		return BudgetWithin
	}
}
