package budget

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/financeflow/financeflow/pkg/month"
	"github.com/shopspring/decimal"
)

var ErrBudgetNotFound = errors.New("budget not found")
var ErrBudgetAlreadyExists = errors.New("budget already exists for this category and month")
var ErrInvalidBudget = errors.New("invalid budget")

// ErrStoreUnavailable wraps failures of the underlying store while deriving budget figures.
var ErrStoreUnavailable = errors.New("budget store unavailable")

// ErrCreatedWithoutFigures is returned by Create when the budget was stored but its figures could not be derived.
var ErrCreatedWithoutFigures = errors.New("budget created but spending figures are unavailable")

var hundred = decimal.NewFromInt(100)

// maxLimit is the first value that no longer fits budgets.amount_limit NUMERIC(14,2).
var maxLimit = decimal.New(1, 12)

type Budget struct {
	Id        int
	Category  string
	Limit     decimal.Decimal
	Month     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidBudget)
	}
	if b.Limit.IsNegative() {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidBudget)
	}
	if b.Limit.Exponent() < -2 && !b.Limit.Equal(b.Limit.Round(2)) {
		return fmt.Errorf("%w: limit must have at most two decimal places", ErrInvalidBudget)
	}
	if b.Limit.GreaterThanOrEqual(maxLimit) {
		return fmt.Errorf("%w: limit must be less than %s", ErrInvalidBudget, maxLimit)
	}
	return month.Validate(b.Month)
}

// Patch is a partial update. Nil fields keep their stored value.
type Patch struct {
	Limit    *decimal.Decimal
	Category *string
	Month    *string
}

func (p Patch) applyTo(b Budget) Budget {
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Month != nil {
		b.Month = *p.Month
	}
	return b
}

// BudgetView is a budget together with the figures derived from its month's expenses.
// It is computed on every read and never stored.
type BudgetView struct {
	Budget
	Spent      decimal.Decimal
	Remaining  decimal.Decimal
	Percentage decimal.Decimal
}

func NewView(b Budget, spent decimal.Decimal) BudgetView {
	return BudgetView{
		Budget:     b,
		Spent:      spent,
		Remaining:  b.Limit.Sub(spent),
		Percentage: percentage(spent, b.Limit),
	}
}

type Overview struct {
	Month       string
	TotalBudget decimal.Decimal
	TotalSpent  decimal.Decimal
	Remaining   decimal.Decimal
	Percentage  decimal.Decimal
	Categories  []BudgetView
}

// percentage is spent as a share of limit, or zero when there is no positive limit.
func percentage(spent, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return spent.Mul(hundred).Div(limit)
}
