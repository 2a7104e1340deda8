package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	Income  Type = "income"
	Expense Type = "expense"
)

func (t Type) Valid() bool {
	return t == Income || t == Expense
}

var ErrTransactionNotFound = errors.New("transaction not found")
var ErrInvalidTransaction = errors.New("invalid transaction")

// maxAmount is the first value that no longer fits transactions.amount NUMERIC(14,2).
var maxAmount = decimal.New(1, 12)

type Transaction struct {
	Id          int
	Amount      decimal.Decimal
	Category    string
	Type        Type
	Description string
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t Transaction) Validate() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidTransaction)
	}
	if t.Amount.Exponent() < -2 && !t.Amount.Equal(t.Amount.Round(2)) {
		return fmt.Errorf("%w: amount must have at most two decimal places", ErrInvalidTransaction)
	}
	if t.Amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: amount must be less than %s", ErrInvalidTransaction, maxAmount)
	}
	if strings.TrimSpace(t.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidTransaction)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: type must be income or expense", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}
	return nil
}

// Patch is a partial update. Nil fields keep their stored value.
type Patch struct {
	Amount      *decimal.Decimal
	Category    *string
	Type        *Type
	Description *string
	Date        *time.Time
}

func (p Patch) applyTo(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

// Filter narrows list, stats and export queries. From and To are both inclusive.
type Filter struct {
	Category string
	Type     Type
	From     *time.Time
	To       *time.Time
}

type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

type PageResult struct {
	Transactions []Transaction
	Total        int
	Page         int
	Pages        int
}

type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

type Stats struct {
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Balance    decimal.Decimal
	Categories []CategoryTotal
}
