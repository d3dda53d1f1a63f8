package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single ledger entry. Amounts are stored in the
// currency's minor unit (cents, dong): positive is income, negative is
// expense.
type Transaction struct {
	OccurredAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TrashedAt   *time.Time
	ID          string
	Description string
	AmountMinor int64
	CategoryID  int64
}

// Amount returns the signed amount in major units as an exact decimal.
func (t *Transaction) Amount() decimal.Decimal {
	return decimal.New(t.AmountMinor, -2)
}

// IsIncome reports whether the transaction adds money.
func (t *Transaction) IsIncome() bool {
	return t.AmountMinor > 0
}

// IsExpense reports whether the transaction removes money.
func (t *Transaction) IsExpense() bool {
	return t.AmountMinor < 0
}

// IsTrashed reports whether the transaction has been soft-deleted.
// Trashed transactions are excluded from all aggregation.
func (t *Transaction) IsTrashed() bool {
	return t.TrashedAt != nil
}

// Month returns the calendar month the transaction falls in, derived from
// OccurredAt. The same derivation is used everywhere so a transaction always
// maps to exactly one statistics month.
func (t *Transaction) Month() MonthKey {
	return MonthKeyOf(t.OccurredAt)
}
