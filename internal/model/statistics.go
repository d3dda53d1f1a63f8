package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyStatistics is the denormalized monthly cache row. Exactly one live
// row exists per (year, month) at any time; it doubles as the marker that the
// month has been computed at all.
type MonthlyStatistics struct {
	GeneratedAt      time.Time
	ID               string
	TotalIncome      decimal.Decimal
	TotalExpense     decimal.Decimal
	SavingsAmount    decimal.Decimal
	TransactionCount int
	Year             int
	Month            int
}

// DailyStatistics is the per-day cache row. Rows are sparse: a day with no
// transactions has no row.
type DailyStatistics struct {
	GeneratedAt      time.Time
	ID               string
	Date             string
	TotalIncome      decimal.Decimal
	TotalExpense     decimal.Decimal
	NetAmount        decimal.Decimal
	TransactionCount int
	Year             int
	Month            int
	Day              int
}

// CategoryStatistics is the per-category cache row. Only expense-direction
// transactions contribute; TotalAmount is always non-negative. Rows are
// sparse: a category with no expenses that month has no row.
type CategoryStatistics struct {
	GeneratedAt       time.Time
	ID                string
	CategoryName      string
	CategoryColor     string
	TotalAmount       decimal.Decimal
	PercentageOfMonth decimal.Decimal
	AverageAmount     decimal.Decimal
	TransactionCount  int
	Year              int
	Month             int
	CategoryID        int64
}

// MonthlyStatisticsID returns the deterministic cache key for a month.
func MonthlyStatisticsID(year, month int) string {
	return fmt.Sprintf("stats_monthly_%04d-%02d", year, month)
}

// DailyStatisticsID returns the deterministic cache key for a day.
func DailyStatisticsID(year, month, day int) string {
	return fmt.Sprintf("stats_daily_%04d-%02d-%02d", year, month, day)
}

// CategoryStatisticsID returns the deterministic cache key for a category's
// share of a month.
func CategoryStatisticsID(year, month int, categoryID int64) string {
	return fmt.Sprintf("stats_category_%04d-%02d_%d", year, month, categoryID)
}
