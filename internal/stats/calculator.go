// Package stats implements the statistics aggregation and caching subsystem:
// a pure calculator over the transaction ledger, a service that maintains
// denormalized monthly/daily/category cache rows, an observer that reacts to
// ledger changes, and a startup backfill.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/centavo-app/centavo/internal/model"
	"github.com/shopspring/decimal"
)

// MonthStatistics bundles the three aggregate shapes computed for one month.
type MonthStatistics struct {
	Monthly    *model.MonthlyStatistics
	Daily      []model.DailyStatistics
	Categories []model.CategoryStatistics
}

var oneHundred = decimal.NewFromInt(100)

// Calculate derives monthly, daily, and category aggregates from a month's
// transactions. It is a pure function of its inputs: the same transactions
// and categories always produce identical output, which is what makes cache
// regeneration idempotent.
//
// Callers are expected to pass transactions already scoped to the month and
// filtered of trashed rows; trashed rows that do slip through are skipped,
// out-of-range dates are aggregated as given. All money math is exact
// decimal, never binary floating point.
func Calculate(transactions []model.Transaction, categories []model.Category, year, month int) MonthStatistics {
	now := time.Now()

	monthly := &model.MonthlyStatistics{
		ID:            model.MonthlyStatisticsID(year, month),
		Year:          year,
		Month:         month,
		TotalIncome:   decimal.Zero,
		TotalExpense:  decimal.Zero,
		SavingsAmount: decimal.Zero,
		GeneratedAt:   now,
	}

	type dayBucket struct {
		income  decimal.Decimal
		expense decimal.Decimal
		count   int
	}
	type categoryBucket struct {
		total decimal.Decimal
		count int
	}

	days := make(map[int]*dayBucket)
	cats := make(map[int64]*categoryBucket)

	for i := range transactions {
		txn := &transactions[i]
		if txn.IsTrashed() {
			continue
		}

		amount := txn.Amount()
		day := txn.OccurredAt.Day()

		db := days[day]
		if db == nil {
			db = &dayBucket{income: decimal.Zero, expense: decimal.Zero}
			days[day] = db
		}
		db.count++
		monthly.TransactionCount++

		switch {
		case txn.IsIncome():
			monthly.TotalIncome = monthly.TotalIncome.Add(amount)
			db.income = db.income.Add(amount)
		case txn.IsExpense():
			expense := amount.Neg()
			monthly.TotalExpense = monthly.TotalExpense.Add(expense)
			db.expense = db.expense.Add(expense)

			cb := cats[txn.CategoryID]
			if cb == nil {
				cb = &categoryBucket{total: decimal.Zero}
				cats[txn.CategoryID] = cb
			}
			cb.total = cb.total.Add(expense)
			cb.count++
		default:
			// Zero-amount rows count toward totals' transaction counts
			// but contribute to neither income nor expense.
		}
	}

	monthly.SavingsAmount = monthly.TotalIncome.Sub(monthly.TotalExpense)

	daily := make([]model.DailyStatistics, 0, len(days))
	for day, b := range days {
		daily = append(daily, model.DailyStatistics{
			ID:               model.DailyStatisticsID(year, month, day),
			Year:             year,
			Month:            month,
			Day:              day,
			Date:             fmt.Sprintf("%04d-%02d-%02d", year, month, day),
			TotalIncome:      b.income,
			TotalExpense:     b.expense,
			NetAmount:        b.income.Sub(b.expense),
			TransactionCount: b.count,
			GeneratedAt:      now,
		})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Day < daily[j].Day })

	names := categoryIndex(categories)
	categoryStats := make([]model.CategoryStatistics, 0, len(cats))
	for id, b := range cats {
		percentage := decimal.Zero
		if monthly.TotalExpense.IsPositive() {
			percentage = b.total.Div(monthly.TotalExpense).Mul(oneHundred)
		}
		average := decimal.Zero
		if b.count > 0 {
			average = b.total.Div(decimal.NewFromInt(int64(b.count)))
		}

		name, color := model.DeletedCategoryName, ""
		if cat, ok := names[id]; ok {
			name, color = cat.Name, cat.Color
		}

		categoryStats = append(categoryStats, model.CategoryStatistics{
			ID:                model.CategoryStatisticsID(year, month, id),
			Year:              year,
			Month:             month,
			CategoryID:        id,
			CategoryName:      name,
			CategoryColor:     color,
			TotalAmount:       b.total,
			TransactionCount:  b.count,
			PercentageOfMonth: percentage,
			AverageAmount:     average,
			GeneratedAt:       now,
		})
	}

	// Same ordering the cache tables serve: days ascending, categories by
	// spend descending, so the fallback path renders identically to a hit.
	sort.Slice(categoryStats, func(i, j int) bool {
		return categoryStats[i].TotalAmount.GreaterThan(categoryStats[j].TotalAmount)
	})

	return MonthStatistics{
		Monthly:    monthly,
		Daily:      daily,
		Categories: categoryStats,
	}
}

// categoryIndex maps live category IDs to their definitions. Soft-deleted
// categories are skipped so their statistics rows fall back to the
// placeholder name.
func categoryIndex(categories []model.Category) map[int64]*model.Category {
	index := make(map[int64]*model.Category, len(categories))
	for i := range categories {
		if categories[i].IsDeleted() {
			continue
		}
		index[categories[i].ID] = &categories[i]
	}
	return index
}
