package stats

import (
	"testing"
	"time"

	"github.com/centavo-app/centavo/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marchTxn(day int, amountMinor int64, categoryID int64) model.Transaction {
	return model.Transaction{
		ID:          time.Date(2024, 3, day, 0, 0, 0, 0, time.Local).Format("20060102") + "-txn",
		OccurredAt:  time.Date(2024, 3, day, 12, 0, 0, 0, time.Local),
		AmountMinor: amountMinor,
		CategoryID:  categoryID,
	}
}

func testCategories() []model.Category {
	return []model.Category{
		{ID: 1, Name: "Salary", Color: "#4caf50", IsIncome: true},
		{ID: 2, Name: "Food", Color: "#ff7043"},
		{ID: 3, Name: "Transport", Color: "#42a5f5"},
	}
}

func TestCalculateMarchScenario(t *testing.T) {
	txns := []model.Transaction{
		marchTxn(1, 500000, 1),
		marchTxn(2, -120000, 2),
		marchTxn(5, -80000, 2),
		marchTxn(10, -200000, 3),
	}

	result := Calculate(txns, testCategories(), 2024, 3)

	monthly := result.Monthly
	require.NotNil(t, monthly)
	assert.Equal(t, "stats_monthly_2024-03", monthly.ID)
	assert.Equal(t, "5000", monthly.TotalIncome.String())
	assert.Equal(t, "4000", monthly.TotalExpense.String())
	assert.Equal(t, "1000", monthly.SavingsAmount.String())
	assert.Equal(t, 4, monthly.TransactionCount)

	// Daily rows exist only for days 1, 2, 5, 10.
	days := make(map[int]model.DailyStatistics)
	for _, d := range result.Daily {
		days[d.Day] = d
	}
	require.Len(t, days, 4)
	for _, day := range []int{1, 2, 5, 10} {
		assert.Contains(t, days, day)
	}
	assert.Equal(t, "2024-03-05", days[5].Date)
	assert.True(t, days[1].NetAmount.Equal(decimal.NewFromInt(5000)), "day 1 net")
	assert.True(t, days[10].NetAmount.Equal(decimal.NewFromInt(-2000)), "day 10 net")

	// Category rows: Food and Transport split the expenses evenly.
	cats := make(map[string]model.CategoryStatistics)
	for _, c := range result.Categories {
		cats[c.CategoryName] = c
	}
	require.Len(t, cats, 2)

	food := cats["Food"]
	assert.True(t, food.TotalAmount.Equal(decimal.NewFromInt(2000)), "food total, got %s", food.TotalAmount)
	assert.True(t, food.PercentageOfMonth.Equal(decimal.NewFromInt(50)), "food percentage, got %s", food.PercentageOfMonth)
	assert.True(t, food.AverageAmount.Equal(decimal.NewFromInt(1000)), "food average, got %s", food.AverageAmount)
	assert.Equal(t, 2, food.TransactionCount)
	assert.Equal(t, "#ff7043", food.CategoryColor)

	transport := cats["Transport"]
	assert.True(t, transport.TotalAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, transport.PercentageOfMonth.Equal(decimal.NewFromInt(50)))
	assert.True(t, transport.AverageAmount.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, 1, transport.TransactionCount)
}

func TestCalculateConservation(t *testing.T) {
	txns := []model.Transaction{
		marchTxn(1, 333333, 1),
		marchTxn(2, -111111, 2),
		marchTxn(3, -77777, 3),
		marchTxn(4, 12345, 1),
	}

	result := Calculate(txns, testCategories(), 2024, 3)
	monthly := result.Monthly

	diff := monthly.TotalIncome.Sub(monthly.TotalExpense)
	assert.True(t, diff.Equal(monthly.SavingsAmount),
		"income %s − expense %s != savings %s",
		monthly.TotalIncome, monthly.TotalExpense, monthly.SavingsAmount)
}

func TestCalculatePercentagesSumToHundred(t *testing.T) {
	// Three-way split that does not divide evenly.
	txns := []model.Transaction{
		marchTxn(1, -10000, 1),
		marchTxn(2, -10000, 2),
		marchTxn(3, -10000, 3),
	}

	result := Calculate(txns, testCategories(), 2024, 3)
	require.Len(t, result.Categories, 3)

	sum := decimal.Zero
	for _, c := range result.Categories {
		sum = sum.Add(c.PercentageOfMonth)
	}
	diff := sum.Sub(decimal.NewFromInt(100)).Abs()
	assert.True(t, diff.LessThan(decimal.NewFromFloat(0.0001)),
		"percentages sum to %s", sum)
}

func TestCalculateSparsity(t *testing.T) {
	txns := []model.Transaction{
		marchTxn(15, 100000, 1),
	}

	result := Calculate(txns, testCategories(), 2024, 3)

	assert.Len(t, result.Daily, 1, "only day 15 should have a row")
	assert.Empty(t, result.Categories, "income-only month has no category rows")
}

func TestCalculateZeroAmount(t *testing.T) {
	txns := []model.Transaction{
		marchTxn(1, 0, 2),
		marchTxn(1, -5000, 2),
	}

	result := Calculate(txns, testCategories(), 2024, 3)

	// Zero-amount rows count but contribute to no sum.
	assert.Equal(t, 2, result.Monthly.TransactionCount)
	assert.True(t, result.Monthly.TotalIncome.IsZero())
	assert.True(t, result.Monthly.TotalExpense.Equal(decimal.NewFromInt(50)))

	require.Len(t, result.Daily, 1)
	assert.Equal(t, 2, result.Daily[0].TransactionCount)

	require.Len(t, result.Categories, 1)
	assert.Equal(t, 1, result.Categories[0].TransactionCount, "zero-amount row is not an expense")
}

func TestCalculateNegativeSavings(t *testing.T) {
	txns := []model.Transaction{
		marchTxn(1, 10000, 1),
		marchTxn(2, -30000, 2),
	}

	result := Calculate(txns, testCategories(), 2024, 3)
	assert.True(t, result.Monthly.SavingsAmount.Equal(decimal.NewFromInt(-200)),
		"savings may go negative, got %s", result.Monthly.SavingsAmount)
}

func TestCalculateDeletedCategoryPlaceholder(t *testing.T) {
	deleted := time.Now()
	categories := []model.Category{
		{ID: 2, Name: "Food", DeletedAt: &deleted},
	}
	txns := []model.Transaction{
		marchTxn(2, -5000, 2),
		marchTxn(3, -5000, 99), // unknown category
	}

	result := Calculate(txns, categories, 2024, 3)
	require.Len(t, result.Categories, 2)
	for _, c := range result.Categories {
		assert.Equal(t, model.DeletedCategoryName, c.CategoryName)
	}
}

func TestCalculateEmptyMonth(t *testing.T) {
	result := Calculate(nil, testCategories(), 2024, 3)

	require.NotNil(t, result.Monthly, "empty month still gets an all-zero monthly row")
	assert.True(t, result.Monthly.TotalIncome.IsZero())
	assert.True(t, result.Monthly.TotalExpense.IsZero())
	assert.True(t, result.Monthly.SavingsAmount.IsZero())
	assert.Zero(t, result.Monthly.TransactionCount)
	assert.Empty(t, result.Daily)
	assert.Empty(t, result.Categories)
}

func TestCalculateSkipsTrashed(t *testing.T) {
	trashed := time.Now()
	txn := marchTxn(4, -9999, 2)
	txn.TrashedAt = &trashed

	result := Calculate([]model.Transaction{txn}, testCategories(), 2024, 3)
	assert.Zero(t, result.Monthly.TransactionCount)
	assert.Empty(t, result.Daily)
}

func TestCalculateIdempotent(t *testing.T) {
	txns := []model.Transaction{
		marchTxn(1, 500000, 1),
		marchTxn(2, -120000, 2),
		marchTxn(10, -200000, 3),
	}

	first := Calculate(txns, testCategories(), 2024, 3)
	second := Calculate(txns, testCategories(), 2024, 3)

	assert.Equal(t, first.Monthly.ID, second.Monthly.ID)
	assert.True(t, first.Monthly.TotalIncome.Equal(second.Monthly.TotalIncome))
	assert.True(t, first.Monthly.TotalExpense.Equal(second.Monthly.TotalExpense))
	assert.True(t, first.Monthly.SavingsAmount.Equal(second.Monthly.SavingsAmount))
	assert.Equal(t, first.Monthly.TransactionCount, second.Monthly.TransactionCount)
	assert.Len(t, second.Daily, len(first.Daily))
	assert.Len(t, second.Categories, len(first.Categories))
}
