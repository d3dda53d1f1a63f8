// Package service defines the interfaces between the application's layers.
package service

import (
	"context"
	"time"

	"github.com/centavo-app/centavo/internal/model"
)

// Table names used by the change-notification stream.
const (
	TableTransactions = "transactions"
	TableCategories   = "categories"
)

// TransactionFilter defines filtering options for ledger queries.
type TransactionFilter struct {
	StartDate      *time.Time
	EndDate        *time.Time
	CategoryID     *int64
	IncludeTrashed bool
	Limit          int
	Offset         int
}

// ChangeSet describes one committed batch of row changes for a single table.
// Soft deletes surface as updates: the row still exists, its trashed marker
// changed. Deleted is populated only for tables that truly remove rows.
type ChangeSet struct {
	Table   string
	Created []model.Transaction
	Updated []model.Transaction
	Deleted []model.Transaction
}

// ChangeSubscription is a live feed of ChangeSets. Consumers must call
// Unsubscribe when done; the channel is closed afterwards.
type ChangeSubscription interface {
	Changes() <-chan ChangeSet
	Unsubscribe()
}

// Storage defines the contract for the persistence layer: the transaction
// ledger, the category table, and the three statistics cache tables.
type Storage interface {
	// Ledger operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	SaveTransactions(ctx context.Context, txns []model.Transaction) error
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	TrashTransaction(ctx context.Context, id string) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionsByMonth(ctx context.Context, year, month int) ([]model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Category operations
	CreateCategory(ctx context.Context, name, color string, isIncome bool) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Statistics cache operations. ReplaceMonthStatistics deletes every
	// existing row for the month across all three tables and inserts the
	// new rows inside one database transaction.
	GetMonthlyStatistics(ctx context.Context, year, month int) (*model.MonthlyStatistics, error)
	GetDailyStatistics(ctx context.Context, year, month int) ([]model.DailyStatistics, error)
	GetCategoryStatistics(ctx context.Context, year, month int) ([]model.CategoryStatistics, error)
	ReplaceMonthStatistics(ctx context.Context, year, month int, monthly *model.MonthlyStatistics, daily []model.DailyStatistics, categories []model.CategoryStatistics) error
	DeleteMonthStatistics(ctx context.Context, year, month int) error

	// Change notifications
	SubscribeChanges(tables ...string) ChangeSubscription

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
