package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger schema: categories and transactions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					color TEXT NOT NULL DEFAULT '#8884d8',
					is_income INTEGER NOT NULL DEFAULT 0,
					deleted_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					amount_minor INTEGER NOT NULL,
					occurred_at DATETIME NOT NULL,
					category_id INTEGER NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					trashed_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (category_id) REFERENCES categories(id)
				)`,
				`CREATE INDEX idx_transactions_occurred ON transactions(occurred_at)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_id)`,
				`CREATE INDEX idx_transactions_trashed ON transactions(trashed_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Statistics cache tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS monthly_statistics (
					id TEXT PRIMARY KEY,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					total_income TEXT NOT NULL,
					total_expense TEXT NOT NULL,
					savings_amount TEXT NOT NULL,
					transaction_count INTEGER NOT NULL,
					generated_at DATETIME NOT NULL
				)`,
				`CREATE UNIQUE INDEX idx_monthly_statistics_period ON monthly_statistics(year, month)`,

				`CREATE TABLE IF NOT EXISTS daily_statistics (
					id TEXT PRIMARY KEY,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					day INTEGER NOT NULL,
					date TEXT NOT NULL,
					total_income TEXT NOT NULL,
					total_expense TEXT NOT NULL,
					net_amount TEXT NOT NULL,
					transaction_count INTEGER NOT NULL,
					generated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_daily_statistics_period ON daily_statistics(year, month)`,

				`CREATE TABLE IF NOT EXISTS category_statistics (
					id TEXT PRIMARY KEY,
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					category_id INTEGER NOT NULL,
					category_name TEXT NOT NULL,
					category_color TEXT NOT NULL,
					total_amount TEXT NOT NULL,
					transaction_count INTEGER NOT NULL,
					percentage_of_month TEXT NOT NULL,
					average_amount TEXT NOT NULL,
					generated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_category_statistics_period ON category_statistics(year, month)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Default categories",
		Up: func(tx *sql.Tx) error {
			defaults := []struct {
				name     string
				color    string
				isIncome bool
			}{
				{"Salary", "#4caf50", true},
				{"Food", "#ff7043", false},
				{"Transport", "#42a5f5", false},
				{"Shopping", "#ab47bc", false},
				{"Bills", "#ffa726", false},
				{"Other", "#90a4ae", false},
			}

			for _, c := range defaults {
				income := 0
				if c.isIncome {
					income = 1
				}
				if _, err := tx.Exec(
					`INSERT OR IGNORE INTO categories (name, color, is_income) VALUES (?, ?, ?)`,
					c.name, c.color, income,
				); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", c.name, err)
				}
			}
			return nil
		},
	},
}

// runMigrations applies any pending migrations, tracking the schema version
// in PRAGMA user_version the way the sqlite tooling expects.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		// PRAGMA cannot be parameterized
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version, "description", m.Description)
		current = m.Version
	}

	if current != ExpectedSchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, want %d", current, ExpectedSchemaVersion)
	}

	return nil
}
