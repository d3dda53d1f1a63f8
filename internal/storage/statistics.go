package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
)

// GetMonthlyStatistics returns the monthly cache row for (year, month).
// Returns common.ErrNotFound when the month has never been computed; the
// monthly row is the source of truth for "has this month been computed".
func (s *SQLiteStorage) GetMonthlyStatistics(ctx context.Context, year, month int) (*model.MonthlyStatistics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, year, month, total_income, total_expense, savings_amount, transaction_count, generated_at
		FROM monthly_statistics
		WHERE id = ?`,
		model.MonthlyStatisticsID(year, month),
	)

	var m model.MonthlyStatistics
	err := row.Scan(&m.ID, &m.Year, &m.Month, &m.TotalIncome, &m.TotalExpense,
		&m.SavingsAmount, &m.TransactionCount, &m.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: monthly statistics %04d-%02d", common.ErrNotFound, year, month)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly statistics: %w", err)
	}
	return &m, nil
}

// GetDailyStatistics returns the per-day cache rows for a month. The table
// is sparse: an empty result is a valid outcome, not a cache miss.
func (s *SQLiteStorage) GetDailyStatistics(ctx context.Context, year, month int) ([]model.DailyStatistics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, month, day, date, total_income, total_expense, net_amount, transaction_count, generated_at
		FROM daily_statistics
		WHERE year = ? AND month = ?
		ORDER BY day`,
		year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily statistics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []model.DailyStatistics
	for rows.Next() {
		var d model.DailyStatistics
		if err := rows.Scan(&d.ID, &d.Year, &d.Month, &d.Day, &d.Date,
			&d.TotalIncome, &d.TotalExpense, &d.NetAmount, &d.TransactionCount, &d.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily statistics: %w", err)
		}
		stats = append(stats, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily statistics: %w", err)
	}
	return stats, nil
}

// GetCategoryStatistics returns the per-category cache rows for a month.
// Sparse like the daily table.
func (s *SQLiteStorage) GetCategoryStatistics(ctx context.Context, year, month int) ([]model.CategoryStatistics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, month, category_id, category_name, category_color,
		       total_amount, transaction_count, percentage_of_month, average_amount, generated_at
		FROM category_statistics
		WHERE year = ? AND month = ?
		ORDER BY CAST(total_amount AS REAL) DESC`,
		year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query category statistics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []model.CategoryStatistics
	for rows.Next() {
		var c model.CategoryStatistics
		if err := rows.Scan(&c.ID, &c.Year, &c.Month, &c.CategoryID, &c.CategoryName, &c.CategoryColor,
			&c.TotalAmount, &c.TransactionCount, &c.PercentageOfMonth, &c.AverageAmount, &c.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category statistics: %w", err)
		}
		stats = append(stats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category statistics: %w", err)
	}
	return stats, nil
}

// ReplaceMonthStatistics atomically swaps a month's cache rows: every
// existing monthly/daily/category row for (year, month) is deleted and the
// freshly computed rows inserted inside one database transaction. Readers
// never observe a partially replaced month.
func (s *SQLiteStorage) ReplaceMonthStatistics(ctx context.Context, year, month int, monthly *model.MonthlyStatistics, daily []model.DailyStatistics, categories []model.CategoryStatistics) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateYearMonth(year, month); err != nil {
		return err
	}
	if monthly == nil {
		return fmt.Errorf("%w: monthly statistics", ErrNilParameter)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteMonthTx(ctx, tx, year, month); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO monthly_statistics (id, year, month, total_income, total_expense, savings_amount, transaction_count, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		monthly.ID, monthly.Year, monthly.Month, monthly.TotalIncome, monthly.TotalExpense,
		monthly.SavingsAmount, monthly.TransactionCount, monthly.GeneratedAt,
	); err != nil {
		return fmt.Errorf("failed to insert monthly statistics: %w", err)
	}

	if len(daily) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO daily_statistics (id, year, month, day, date, total_income, total_expense, net_amount, transaction_count, generated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare daily insert: %w", err)
		}
		for _, d := range daily {
			if _, err := stmt.ExecContext(ctx,
				d.ID, d.Year, d.Month, d.Day, d.Date,
				d.TotalIncome, d.TotalExpense, d.NetAmount, d.TransactionCount, d.GeneratedAt,
			); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("failed to insert daily statistics %s: %w", d.ID, err)
			}
		}
		_ = stmt.Close()
	}

	if len(categories) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO category_statistics (id, year, month, category_id, category_name, category_color,
				total_amount, transaction_count, percentage_of_month, average_amount, generated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare category insert: %w", err)
		}
		for _, c := range categories {
			if _, err := stmt.ExecContext(ctx,
				c.ID, c.Year, c.Month, c.CategoryID, c.CategoryName, c.CategoryColor,
				c.TotalAmount, c.TransactionCount, c.PercentageOfMonth, c.AverageAmount, c.GeneratedAt,
			); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("failed to insert category statistics %s: %w", c.ID, err)
			}
		}
		_ = stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit statistics replace: %w", err)
	}

	slog.Debug("replaced month statistics",
		"year", year,
		"month", month,
		"daily_rows", len(daily),
		"category_rows", len(categories))
	return nil
}

// DeleteMonthStatistics removes a month's cache rows without recomputing.
func (s *SQLiteStorage) DeleteMonthStatistics(ctx context.Context, year, month int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateYearMonth(year, month); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteMonthTx(ctx, tx, year, month); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit statistics delete: %w", err)
	}

	slog.Debug("invalidated month statistics", "year", year, "month", month)
	return nil
}

func deleteMonthTx(ctx context.Context, tx *sql.Tx, year, month int) error {
	for _, table := range []string{"monthly_statistics", "daily_statistics", "category_statistics"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE year = ? AND month = ?", table),
			year, month,
		); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}
