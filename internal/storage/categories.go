package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
)

// CreateCategory creates a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, color string, isIncome bool) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if color == "" {
		color = "#8884d8"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, color, is_income) VALUES (?, ?, ?)`,
		name, color, isIncome,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category id: %w", err)
	}

	slog.Info("created category", "id", id, "name", name, "is_income", isIncome)

	return &model.Category{
		ID:        id,
		Name:      name,
		Color:     color,
		IsIncome:  isIncome,
		CreatedAt: time.Now(),
	}, nil
}

// GetCategories returns all categories that have not been soft-deleted.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, is_income, deleted_at, created_at
		FROM categories
		WHERE deleted_at IS NULL
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// GetCategoryByID returns a category by its ID, including soft-deleted ones
// so old ledger entries can still resolve their category.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, color, is_income, deleted_at, created_at
		FROM categories
		WHERE id = ?`, id)

	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// DeleteCategory soft-deletes a category. Its transactions keep their
// category_id; aggregation shows the placeholder name from then on.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: category %d", common.ErrNotFound, id)
	}

	slog.Info("deleted category", "id", id)
	return nil
}

func scanCategory(r rowScanner) (*model.Category, error) {
	var cat model.Category
	var deletedAt sql.NullTime
	if err := r.Scan(&cat.ID, &cat.Name, &cat.Color, &cat.IsIncome, &deletedAt, &cat.CreatedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		cat.DeletedAt = &t
	}
	return &cat, nil
}
