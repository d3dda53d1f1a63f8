package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"github.com/google/uuid"
)

const transactionColumns = `id, amount_minor, occurred_at, category_id, description, trashed_at, created_at, updated_at`

// CreateTransaction inserts a single ledger entry, assigning an ID when the
// caller did not provide one. Subscribers to the transactions table see it as
// a created row.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, amount_minor, occurred_at, category_id, description, trashed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.AmountMinor, txn.OccurredAt, txn.CategoryID, txn.Description, txn.TrashedAt, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	s.notifier.emit(service.ChangeSet{
		Table:   service.TableTransactions,
		Created: []model.Transaction{*txn},
	})

	slog.Debug("created transaction", "id", txn.ID, "amount_minor", txn.AmountMinor)
	return nil
}

// SaveTransactions inserts multiple ledger entries in one database
// transaction and emits a single change batch for all of them. Used by the
// OFX importer.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(txns); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, amount_minor, occurred_at, category_id, description, trashed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for i := range txns {
		if txns[i].ID == "" {
			txns[i].ID = uuid.NewString()
		}
		if txns[i].CreatedAt.IsZero() {
			txns[i].CreatedAt = now
		}
		txns[i].UpdatedAt = now

		if _, err := stmt.ExecContext(ctx,
			txns[i].ID, txns[i].AmountMinor, txns[i].OccurredAt, txns[i].CategoryID,
			txns[i].Description, txns[i].TrashedAt, txns[i].CreatedAt, txns[i].UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txns[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}

	s.notifier.emit(service.ChangeSet{
		Table:   service.TableTransactions,
		Created: txns,
	})

	slog.Info("saved transactions", "count", len(txns))
	return nil
}

// UpdateTransaction rewrites a ledger entry's mutable fields (amount, date,
// category, description). Subscribers see it as an updated row.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if err := validateString(txn.ID, "id"); err != nil {
		return err
	}

	txn.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount_minor = ?, occurred_at = ?, category_id = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		txn.AmountMinor, txn.OccurredAt, txn.CategoryID, txn.Description, txn.UpdatedAt, txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, txn.ID)
	}

	s.notifier.emit(service.ChangeSet{
		Table:   service.TableTransactions,
		Updated: []model.Transaction{*txn},
	})

	return nil
}

// TrashTransaction soft-deletes a ledger entry by setting trashed_at. The
// row survives, so the change stream can still carry its occurred_at and the
// statistics observer can map the change to a month. Rows are never hard
// deleted from the ledger.
func (s *SQLiteStorage) TrashTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET trashed_at = ?, updated_at = ?
		WHERE id = ? AND trashed_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to trash transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}

	txn, err := s.GetTransactionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to reload trashed transaction: %w", err)
	}

	s.notifier.emit(service.ChangeSet{
		Table:   service.TableTransactions,
		Updated: []model.Transaction{*txn},
	})

	slog.Debug("trashed transaction", "id", id)
	return nil
}

// GetTransactionByID returns a single ledger entry, trashed or not.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ?`, id)

	txn, err := scanTransactionRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

// GetTransactionsByMonth returns every non-trashed transaction whose
// occurred_at falls within the calendar month. This is the regeneration
// input query: its filter, not the calculator, is what scopes a month.
func (s *SQLiteStorage) GetTransactionsByMonth(ctx context.Context, year, month int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}

	key := model.MonthKey{Year: year, Month: month}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE trashed_at IS NULL AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at`,
		key.Start(), key.End(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by month: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// GetTransactions returns ledger entries matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var conds []string
	var args []any

	if !filter.IncludeTrashed {
		conds = append(conds, "trashed_at IS NULL")
	}
	if filter.StartDate != nil {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conds = append(conds, "occurred_at < ?")
		args = append(args, *filter.EndDate)
	}
	if filter.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY occurred_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransactionRow(r rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var trashedAt sql.NullTime
	if err := r.Scan(
		&txn.ID, &txn.AmountMinor, &txn.OccurredAt, &txn.CategoryID,
		&txn.Description, &trashedAt, &txn.CreatedAt, &txn.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if trashedAt.Valid {
		t := trashedAt.Time
		txn.TrashedAt = &t
	}
	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}
