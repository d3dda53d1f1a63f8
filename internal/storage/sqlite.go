package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/centavo-app/centavo/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	notifier *changeNotifier
	dbPath   string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:       db,
		dbPath:   dbPath,
		notifier: newChangeNotifier(),
	}, nil
}

// SubscribeChanges returns a live feed of committed row changes for the
// given tables. The statistics cache tables are deliberately not observable:
// they are derived data, and watching them would feed regeneration back into
// itself.
func (s *SQLiteStorage) SubscribeChanges(tables ...string) service.ChangeSubscription {
	return s.notifier.subscribe(tables...)
}

// Close closes the database connection and shuts down change delivery.
func (s *SQLiteStorage) Close() error {
	s.notifier.close()
	return s.db.Close()
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return runMigrations(ctx, s.db)
}
