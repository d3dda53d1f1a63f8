package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/centavo-app/centavo/internal/config"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"github.com/centavo-app/centavo/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// initStorage opens the ledger database and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// parseMonthFlag parses "YYYY-MM", defaulting to the current month when the
// flag is empty.
func parseMonthFlag(value string) (model.MonthKey, error) {
	if value == "" {
		return model.CurrentMonth(time.Now()), nil
	}

	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return model.MonthKey{}, fmt.Errorf("invalid month %q, want YYYY-MM", value)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return model.MonthKey{}, fmt.Errorf("invalid year in %q: %w", value, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return model.MonthKey{}, fmt.Errorf("invalid month in %q: %w", value, err)
	}

	key := model.MonthKey{Year: year, Month: month}
	if !key.Valid() {
		return model.MonthKey{}, fmt.Errorf("invalid month %q", value)
	}
	return key, nil
}

// parseAmountMinor converts a signed decimal amount string ("-12.50") to
// minor units exactly.
func parseAmountMinor(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision", value)
	}
	return minor.IntPart(), nil
}
