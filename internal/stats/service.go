package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"golang.org/x/sync/errgroup"
)

// missingBatchSize bounds how many months regenerate concurrently during a
// backfill pass, limiting peak load on the ledger store.
const missingBatchSize = 3

// Service orchestrates cache-or-compute reads and cache regeneration for
// the statistics tables.
type Service struct {
	storage service.Storage
	locks   *MonthLocks
	now     func() time.Time
}

// NewService creates a statistics service over the given storage.
func NewService(storage service.Storage) *Service {
	return &Service{
		storage: storage,
		locks:   NewMonthLocks(),
		now:     time.Now,
	}
}

// GetMonthly returns the monthly cache row, regenerating it on a miss. A
// month with zero transactions still has an all-zero row, so a nil result
// only happens when regeneration was skipped because another one was already
// in flight for the month; callers should treat that as "try again shortly".
func (s *Service) GetMonthly(ctx context.Context, year, month int) (*model.MonthlyStatistics, error) {
	m, err := s.storage.GetMonthlyStatistics(ctx, year, month)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if err := s.Generate(ctx, year, month); err != nil {
		return nil, err
	}

	m, err = s.storage.GetMonthlyStatistics(ctx, year, month)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// GetDaily returns the per-day cache rows, regenerating only when the month
// has never been computed. The daily table is sparse, so emptiness alone is
// not a cache miss: the monthly row's existence is the computed marker.
func (s *Service) GetDaily(ctx context.Context, year, month int) ([]model.DailyStatistics, error) {
	if err := s.ensureComputed(ctx, year, month); err != nil {
		return nil, err
	}
	return s.storage.GetDailyStatistics(ctx, year, month)
}

// GetCategories returns the per-category cache rows, with the same
// computed-marker semantics as GetDaily.
func (s *Service) GetCategories(ctx context.Context, year, month int) ([]model.CategoryStatistics, error) {
	if err := s.ensureComputed(ctx, year, month); err != nil {
		return nil, err
	}
	return s.storage.GetCategoryStatistics(ctx, year, month)
}

func (s *Service) ensureComputed(ctx context.Context, year, month int) error {
	_, err := s.storage.GetMonthlyStatistics(ctx, year, month)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return s.Generate(ctx, year, month)
}

// Generate recomputes and atomically replaces one month's cache rows. At
// most one regeneration runs per month at a time; a caller that loses the
// race returns immediately without error, since the in-flight run reads the
// same ledger. The lock is released on every exit path.
func (s *Service) Generate(ctx context.Context, year, month int) error {
	key := model.MonthKey{Year: year, Month: month}
	if !key.Valid() {
		return fmt.Errorf("%w: %04d-%02d", common.ErrInvalidMonth, year, month)
	}

	if !s.locks.TryAcquire(key) {
		slog.Debug("regeneration already in flight, skipping", "month", key.String())
		return nil
	}
	defer s.locks.Release(key)

	start := s.now()

	transactions, err := s.storage.GetTransactionsByMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("failed to load transactions for %s: %w", key, err)
	}

	categories, err := s.storage.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	computed := Calculate(transactions, categories, year, month)

	if err := s.storage.ReplaceMonthStatistics(ctx, year, month,
		computed.Monthly, computed.Daily, computed.Categories); err != nil {
		return fmt.Errorf("failed to replace statistics for %s: %w", key, err)
	}

	slog.Debug("regenerated statistics",
		"month", key.String(),
		"transactions", len(transactions),
		"duration", s.now().Sub(start))
	return nil
}

// UpdateForTransaction regenerates every month affected by a transaction
// mutation: its current month, plus its previous month when an edit moved
// the date across a month boundary. Months regenerate sequentially.
func (s *Service) UpdateForTransaction(ctx context.Context, txn, previous *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("transaction cannot be nil")
	}

	months := []model.MonthKey{txn.Month()}
	if previous != nil {
		if prev := previous.Month(); prev != months[0] {
			months = append(months, prev)
		}
	}

	for _, key := range months {
		if err := s.Generate(ctx, key.Year, key.Month); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateMonth deletes a month's cache rows without recomputing them.
// The next read lazily regenerates.
func (s *Service) InvalidateMonth(ctx context.Context, year, month int) error {
	return s.storage.DeleteMonthStatistics(ctx, year, month)
}

// MissingMonths returns the months in the trailing window (current month
// included) that have no monthly cache row, oldest first.
func (s *Service) MissingMonths(ctx context.Context, monthsBack int) ([]model.MonthKey, error) {
	if monthsBack < 1 {
		monthsBack = 1
	}

	var missing []model.MonthKey
	key := model.CurrentMonth(s.now())
	for i := 0; i < monthsBack; i++ {
		_, err := s.storage.GetMonthlyStatistics(ctx, key.Year, key.Month)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrNotFound):
			missing = append(missing, key)
		default:
			return nil, err
		}
		key = key.Prev()
	}

	// Oldest first, so a partial failure leaves a contiguous recent gap.
	for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
		missing[i], missing[j] = missing[j], missing[i]
	}
	return missing, nil
}

// GenerateMissing regenerates every month in the trailing window that has no
// monthly cache row, in bounded-concurrency batches. onProgress, when
// non-nil, is invoked after each month completes. Returns how many months
// were regenerated.
func (s *Service) GenerateMissing(ctx context.Context, monthsBack int, onProgress func(model.MonthKey)) (int, error) {
	missing, err := s.MissingMonths(ctx, monthsBack)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(missingBatchSize)
	for _, key := range missing {
		g.Go(func() error {
			if err := s.Generate(gctx, key.Year, key.Month); err != nil {
				return err
			}
			if onProgress != nil {
				onProgress(key)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	slog.Info("generated missing statistics", "months", len(missing))
	return len(missing), nil
}
