// Package dashboard implements the UI-facing consumer of the statistics
// cache: a store holding the selected month's KPI and chart data, loaded
// progressively with retry and a direct-computation fallback.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"github.com/centavo-app/centavo/internal/stats"
	"golang.org/x/sync/errgroup"
)

// Phase is the progressive-load phase. Transitions are one-directional per
// load cycle: skeleton, then kpis, then complete.
type Phase int

const (
	// PhaseSkeleton means nothing for the cycle has loaded yet.
	PhaseSkeleton Phase = iota
	// PhaseKPIs means monthly totals are loaded; KPI cards may render.
	PhaseKPIs
	// PhaseComplete means daily and category data are loaded too.
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseKPIs:
		return "kpis"
	case PhaseComplete:
		return "complete"
	default:
		return "skeleton"
	}
}

// State is a point-in-time snapshot of the dashboard.
type State struct {
	Err          error
	KPI          *model.MonthlyStatistics
	Daily        []model.DailyStatistics
	Categories   []model.CategoryStatistics
	Month        model.MonthKey
	Phase        Phase
	KPIsLoaded   bool
	ChartsLoaded bool
	Loading      bool
	UsedFallback bool
}

// Store serves dashboard reads for one selected month. Cache reads retry
// with exponential backoff; if the cache path is exhausted the store
// recomputes directly from the raw ledger, bypassing (and not writing) the
// cache, so the UI only ever errors when the ledger itself is unreachable.
type Store struct {
	stats   *stats.Service
	storage service.Storage
	retry   service.RetryOptions

	mu    sync.RWMutex
	state State
}

// NewStore creates a dashboard store positioned on the month containing now.
func NewStore(statsService *stats.Service, storage service.Storage, now time.Time) *Store {
	return &Store{
		stats:   statsService,
		storage: storage,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
		},
		state: State{
			Month: model.CurrentMonth(now),
			Phase: PhaseSkeleton,
		},
	}
}

// Snapshot returns a copy of the current dashboard state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SelectedMonth returns the month the dashboard is showing.
func (s *Store) SelectedMonth() model.MonthKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Month
}

// GoToPreviousMonth moves the selection back one month and reloads.
func (s *Store) GoToPreviousMonth(ctx context.Context) error {
	s.mu.Lock()
	s.state.Month = s.state.Month.Prev()
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// GoToNextMonth moves the selection forward one month and reloads.
func (s *Store) GoToNextMonth(ctx context.Context) error {
	s.mu.Lock()
	s.state.Month = s.state.Month.Next()
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh performs a full load: monthly, category, and daily statistics are
// fetched concurrently, each wrapped in retry with exponential backoff. The
// reads do not cancel each other: every one runs its full retry budget, and
// only when one still fails does the store fall back to computing the
// aggregates directly from raw transactions.
func (s *Store) Refresh(ctx context.Context) error {
	month := s.beginCycle()

	var (
		kpi        *model.MonthlyStatistics
		daily      []model.DailyStatistics
		categories []model.CategoryStatistics
	)

	var g errgroup.Group
	g.Go(func() error {
		return common.WithRetry(ctx, func() error {
			var err error
			kpi, err = s.stats.GetMonthly(ctx, month.Year, month.Month)
			return err
		}, s.retry)
	})
	g.Go(func() error {
		return common.WithRetry(ctx, func() error {
			var err error
			categories, err = s.stats.GetCategories(ctx, month.Year, month.Month)
			return err
		}, s.retry)
	})
	g.Go(func() error {
		return common.WithRetry(ctx, func() error {
			var err error
			daily, err = s.stats.GetDaily(ctx, month.Year, month.Month)
			return err
		}, s.retry)
	})

	if err := g.Wait(); err != nil {
		slog.Warn("dashboard cache read failed, falling back to direct computation",
			"month", month.String(), "error", err)
		return s.refreshFromLedger(ctx, month)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Month != month {
		return nil // navigation moved on mid-load
	}
	s.state.KPI = kpi
	s.state.Daily = daily
	s.state.Categories = categories
	s.state.Phase = PhaseComplete
	s.state.KPIsLoaded = true
	s.state.ChartsLoaded = true
	s.state.Loading = false
	s.state.Err = nil
	s.state.UsedFallback = false
	return nil
}

// RefreshProgressive resets to skeleton, publishes monthly KPIs as soon as
// they load, then loads chart data in a second phase. Each phase's failure
// is caught independently and does not abort the other phase.
func (s *Store) RefreshProgressive(ctx context.Context) error {
	month := s.beginCycle()

	kpi, kpiErr := s.stats.GetMonthly(ctx, month.Year, month.Month)
	if kpiErr != nil {
		slog.Warn("progressive KPI load failed", "month", month.String(), "error", kpiErr)
	} else {
		s.mu.Lock()
		if s.state.Month == month {
			s.state.KPI = kpi
			s.state.Phase = PhaseKPIs
			s.state.KPIsLoaded = true
		}
		s.mu.Unlock()
	}

	// Let KPI consumers render before the heavier chart queries run.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}

	categories, catErr := s.stats.GetCategories(ctx, month.Year, month.Month)
	daily, dayErr := s.stats.GetDaily(ctx, month.Year, month.Month)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Month != month {
		return nil
	}
	if catErr == nil && dayErr == nil {
		s.state.Categories = categories
		s.state.Daily = daily
		s.state.ChartsLoaded = true
	} else {
		slog.Warn("progressive chart load failed",
			"month", month.String(), "category_error", catErr, "daily_error", dayErr)
	}
	s.state.Phase = PhaseComplete
	s.state.Loading = false
	if kpiErr != nil && catErr != nil && dayErr != nil {
		s.state.Err = common.NewUserError("could not load dashboard", kpiErr)
		return s.state.Err
	}
	return nil
}

// refreshFromLedger is the fallback path: aggregate raw transactions through
// the same calculator the cache pipeline uses, so the numbers are identical
// to a cache hit. The result is served to the UI only and never written back
// to the cache.
func (s *Store) refreshFromLedger(ctx context.Context, month model.MonthKey) error {
	transactions, err := s.storage.GetTransactionsByMonth(ctx, month.Year, month.Month)
	if err != nil {
		return s.fail(month, fmt.Errorf("fallback transaction query: %w", err))
	}
	categories, err := s.storage.GetCategories(ctx)
	if err != nil {
		return s.fail(month, fmt.Errorf("fallback category query: %w", err))
	}

	computed := stats.Calculate(transactions, categories, month.Year, month.Month)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Month != month {
		return nil
	}
	s.state.KPI = computed.Monthly
	s.state.Daily = computed.Daily
	s.state.Categories = computed.Categories
	s.state.Phase = PhaseComplete
	s.state.KPIsLoaded = true
	s.state.ChartsLoaded = true
	s.state.Loading = false
	s.state.Err = nil
	s.state.UsedFallback = true

	slog.Info("dashboard served from direct computation", "month", month.String())
	return nil
}

// beginCycle resets the load state machine to skeleton for the currently
// selected month and returns that month.
func (s *Store) beginCycle() model.MonthKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Phase = PhaseSkeleton
	s.state.KPIsLoaded = false
	s.state.ChartsLoaded = false
	s.state.Loading = true
	s.state.Err = nil
	s.state.UsedFallback = false
	return s.state.Month
}

// fail records a user-visible error state. Only the fallback path reaching
// the ledger and still failing lands here.
func (s *Store) fail(month model.MonthKey, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Month == month {
		s.state.Loading = false
		s.state.Err = common.NewUserError("could not load dashboard", err)
	}
	return err
}
