package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
	"github.com/centavo-app/centavo/internal/stats"
	"github.com/centavo-app/centavo/internal/storage"
)

var errCacheDown = errors.New("database is locked")

// brokenCacheStorage fails every statistics-table read and write while the
// raw ledger stays reachable, forcing the dashboard onto its fallback path.
type brokenCacheStorage struct {
	service.Storage
}

func (b *brokenCacheStorage) GetMonthlyStatistics(ctx context.Context, year, month int) (*model.MonthlyStatistics, error) {
	return nil, errCacheDown
}

func (b *brokenCacheStorage) GetDailyStatistics(ctx context.Context, year, month int) ([]model.DailyStatistics, error) {
	return nil, errCacheDown
}

func (b *brokenCacheStorage) GetCategoryStatistics(ctx context.Context, year, month int) ([]model.CategoryStatistics, error) {
	return nil, errCacheDown
}

func (b *brokenCacheStorage) ReplaceMonthStatistics(ctx context.Context, year, month int, monthly *model.MonthlyStatistics, daily []model.DailyStatistics, categories []model.CategoryStatistics) error {
	return errCacheDown
}

// brokenLedgerStorage fails everything, cache and ledger alike.
type brokenLedgerStorage struct {
	brokenCacheStorage
}

func (b *brokenLedgerStorage) GetTransactionsByMonth(ctx context.Context, year, month int) ([]model.Transaction, error) {
	return nil, errors.New("disk I/O error")
}

// partialOutageStorage fails only the daily-table reads. The monthly reads
// are delayed and counted, so a test can tell whether a sibling read was cut
// short when the daily read gave up.
type partialOutageStorage struct {
	service.Storage
	mu           sync.Mutex
	monthlyReads int
	dailyReads   int
}

func (p *partialOutageStorage) GetMonthlyStatistics(ctx context.Context, year, month int) (*model.MonthlyStatistics, error) {
	time.Sleep(50 * time.Millisecond)
	m, err := p.Storage.GetMonthlyStatistics(ctx, year, month)
	if err == nil {
		p.mu.Lock()
		p.monthlyReads++
		p.mu.Unlock()
	}
	return m, err
}

func (p *partialOutageStorage) GetDailyStatistics(ctx context.Context, year, month int) ([]model.DailyStatistics, error) {
	p.mu.Lock()
	p.dailyReads++
	p.mu.Unlock()
	return nil, errCacheDown
}

// slowChartStorage delays the sparse-table reads so the KPI phase is
// observable before the charts land.
type slowChartStorage struct {
	service.Storage
	delay time.Duration
}

func (s *slowChartStorage) GetCategoryStatistics(ctx context.Context, year, month int) ([]model.CategoryStatistics, error) {
	time.Sleep(s.delay)
	return s.Storage.GetCategoryStatistics(ctx, year, month)
}

func newLedgerFixture(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedMarch(t *testing.T, store service.Storage) {
	t.Helper()
	ctx := context.Background()

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	var income, expense int64
	for _, c := range categories {
		if c.IsIncome && income == 0 {
			income = c.ID
		}
		if !c.IsIncome && expense == 0 {
			expense = c.ID
		}
	}
	require.NotZero(t, income)
	require.NotZero(t, expense)

	seed := []model.Transaction{
		{AmountMinor: 500000, OccurredAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), CategoryID: income, Description: "salary"},
		{AmountMinor: -120000, OccurredAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.Local), CategoryID: expense, Description: "groceries"},
		{AmountMinor: -80000, OccurredAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local), CategoryID: expense, Description: "dinner"},
	}
	require.NoError(t, store.SaveTransactions(ctx, seed))
}

// fastRetry shrinks the backoff so failure paths resolve quickly in tests.
func fastRetry(s *Store) {
	s.retry = service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
	}
}

func marchNow() time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
}

func TestRefreshLoadsFromCache(t *testing.T) {
	ledger := newLedgerFixture(t)
	seedMarch(t, ledger)

	store := NewStore(stats.NewService(ledger), ledger, marchNow())
	require.NoError(t, store.Refresh(context.Background()))

	state := store.Snapshot()
	assert.Equal(t, PhaseComplete, state.Phase)
	assert.True(t, state.KPIsLoaded)
	assert.True(t, state.ChartsLoaded)
	assert.False(t, state.Loading)
	assert.False(t, state.UsedFallback)
	assert.NoError(t, state.Err)

	require.NotNil(t, state.KPI)
	assert.Equal(t, "5000", state.KPI.TotalIncome.String())
	assert.Equal(t, "2000", state.KPI.TotalExpense.String())
	assert.Len(t, state.Daily, 3)
	assert.Len(t, state.Categories, 1)
}

func TestRefreshFallsBackToLedger(t *testing.T) {
	ledger := newLedgerFixture(t)
	seedMarch(t, ledger)

	broken := &brokenCacheStorage{Storage: ledger}
	store := NewStore(stats.NewService(broken), broken, marchNow())
	fastRetry(store)

	require.NoError(t, store.Refresh(context.Background()))

	state := store.Snapshot()
	assert.True(t, state.UsedFallback, "cache outage should fall back, not error")
	assert.Equal(t, PhaseComplete, state.Phase)
	assert.NoError(t, state.Err)
	require.NotNil(t, state.KPI)
	assert.Equal(t, "5000", state.KPI.TotalIncome.String())
	assert.Equal(t, "2000", state.KPI.TotalExpense.String())
}

func TestRefreshSingleTableFailureDoesNotCancelSiblings(t *testing.T) {
	ledger := newLedgerFixture(t)
	seedMarch(t, ledger)
	ctx := context.Background()

	// Warm the cache so the surviving reads are pure hits.
	require.NoError(t, stats.NewService(ledger).Generate(ctx, 2024, 3))

	outage := &partialOutageStorage{Storage: ledger}
	store := NewStore(stats.NewService(outage), outage, marchNow())
	fastRetry(store)

	require.NoError(t, store.Refresh(ctx))

	state := store.Snapshot()
	assert.True(t, state.UsedFallback, "a read failing after its retry budget still forces the fallback")
	require.NotNil(t, state.KPI)
	assert.Equal(t, "5000", state.KPI.TotalIncome.String())
	assert.Len(t, state.Daily, 3)

	outage.mu.Lock()
	monthlyReads, dailyReads := outage.monthlyReads, outage.dailyReads
	outage.mu.Unlock()

	// The failing read exhausts its own retry budget while the slower
	// monthly reads still run to successful completion.
	assert.GreaterOrEqual(t, monthlyReads, 1,
		"sibling reads must finish even though the daily read failed first")
	assert.Equal(t, store.retry.MaxAttempts, dailyReads,
		"the failing read gets its full retry budget")
}

func TestFallbackMatchesCacheNumbers(t *testing.T) {
	ledger := newLedgerFixture(t)
	seedMarch(t, ledger)
	ctx := context.Background()

	cached := NewStore(stats.NewService(ledger), ledger, marchNow())
	require.NoError(t, cached.Refresh(ctx))

	broken := &brokenCacheStorage{Storage: ledger}
	fallback := NewStore(stats.NewService(broken), broken, marchNow())
	fastRetry(fallback)
	require.NoError(t, fallback.Refresh(ctx))

	a, b := cached.Snapshot(), fallback.Snapshot()
	assert.True(t, a.KPI.TotalIncome.Equal(b.KPI.TotalIncome))
	assert.True(t, a.KPI.TotalExpense.Equal(b.KPI.TotalExpense))
	assert.True(t, a.KPI.SavingsAmount.Equal(b.KPI.SavingsAmount))
	assert.Equal(t, a.KPI.TransactionCount, b.KPI.TransactionCount)
	assert.Len(t, b.Daily, len(a.Daily))
	assert.Len(t, b.Categories, len(a.Categories))
}

func TestRefreshErrorsWhenLedgerUnreachable(t *testing.T) {
	ledger := newLedgerFixture(t)

	broken := &brokenLedgerStorage{brokenCacheStorage{Storage: ledger}}
	store := NewStore(stats.NewService(broken), broken, marchNow())
	fastRetry(store)

	err := store.Refresh(context.Background())
	require.Error(t, err)

	state := store.Snapshot()
	assert.Error(t, state.Err)
	assert.False(t, state.Loading)
	assert.False(t, state.KPIsLoaded)
}

func TestRefreshProgressivePhases(t *testing.T) {
	ledger := newLedgerFixture(t)
	seedMarch(t, ledger)

	// Warm the cache so the progressive pass is pure reads.
	svc := stats.NewService(ledger)
	require.NoError(t, svc.Generate(context.Background(), 2024, 3))

	slow := &slowChartStorage{Storage: ledger, delay: 150 * time.Millisecond}
	store := NewStore(stats.NewService(slow), slow, marchNow())

	done := make(chan error, 1)
	go func() { done <- store.RefreshProgressive(context.Background()) }()

	// KPIs publish before the delayed chart reads finish.
	sawKPIs := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := store.Snapshot()
		if state.Phase == PhaseKPIs && state.KPIsLoaded && !state.ChartsLoaded {
			sawKPIs = true
			break
		}
		if state.Phase == PhaseComplete {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, sawKPIs, "KPI phase should be observable before charts load")

	require.NoError(t, <-done)
	state := store.Snapshot()
	assert.Equal(t, PhaseComplete, state.Phase)
	assert.True(t, state.ChartsLoaded)
	assert.Len(t, state.Categories, 1)
}

func TestRefreshProgressiveAllFail(t *testing.T) {
	ledger := newLedgerFixture(t)

	broken := &brokenLedgerStorage{brokenCacheStorage{Storage: ledger}}
	store := NewStore(stats.NewService(broken), broken, marchNow())

	err := store.RefreshProgressive(context.Background())
	require.Error(t, err)

	state := store.Snapshot()
	assert.Error(t, state.Err)
	assert.False(t, state.KPIsLoaded)
}

func TestMonthNavigation(t *testing.T) {
	ledger := newLedgerFixture(t)
	seedMarch(t, ledger)
	ctx := context.Background()

	store := NewStore(stats.NewService(ledger), ledger, marchNow())
	require.Equal(t, model.MonthKey{Year: 2024, Month: 3}, store.SelectedMonth())

	require.NoError(t, store.GoToPreviousMonth(ctx))
	assert.Equal(t, model.MonthKey{Year: 2024, Month: 2}, store.SelectedMonth())

	state := store.Snapshot()
	require.NotNil(t, state.KPI, "empty month still yields an all-zero KPI row")
	assert.True(t, state.KPI.TotalIncome.IsZero())
	assert.Empty(t, state.Daily)

	require.NoError(t, store.GoToNextMonth(ctx))
	require.NoError(t, store.GoToNextMonth(ctx))
	assert.Equal(t, model.MonthKey{Year: 2024, Month: 4}, store.SelectedMonth())

	// Year boundary.
	dec := NewStore(stats.NewService(ledger), ledger, time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local))
	require.NoError(t, dec.GoToPreviousMonth(ctx))
	assert.Equal(t, model.MonthKey{Year: 2023, Month: 12}, dec.SelectedMonth())
}
