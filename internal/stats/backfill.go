package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultBackfillWindow is how many trailing months (current included) the
// startup backfill checks for missing cache rows.
const DefaultBackfillWindow = 12

// Backfill is a one-shot startup task that warms the statistics cache for
// any month in the trailing window that was never computed. It is best
// effort: failures are logged, never surfaced.
type Backfill struct {
	svc        *Service
	idleDelay  time.Duration
	monthsBack int

	mu      sync.Mutex
	running bool
}

// NewBackfill creates a backfill task. idleDelay defers the work until the
// host has settled after startup; zero runs immediately.
func NewBackfill(svc *Service, idleDelay time.Duration) *Backfill {
	return &Backfill{
		svc:        svc,
		idleDelay:  idleDelay,
		monthsBack: DefaultBackfillWindow,
	}
}

// Start launches the backfill in the background. Re-invocation while a run
// is in progress is a no-op; a run cannot be canceled mid-flight except by
// the context.
func (b *Backfill) Start(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			b.running = false
			b.mu.Unlock()
		}()

		if b.idleDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.idleDelay):
			}
		}

		start := time.Now()
		generated, err := b.svc.GenerateMissing(ctx, b.monthsBack, nil)
		if err != nil {
			slog.Warn("statistics backfill failed", "error", err)
			return
		}
		slog.Info("statistics backfill complete",
			"generated", generated,
			"window_months", b.monthsBack,
			"duration", time.Since(start))
	}()
}

// Running reports whether a backfill run is in progress.
func (b *Backfill) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}
