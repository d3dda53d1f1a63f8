package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/model"
	"github.com/centavo-app/centavo/internal/service"
)

// DefaultDebounce is how long the observer waits after the last ledger
// change for a month before regenerating its statistics.
const DefaultDebounce = 500 * time.Millisecond

// Observer subscribes to the ledger's change stream and schedules debounced
// statistics regeneration for every month touched by a change. A burst of
// edits to the same month collapses into a single regeneration.
type Observer struct {
	svc      *Service
	storage  service.Storage
	debounce time.Duration

	mu      sync.Mutex
	timers  map[model.MonthKey]*time.Timer
	sub     service.ChangeSubscription
	done    chan struct{}
	running bool
}

// NewObserver creates an observer over the given service and storage. The
// service is injected directly; the observer owns no storage state of its
// own beyond its subscription.
func NewObserver(svc *Service, storage service.Storage) *Observer {
	return &Observer{
		svc:      svc,
		storage:  storage,
		debounce: DefaultDebounce,
		timers:   make(map[model.MonthKey]*time.Timer),
	}
}

// Start subscribes to transaction-table changes and begins scheduling
// regenerations. Calling Start while running is a no-op.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	o.running = true
	o.sub = o.storage.SubscribeChanges(service.TableTransactions)
	o.done = make(chan struct{})

	go o.run(ctx, o.sub, o.done)
	slog.Info("statistics observer started", "debounce", o.debounce)
}

// Stop cancels all pending debounce timers and unsubscribes. Calling Stop
// while stopped is a no-op.
func (o *Observer) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	for key, timer := range o.timers {
		timer.Stop()
		delete(o.timers, key)
	}
	sub, done := o.sub, o.done
	o.sub = nil
	o.mu.Unlock()

	sub.Unsubscribe()
	<-done
	slog.Info("statistics observer stopped")
}

func (o *Observer) run(ctx context.Context, sub service.ChangeSubscription, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case cs, ok := <-sub.Changes():
			if !ok {
				return
			}
			for key := range affectedMonths(cs) {
				o.schedule(ctx, key)
			}
		}
	}
}

// affectedMonths extracts the distinct months touched by a change batch.
// Soft-deleted rows arrive as updates and still carry occurred_at, so every
// change maps to a month; the ledger never hard-deletes, which is what keeps
// this mapping total.
func affectedMonths(cs service.ChangeSet) map[model.MonthKey]struct{} {
	months := make(map[model.MonthKey]struct{})
	for i := range cs.Created {
		months[cs.Created[i].Month()] = struct{}{}
	}
	for i := range cs.Updated {
		months[cs.Updated[i].Month()] = struct{}{}
	}
	return months
}

// schedule resets the month's debounce timer: one pending timer per month,
// restarted on every new change for that month.
func (o *Observer) schedule(ctx context.Context, key model.MonthKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}

	if timer, ok := o.timers[key]; ok {
		timer.Stop()
	}
	o.timers[key] = time.AfterFunc(o.debounce, func() {
		o.fire(ctx, key)
	})
}

// fire runs one scheduled regeneration. The timer entry is cleared before
// regenerating, success or not, so future changes can always re-trigger.
func (o *Observer) fire(ctx context.Context, key model.MonthKey) {
	o.mu.Lock()
	delete(o.timers, key)
	o.mu.Unlock()

	if err := o.svc.Generate(ctx, key.Year, key.Month); err != nil {
		slog.Error("scheduled regeneration failed", "month", key.String(), "error", err)
	}
}
