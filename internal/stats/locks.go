package stats

import (
	"sync"

	"github.com/centavo-app/centavo/internal/model"
)

// MonthLocks is an advisory, process-local registry of months with a
// regeneration in flight. Callers that fail to acquire do not queue: the
// in-flight regeneration reads the same ledger and will produce the rows
// they wanted. The registry is owned by the Service instance rather than
// being package state, so tests and multiple instances stay isolated.
type MonthLocks struct {
	mu   sync.Mutex
	held map[model.MonthKey]struct{}
}

// NewMonthLocks creates an empty lock registry.
func NewMonthLocks() *MonthLocks {
	return &MonthLocks{held: make(map[model.MonthKey]struct{})}
}

// TryAcquire attempts to take the lock for a month. It never blocks; false
// means another regeneration holds it.
func (l *MonthLocks) TryAcquire(key model.MonthKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees the lock for a month. Releasing an unheld lock is a no-op.
func (l *MonthLocks) Release(key model.MonthKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// Held reports whether a regeneration currently holds the month's lock.
func (l *MonthLocks) Held(key model.MonthKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
