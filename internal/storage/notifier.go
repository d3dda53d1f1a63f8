package storage

import (
	"sync"

	"github.com/centavo-app/centavo/internal/service"
)

// subscriptionBuffer bounds how many undelivered change batches a slow
// subscriber may accumulate before new batches are dropped.
const subscriptionBuffer = 64

// changeNotifier fans committed row changes out to subscribers, keyed by
// table name. Emission happens after the owning SQL transaction commits, so
// subscribers only ever observe durable state.
type changeNotifier struct {
	mu     sync.Mutex
	subs   map[*changeSubscription]struct{}
	closed bool
}

func newChangeNotifier() *changeNotifier {
	return &changeNotifier{
		subs: make(map[*changeSubscription]struct{}),
	}
}

type changeSubscription struct {
	notifier *changeNotifier
	ch       chan service.ChangeSet
	tables   map[string]struct{}
	once     sync.Once
}

func (n *changeNotifier) subscribe(tables ...string) service.ChangeSubscription {
	sub := &changeSubscription{
		notifier: n,
		ch:       make(chan service.ChangeSet, subscriptionBuffer),
		tables:   make(map[string]struct{}, len(tables)),
	}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(sub.ch)
		return sub
	}
	n.subs[sub] = struct{}{}
	return sub
}

// emit delivers a change set to every subscriber watching its table. A
// subscriber whose buffer is full misses the batch; the statistics observer
// tolerates this because regeneration derives from the ledger, not from the
// events themselves, and any later event for the month re-triggers it.
func (n *changeNotifier) emit(cs service.ChangeSet) {
	if len(cs.Created) == 0 && len(cs.Updated) == 0 && len(cs.Deleted) == 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for sub := range n.subs {
		if _, ok := sub.tables[cs.Table]; !ok {
			continue
		}
		select {
		case sub.ch <- cs:
		default:
		}
	}
}

func (n *changeNotifier) remove(sub *changeSubscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.subs[sub]; ok {
		delete(n.subs, sub)
		close(sub.ch)
	}
}

func (n *changeNotifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for sub := range n.subs {
		delete(n.subs, sub)
		close(sub.ch)
	}
}

// Changes returns the subscription's delivery channel. It is closed by
// Unsubscribe or when the storage shuts down.
func (s *changeSubscription) Changes() <-chan service.ChangeSet {
	return s.ch
}

// Unsubscribe detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *changeSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.notifier.remove(s)
	})
}
