package services

import (
	"sync"

	"kharcha/internal/core"
)

// snapshotHub fans full expense snapshots out to per-user subscribers.
// Each subscriber channel is buffered with capacity 1 and updated
// latest-wins: a slow reader only ever misses intermediate snapshots,
// never the newest one.
type snapshotHub struct {
	mu   sync.Mutex
	subs map[string]map[chan []core.Expense]struct{}
}

func newSnapshotHub() *snapshotHub {
	return &snapshotHub{
		subs: map[string]map[chan []core.Expense]struct{}{},
	}
}

// subscribe registers a new subscriber channel for the user and returns it
// along with an unsubscribe function. The unsubscribe function is safe to
// call more than once.
func (h *snapshotHub) subscribe(userID string) (chan []core.Expense, func()) {
	ch := make(chan []core.Expense, 1)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[chan []core.Expense]struct{}{}
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// broadcast replaces any undelivered snapshot with the new one for every
// subscriber of the user.
func (h *snapshotHub) broadcast(userID string, snapshot []core.Expense) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[userID] {
		select {
		case <-ch: // drop the stale snapshot
		default:
		}
		ch <- snapshot
	}
}

// subscriberCount reports how many live subscriptions the user has.
func (h *snapshotHub) subscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
