// Deferred-deletion ledger.

package mtsched_internal

import "sync"

// removalLedger collects PIDs to be dropped from the store at the next safe
// point, rather than structurally mutating the store's order slice while the
// engine might be mid-iteration over it (spec §3 invariant: "the engine must
// not structurally mutate the store while dispatching an action").
type removalLedger struct {
	mu  sync.Mutex
	set []PID
}

func newRemovalLedger() *removalLedger {
	return &removalLedger{}
}

// markForRemoval appends pid; duplicates are tolerated, drain() is
// idempotent per PID.
func (l *removalLedger) markForRemoval(pid PID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set = append(l.set, pid)
}

// drain deletes every listed PID from store (missing ones are silently
// skipped by the store itself) and clears the ledger, returning the list of
// PIDs that were pending so the caller can do further bookkeeping (e.g.
// stats) if desired.
func (l *removalLedger) drain(store *taskStore) []PID {
	l.mu.Lock()
	pending := l.set
	l.set = nil
	l.mu.Unlock()

	if len(pending) > 0 {
		store.eraseMany(pending)
	}
	return pending
}

// snapshot returns a copy of the currently pending PIDs without clearing the
// ledger. Used by the parallel stop-from-inside-loop path (spec §4.6.1 Phase
// C), which needs to both read and then separately clear the ledger.
func (l *removalLedger) snapshot() []PID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PID, len(l.set))
	copy(out, l.set)
	return out
}

func (l *removalLedger) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set = nil
}

func (l *removalLedger) isEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.set) == 0
}
