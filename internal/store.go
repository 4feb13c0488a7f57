// Bounded, insertion-ordered task store.

package mtsched_internal

import (
	"fmt"
	"sync"

	"github.com/huandu/go-clone"
)

const (
	// MaxTasks is the hard capacity of a task store.
	MaxTasks = 124
)

// ErrCapacityExceeded is returned by push once the store already holds
// MaxTasks entries.
var ErrCapacityExceeded = fmt.Errorf("task store: capacity (%d) exceeded", MaxTasks)

// taskStore is a bounded, insertion-ordered container of *Task, keyed by
// PID. All mutating and lookup operations take the store's own mutex —
// following the teacher's convention of a single short-lived lock per
// component (Scheduler.mu protects tasks/stats/state together there; here
// the store, the removal ledger and the scheduler's own flags each get their
// own narrowly-scoped lock, per spec §5 "critical sections must be short").
//
// Iteration order equals insertion order; it is load-bearing only in
// sequential mode, where only the head is ever dispatched.
type taskStore struct {
	mu    sync.Mutex
	order []PID
	byPID map[PID]*Task
}

func newTaskStore() *taskStore {
	return &taskStore{
		byPID: make(map[PID]*Task, MaxTasks),
	}
}

// push appends a new task to the tail. Rejected once the store is full.
func (s *taskStore) push(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) >= MaxTasks {
		return ErrCapacityExceeded
	}
	s.order = append(s.order, t.pid)
	s.byPID[t.pid] = t
	return nil
}

// contains reports whether pid currently identifies a live task. Used by the
// PID allocator to avoid collisions.
func (s *taskStore) contains(pid PID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byPID[pid]
	return ok
}

// findByPid returns a deep copy of the task, safe to read and mutate without
// racing the store, or nil if pid is absent.
func (s *taskStore) findByPid(pid PID) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byPID[pid]
	if !ok {
		return nil
	}
	return clone.Clone(t).(*Task)
}

// updateByPid replaces the stored task wholesale, provided pid is still
// present (it may have been removed concurrently by an action). Returns
// false if pid no longer exists.
func (s *taskStore) updateByPid(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPID[t.pid]; !ok {
		return false
	}
	s.byPID[t.pid] = t
	return true
}

// eraseByPid removes a task if present; missing PIDs are tolerated silently
// (removal is always advisory — see the removal ledger).
func (s *taskStore) eraseByPid(pid PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eraseByPidLocked(pid)
}

func (s *taskStore) eraseByPidLocked(pid PID) {
	if _, ok := s.byPID[pid]; !ok {
		return
	}
	delete(s.byPID, pid)
	for i, p := range s.order {
		if p == pid {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// eraseMany removes every pid in pids, sorted-and-unique semantics are the
// caller's responsibility for reporting purposes only; duplicates here are
// harmless since erase is idempotent.
func (s *taskStore) eraseMany(pids []PID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range pids {
		s.eraseByPidLocked(pid)
	}
}

// frontRef returns a deep copy of the head task (insertion order), or nil if
// the store is empty. Sequential mode only ever looks at the head.
func (s *taskStore) frontRef() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return nil
	}
	return clone.Clone(s.byPID[s.order[0]]).(*Task)
}

func (s *taskStore) isEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order) == 0
}

func (s *taskStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// snapshotPIDs returns a copy of the current PID order, for callers (the
// engine's activation/classification passes) that need to iterate without
// holding the store lock across an action invocation.
func (s *taskStore) snapshotPIDs() []PID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PID, len(s.order))
	copy(out, s.order)
	return out
}

// mutate runs fn with the store locked and a direct (non-cloned) pointer to
// the task identified by pid, if present. It returns true if fn was run and
// false when pid is absent. This is the
// primitive the activation and classification passes use to update a task's
// phase fields in place without a clone-then-update round trip.
func (s *taskStore) mutate(pid PID, fn func(*Task)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byPID[pid]
	if !ok {
		return false
	}
	fn(t)
	return true
}

// forEach invokes fn, under lock, once per task in insertion order. fn must
// not call back into the store (it already holds the lock).
func (s *taskStore) forEach(fn func(*Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range s.order {
		fn(s.byPID[pid])
	}
}
