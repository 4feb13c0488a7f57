// Scheduler engine: the parallel/sequential task dispatch state machine.

package mtsched_internal

import (
	"sort"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
)

const (
	// MaxWaitMs is the cap TimeToNextTask ever reports.
	MaxWaitMs = 60000

	SCHEDULER_CONFIG_INITIAL_MODE_DEFAULT = "parallel"
)

// Mode selects one of the two execution disciplines (spec §1).
type Mode int

const (
	ModeParallel Mode = iota
	ModeSequential
)

func (m Mode) String() string {
	if m == ModeSequential {
		return "sequential"
	}
	return "parallel"
}

func modeFromBool(seq bool) Mode {
	if seq {
		return ModeSequential
	}
	return ModeParallel
}

// alwaysTrueCondition is assigned by the add* APIs in place of a nil
// predicate (spec §4.5: "Predicate := always-true"), so the defensive
// PredicateMissing repair in the classification passes below is reserved for
// tasks that genuinely reach the engine without ever going through this
// package's own constructors.
func alwaysTrueCondition() bool { return true }

var schedulerLog = NewCompLogger("scheduler")

// SchedulerConfig is intentionally small, following the teacher's own
// SchedulerConfig (a single NumWorkers knob): the only thing worth
// overriding from YAML at startup is which discipline the scheduler begins
// in, since everything else (capacity, max wait) is a spec-fixed constant,
// not a tunable.
type SchedulerConfig struct {
	// "parallel" or "sequential".
	InitialMode string `yaml:"initial_mode"`
}

func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		InitialMode: SCHEDULER_CONFIG_INITIAL_MODE_DEFAULT,
	}
}

// Scheduler is the engine described in spec §4.6. All public methods are
// safe to call from multiple goroutines (e.g. an ISR-like producer alongside
// the driver's Loop calls), though the intended deployment is a single
// thread calling Loop repeatedly and, occasionally, the control API between
// calls.
type Scheduler struct {
	store  *taskStore
	ledger *removalLedger
	pids   *pidAllocator
	clock  Clock
	log    *logrus.Entry

	// Short critical section over the handful of scalar control flags; kept
	// separate from the store's own lock so that a long scan of the store
	// never has to also hold this one (spec §5: "critical sections must be
	// short").
	mu                       sync.Mutex
	mode                     Mode
	onHold                   bool
	willStop                 bool
	inLoop                   bool
	lastSequentialFinishTime uint32
	// Snapshot of the PIDs present at the start of the tick currently in
	// progress, used to resolve Stop()'s "every current PID" when Stop is
	// called reentrantly from inside an action mid-tick: tasks the
	// in-progress action itself has just added are not yet part of this
	// snapshot and so survive, matching spec §9's documented net effect.
	// When Stop is called from outside Loop, this field is ignored in favor
	// of a live store enumeration.
	tickStartPIDs []PID
}

func NewScheduler(cfg *SchedulerConfig, clock Clock) *Scheduler {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	s := &Scheduler{
		store:  newTaskStore(),
		ledger: newRemovalLedger(),
		pids:   newPIDAllocator(),
		clock:  clock,
		log:    schedulerLog,
		mode:   modeFromBool(cfg.InitialMode == "sequential"),
	}
	if s.mode == ModeSequential {
		s.lastSequentialFinishTime = clock.Now()
	}
	return s
}

// --- Control API (spec §4.5) ------------------------------------------------

// addTask performs the shared capacity-check / PID-allocate / push sequence
// used by every add* entry point (spec §4.2, §4.3: the allocator itself
// never fails, capacity is checked by the caller first).
func (s *Scheduler) addTask(build func(PID) *Task) PID {
	if s.store.size() >= MaxTasks {
		s.log.Warnf("cannot add task: capacity (%d) exceeded", MaxTasks)
		return 0
	}
	pid := s.pids.allocate(s.store.contains)
	t := build(pid)
	if err := s.store.push(t); err != nil {
		s.log.Warn(err)
		return 0
	}
	return pid
}

func (s *Scheduler) isSequential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode == ModeSequential
}

// AddTimedTask schedules action to run once, delayMs after activation, or, if
// repeat is true, again and again: after each firing the task is re-activated
// by the next Loop call and fires interval ms after that call.
func (s *Scheduler) AddTimedTask(action func(), delayMs uint32, repeat bool, interval uint32) PID {
	if repeat && s.isSequential() {
		s.log.Warnf("repeat=true is not supported in sequential mode; forcing repeat=false")
		repeat = false
	}
	return s.addTask(func(pid PID) *Task {
		return &Task{
			pid:                pid,
			action:             action,
			condition:          alwaysTrueCondition,
			conditionWait:      IndefiniteWait(),
			postConditionDelay: delayMs,
			repeat:             repeat,
			interval:           interval,
		}
	})
}

// AddConditionalTask schedules action to run once condition() holds,
// immediately. conditionWaitMs == 0 means wait indefinitely for condition;
// otherwise onTimeout(pid), if non-nil, fires once if condition never goes
// true within conditionWaitMs.
func (s *Scheduler) AddConditionalTask(action func(), condition func() bool, conditionWaitMs uint32, onTimeout func(PID)) PID {
	return s.addConditionalTimedTask(action, condition, 0, conditionWaitMs, onTimeout)
}

// AddConditionalTimedTask is AddConditionalTask plus a postDelayMs pause
// between condition going true and action firing.
func (s *Scheduler) AddConditionalTimedTask(action func(), condition func() bool, postDelayMs uint32, conditionWaitMs uint32, onTimeout func(PID)) PID {
	return s.addConditionalTimedTask(action, condition, postDelayMs, conditionWaitMs, onTimeout)
}

func (s *Scheduler) addConditionalTimedTask(action func(), condition func() bool, postDelayMs uint32, conditionWaitMs uint32, onTimeout func(PID)) PID {
	wait := IndefiniteWait()
	if conditionWaitMs != 0 {
		wait = FiniteWait(conditionWaitMs)
	}
	if condition == nil {
		condition = alwaysTrueCondition
	}
	return s.addTask(func(pid PID) *Task {
		return &Task{
			pid:                pid,
			action:             action,
			onTimeout:          onTimeout,
			condition:          condition,
			conditionWait:      wait,
			postConditionDelay: postDelayMs,
			repeat:             false,
		}
	})
}

// RemoveTask schedules pid for removal at the next safe point. It must not
// be called from inside an action; the call is refused (logged) if it is.
// Returns whether pid was present at call time.
func (s *Scheduler) RemoveTask(pid PID) bool {
	s.mu.Lock()
	inLoop := s.inLoop
	s.mu.Unlock()
	if inLoop {
		s.log.Errorf("removeTask(%d): illegal call from inside loop", pid)
		return false
	}
	existed := s.store.contains(pid)
	s.ledger.markForRemoval(pid)
	return existed
}

// SetRepeatingTaskInterval changes a repeating task's interval (and
// re-activates its phase). Refused from inside loop, and for non-repeating
// or unknown PIDs.
func (s *Scheduler) SetRepeatingTaskInterval(pid PID, interval uint32) bool {
	s.mu.Lock()
	inLoop := s.inLoop
	s.mu.Unlock()
	if inLoop {
		s.log.Errorf("setRepeatingTaskInterval(%d): illegal call from inside loop", pid)
		return false
	}
	applied := false
	found := s.store.mutate(pid, func(t *Task) {
		if !t.repeat {
			return
		}
		t.interval = interval
		t.postConditionDelay = interval
		t.executeAt = 0
		applied = true
	})
	return found && applied
}

// SetAndStartSequentialMode switches discipline. Switching into sequential
// mode re-bases the FIFO clock: lastSequentialFinishTime := now.
func (s *Scheduler) SetAndStartSequentialMode(seq bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = modeFromBool(seq)
	if seq {
		s.lastSequentialFinishTime = s.clock.Now()
	}
}

func (s *Scheduler) IsSequentialMode() bool {
	return s.isSequential()
}

func (s *Scheduler) Hold() {
	s.mu.Lock()
	s.onHold = true
	s.mu.Unlock()
}

func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.onHold = false
	s.mu.Unlock()
}

// Stop cancels every task present at the time it takes effect. Called from
// outside Loop, that moment is the start of the *next* Loop call, so every
// task present then is cancelled, including ones added after this call
// returns (spec §8). Called reentrantly from within an action mid-tick, it
// means every task present when the current tick began, excluding whatever
// the in-progress action has itself added (spec §5, §9).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.willStop = true
	inLoop := s.inLoop
	tickStart := s.tickStartPIDs
	s.mu.Unlock()

	if !inLoop {
		// Nothing to mark now: the next Loop call enumerates the store fresh
		// (see the willStop handling there), which is what lets a task added
		// between this call and that Loop call still get cancelled.
		return
	}
	for _, pid := range tickStart {
		s.ledger.markForRemoval(pid)
	}
}

// TaskCount returns the number of tasks currently in the store.
func (s *Scheduler) TaskCount() int {
	return s.store.size()
}

// TimeToNextTask returns 0 if some task needs activation or is already due;
// otherwise the minimum remaining wait across all tasks, capped at
// MaxWaitMs. With no tasks at all it returns MaxWaitMs.
func (s *Scheduler) TimeToNextTask() uint32 {
	if s.store.isEmpty() {
		return MaxWaitMs
	}
	now := s.clock.Now()
	due := false
	min := uint32(MaxWaitMs)
	s.store.forEach(func(t *Task) {
		if due {
			return
		}
		if t.executeAt == 0 || readyAt(now, t.executeAt) {
			due = true
			return
		}
		if remaining := t.executeAt - now; remaining < min {
			min = remaining
		}
	})
	if due {
		return 0
	}
	if min > MaxWaitMs {
		min = MaxWaitMs
	}
	s.log.Debugf("time to next task: %s", units.HumanDuration(time.Duration(min)*time.Millisecond))
	return min
}

// --- Engine (spec §4.6) -----------------------------------------------------

// Loop is the step function: it must be called repeatedly by the driver. It
// never blocks and runs to completion before returning.
func (s *Scheduler) Loop() {
	if s.store.isEmpty() {
		return
	}

	s.mu.Lock()
	onHold := s.onHold
	s.mu.Unlock()
	if onHold {
		return
	}

	s.mu.Lock()
	willStop := s.willStop
	if willStop {
		s.willStop = false
	}
	s.mu.Unlock()
	if willStop {
		// Cancel every task present right now, not just the ones present
		// when Stop() was called: this is the "then-present" moment spec §8
		// means for an outside-loop stop (anything added between the Stop()
		// call and this Loop call is cancelled too).
		for _, pid := range s.store.snapshotPIDs() {
			s.ledger.markForRemoval(pid)
		}
		s.ledger.drain(s.store)
		return
	}

	if !s.ledger.isEmpty() {
		s.ledger.drain(s.store)
	}

	s.mu.Lock()
	s.inLoop = true
	s.tickStartPIDs = s.store.snapshotPIDs()
	mode := s.mode
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inLoop = false
		s.tickStartPIDs = nil
		s.mu.Unlock()
	}()

	now := s.clock.Now()
	if mode == ModeSequential {
		s.loopSequential(now)
	} else {
		s.loopParallel(now)
	}
}

type timeoutEntry struct {
	pid PID
	cb  func(PID)
}

func (s *Scheduler) repairMissingCondition(t *Task, pid PID) {
	if t.condition != nil {
		return
	}
	s.log.Errorf("task pid=%d: condition predicate missing; treating as always-true", pid)
	t.condition = alwaysTrueCondition
}

// loopParallel is spec §4.6.1, Phases A through E.
func (s *Scheduler) loopParallel(now uint32) {
	// Phase A: activation pass.
	for _, pid := range s.store.snapshotPIDs() {
		s.store.mutate(pid, func(t *Task) {
			if t.executeAt != 0 {
				return
			}
			if t.indefinite() {
				if t.conditionTrue() {
					t.conditionMet = true
					t.setExecuteAt(now + t.postConditionDelay)
				}
				return
			}
			t.setExecuteAt(now + t.conditionWait.Milliseconds())
		})
	}

	// Phase B: classification pass.
	var execPIDs []PID
	var timeouts []timeoutEntry
	for _, pid := range s.store.snapshotPIDs() {
		var ready, timedOut bool
		var cb func(PID)
		s.store.mutate(pid, func(t *Task) {
			s.repairMissingCondition(t, pid)
			if !t.conditionMet {
				if t.conditionTrue() {
					t.conditionMet = true
					t.setExecuteAt(now + t.postConditionDelay)
				} else if !t.indefinite() && readyAt(now, t.executeAt) {
					timedOut = true
					cb = t.onTimeout
				}
			} else if readyAt(now, t.executeAt) {
				ready = true
			}
		})
		if timedOut {
			timeouts = append(timeouts, timeoutEntry{pid: pid, cb: cb})
		}
		if ready {
			execPIDs = append(execPIDs, pid)
		}
	}

	// Phase C: dispatch, lock released around each action call.
	var dispatched []PID
	for _, pid := range execPIDs {
		snap := s.store.findByPid(pid)
		if snap == nil {
			// Removed by an earlier action dispatched this same tick.
			continue
		}
		if snap.action != nil {
			snap.action()
		}
		dispatched = append(dispatched, pid)

		s.mu.Lock()
		stopping := s.willStop
		if stopping {
			s.willStop = false
		}
		s.mu.Unlock()

		if stopping {
			pending := s.ledger.snapshot()
			s.ledger.clear()
			for _, p := range pending {
				s.store.mutate(p, func(t *Task) { t.repeat = false })
			}
			dispatched = append(dispatched, pending...)
			s.log.Debug("stop() called from within a dispatched action; remaining ready tasks this tick are discarded")
			break
		}
	}

	// Phase D: reconcile.
	seen := make(map[PID]bool, len(dispatched))
	var removePIDs []PID
	for _, pid := range dispatched {
		if seen[pid] {
			continue
		}
		seen[pid] = true
		rearmed := false
		found := s.store.mutate(pid, func(t *Task) {
			if t.repeat {
				t.conditionMet = false
				t.postConditionDelay = t.interval
				t.executeAt = 0
				rearmed = true
			}
		})
		if !found || !rearmed {
			removePIDs = append(removePIDs, pid)
		}
	}
	for _, te := range timeouts {
		if !seen[te.pid] {
			removePIDs = append(removePIDs, te.pid)
			seen[te.pid] = true
		}
	}

	// Phase E: commit removals, then fire timeout callbacks.
	removePIDs = sortUniquePIDs(removePIDs)
	s.store.eraseMany(removePIDs)
	for _, te := range timeouts {
		if te.cb != nil {
			te.cb(te.pid)
		}
	}
}

// loopSequential is spec §4.6.2.
func (s *Scheduler) loopSequential(now uint32) {
	t := s.store.frontRef()
	if t == nil {
		return
	}

	changed := false

	if t.executeAt == 0 {
		s.mu.Lock()
		baseline := s.lastSequentialFinishTime
		s.mu.Unlock()

		s.repairMissingCondition(t, t.pid)
		if !t.indefinite() {
			t.setExecuteAt(baseline + t.conditionWait.Milliseconds())
			changed = true
		}
	}

	remove, execute := false, false
	if !t.conditionMet {
		if t.conditionTrue() {
			t.conditionMet = true
			t.setExecuteAt(now + t.postConditionDelay)
			changed = true
		} else if !t.indefinite() && readyAt(now, t.executeAt) {
			remove = true
		}
	} else if readyAt(now, t.executeAt) {
		execute = true
	}

	finishAt := func() {
		s.mu.Lock()
		s.lastSequentialFinishTime = now
		s.mu.Unlock()
	}

	switch {
	case remove:
		s.store.eraseByPid(t.pid)
		finishAt()

	case execute:
		if t.action != nil {
			t.action()
		}

		s.mu.Lock()
		stopping := s.willStop
		if stopping {
			s.willStop = false
		}
		s.mu.Unlock()

		if stopping {
			pending := s.ledger.snapshot()
			s.ledger.clear()
			for _, p := range pending {
				if p == t.pid {
					// Erased below, as every executed sequential task is,
					// regardless of whether stop() was called.
					continue
				}
				s.store.eraseByPid(p)
			}
		}

		// Sequential tasks never repeat (spec invariant).
		s.store.eraseByPid(t.pid)
		finishAt()

	case changed:
		s.store.updateByPid(t)
	}
}

func sortUniquePIDs(pids []PID) []PID {
	if len(pids) < 2 {
		return pids
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	out := pids[:1]
	for _, p := range pids[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
