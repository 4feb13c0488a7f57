// Hysteresis edge notifier, meant to be driven from a task's condition or
// action callback.

package mtsched

// TriggeredAction is a pair of predicates (Trigger, Reset) and a pair of
// effects (Notify, NotifyReset) forming a hysteresis state machine with two
// latches: notified and resetNotified.
//
// Check evaluates the predicates once:
//   - if not notified and Trigger() is true, Notify() runs, notified is set
//     and resetNotified is cleared (re-arming the reset side).
//   - if notified and Reset() is true, NotifyReset() runs exactly once (guarded
//     by resetNotified) and then notified is cleared, re-arming the whole
//     thing for the next Trigger.
type TriggeredAction struct {
	Trigger func() bool
	Reset   func() bool
	Notify  func()

	// NotifyReset may be nil, in which case only the latch reset happens.
	NotifyReset func()

	notified      bool
	resetNotified bool
}

// NewTriggeredAction constructs a TriggeredAction ready for use as the
// condition callback of an addConditionalTask, or called directly from
// another task's action.
func NewTriggeredAction(trigger, reset func() bool, notify, notifyReset func()) *TriggeredAction {
	return &TriggeredAction{
		Trigger:     trigger,
		Reset:       reset,
		Notify:      notify,
		NotifyReset: notifyReset,
	}
}

// Check runs one evaluation of the state machine and reports whether it is
// currently in the notified (triggered, not yet reset) state.
func (ta *TriggeredAction) Check() bool {
	if !ta.notified {
		if ta.Trigger != nil && ta.Trigger() {
			if ta.Notify != nil {
				ta.Notify()
			}
			ta.notified = true
			ta.resetNotified = false
		}
		return ta.notified
	}

	if ta.Reset != nil && ta.Reset() {
		if !ta.resetNotified {
			if ta.NotifyReset != nil {
				ta.NotifyReset()
			}
			ta.resetNotified = true
		}
		ta.notified = false
	}
	return ta.notified
}

// Notified reports the current latch state without evaluating predicates.
func (ta *TriggeredAction) Notified() bool {
	return ta.notified
}
