// Daily wall-clock trigger, bridging real time-of-day scheduling into the
// engine's monotonic-tick world without the engine itself ever touching
// wall-clock time.

package mtsched

import "time"

// ScheduledAction is true, as a predicate, exactly once per calendar day at
// or after a target offset into the day, re-arming at local midnight. It is
// meant to be used as the condition callback of an addConditionalTask:
//
//	sa := NewScheduledAction(14*time.Hour+30*time.Minute, time.Now)
//	scheduler.AddConditionalTask(runDailyReport, sa.Due, 0, nil)
type ScheduledAction struct {
	// Offset into the day, e.g. 14h30m for 14:30:00.
	offset time.Duration
	// Wall-clock source; overridable for tests.
	now func() time.Time

	firedDay int // day-of-year of the last fire, -1 before the first
}

// NewScheduledAction builds a ScheduledAction for the given offset into the
// day. now may be nil, in which case time.Now is used.
func NewScheduledAction(offset time.Duration, now func() time.Time) *ScheduledAction {
	if now == nil {
		now = time.Now
	}
	return &ScheduledAction{
		offset:   offset,
		now:      now,
		firedDay: -1,
	}
}

// Due reports true exactly once per calendar day, the first time it is
// called at or after the target offset; it stays false for the rest of that
// day and re-arms automatically at the next local midnight.
func (sa *ScheduledAction) Due() bool {
	t := sa.now()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	sinceMidnight := t.Sub(midnight)
	if sinceMidnight < sa.offset {
		return false
	}
	if sa.firedDay == t.YearDay() {
		return false
	}
	sa.firedDay = t.YearDay()
	return true
}
