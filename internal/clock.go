// Monotonic millisecond clock abstraction.

package mtsched_internal

import "time"

// Clock is the engine's sole source of time. It returns a monotonic
// millisecond tick as an unsigned 32 bit value, which wraps around roughly
// every 49.7 days. All deadline arithmetic in the scheduler is expressed in
// terms of this tick via signed subtraction (see readyAt), so wraparound is
// tolerated as long as no single delay exceeds ~2^31 ms.
type Clock interface {
	Now() uint32
}

// SystemClock derives its tick from the real wall clock, following the
// teacher's pattern of a single process-wide epoch captured once at startup
// (see GeneratorBase.TimeNowFunc for the injectable-clock idiom this mirrors).
type SystemClock struct {
	epoch time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{epoch: time.Now()}
}

func (c *SystemClock) Now() uint32 {
	return uint32(time.Since(c.epoch).Milliseconds())
}

// ManualClock is a test double: the tick is whatever was last set, and it is
// never advanced implicitly. It lets tests exercise wraparound directly by
// setting the tick close to the uint32 max.
type ManualClock struct {
	tick uint32
}

func NewManualClock(tick uint32) *ManualClock {
	return &ManualClock{tick: tick}
}

func (c *ManualClock) Now() uint32 {
	return c.tick
}

func (c *ManualClock) Set(tick uint32) {
	c.tick = tick
}

func (c *ManualClock) Advance(deltaMs uint32) {
	c.tick += deltaMs
}

// readyAt reports whether `now` has reached or passed `deadline`, tolerating
// wraparound by comparing via a signed difference (spec §4.1).
func readyAt(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}
