// The public face of the scheduler for the users of this package.

package mtsched

import (
	"github.com/sirupsen/logrus"

	mtsched_internal "github.com/bgp59/mtsched/internal"
)

// PID identifies a task uniquely within the live task set. It is never 0.
type PID = mtsched_internal.PID

// Wait describes a task's predicate deadline: either indefinite, or expiring
// a fixed number of milliseconds after activation.
type Wait = mtsched_internal.Wait

// IndefiniteWait never expires on its own; only predicate success or an
// explicit removal ends it.
func IndefiniteWait() Wait { return mtsched_internal.IndefiniteWait() }

// FiniteWait expires waitMs after activation if the predicate has not yet
// gone true.
func FiniteWait(waitMs uint32) Wait { return mtsched_internal.FiniteWait(waitMs) }

// Clock is the scheduler's sole source of time.
type Clock = mtsched_internal.Clock

// NewSystemClock returns a Clock backed by the real wall clock, captured
// once at construction as a monotonic epoch.
func NewSystemClock() *mtsched_internal.SystemClock {
	return mtsched_internal.NewSystemClock()
}

// NewManualClock returns a Clock fully controlled by the caller, for tests
// that need to drive the scheduler tick by tick.
func NewManualClock(tick uint32) *mtsched_internal.ManualClock {
	return mtsched_internal.NewManualClock(tick)
}

type Scheduler = mtsched_internal.Scheduler
type SchedulerConfig = mtsched_internal.SchedulerConfig
type MtschedConfig = mtsched_internal.MtschedConfig

func DefaultSchedulerConfig() *SchedulerConfig {
	return mtsched_internal.DefaultSchedulerConfig()
}

func DefaultMtschedConfig() *MtschedConfig {
	return mtsched_internal.DefaultMtschedConfig()
}

// NewScheduler returns a ready-to-use Scheduler. cfg selects the initial
// execution discipline ("parallel" or "sequential"); clock may be nil, in
// which case a real-time SystemClock is used.
func NewScheduler(cfg *SchedulerConfig, clock Clock) *Scheduler {
	return mtsched_internal.NewScheduler(cfg, clock)
}

// LoadConfig loads a YAML configuration file (or buf, for testing) into a
// *MtschedConfig, additionally decoding the top-level section named
// toSectionName into toCfg, if both are non-nil/non-empty. This lets an
// embedding application keep its own configuration in the same file without
// this package needing to know its shape.
func LoadConfig(cfgFile string, toSectionName string, toCfg any, buf []byte) (*MtschedConfig, error) {
	return mtsched_internal.LoadConfig(cfgFile, toSectionName, toCfg, buf)
}

// SetLogger applies logCfg to the package-wide root logger. Call once at
// startup, after LoadConfig.
func SetLogger(logCfg *mtsched_internal.LoggerConfig) error {
	return mtsched_internal.SetLogger(logCfg)
}

// GetRootLogger exposes the root logger for tests that need to capture its
// output (see mtsched/testutils/log_collector.go). It is returned as any, to
// obscure its concrete type; the value satisfies CollectableLog.
func GetRootLogger() any { return mtsched_internal.GetRootLogger() }

// NewCompLogger creates a new component logger with a comp=compName field.
func NewCompLogger(comp string) *logrus.Entry {
	return mtsched_internal.NewCompLogger(comp)
}

// AddCallerSrcPathPrefixToLogger registers the caller's module root dir path
// (inferred by walking upNDirs up from the caller's own source file) so that
// logged file:line references are reported relative to it. Typically called
// once from an embedding application's main.init().
func AddCallerSrcPathPrefixToLogger(upNDirs int) {
	mtsched_internal.AddCallerSrcPathPrefixToLogger(upNDirs, 1)
}
