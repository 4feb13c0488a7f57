package mtsched

import "testing"

func TestTriggeredActionBasicHysteresis(t *testing.T) {
	var aboveThreshold, belowThreshold bool
	notifyCount, resetCount := 0, 0

	ta := NewTriggeredAction(
		func() bool { return aboveThreshold },
		func() bool { return belowThreshold },
		func() { notifyCount++ },
		func() { resetCount++ },
	)

	if ta.Check() {
		t.Fatal("want not notified before any trigger")
	}
	if notifyCount != 0 || resetCount != 0 {
		t.Fatal("want no callbacks before any trigger")
	}

	aboveThreshold = true
	if !ta.Check() {
		t.Fatal("want notified once trigger fires")
	}
	if notifyCount != 1 {
		t.Fatalf("want notifyCount=1, got %d", notifyCount)
	}

	// Trigger staying true must not re-notify.
	if !ta.Check() {
		t.Fatal("want to stay notified")
	}
	if notifyCount != 1 {
		t.Fatalf("want notifyCount still 1, got %d", notifyCount)
	}

	aboveThreshold = false
	belowThreshold = true
	if ta.Check() {
		t.Fatal("want notified cleared once reset fires")
	}
	if resetCount != 1 {
		t.Fatalf("want resetCount=1, got %d", resetCount)
	}

	// Reset staying true after the latch cleared must not re-fire notifyReset.
	aboveThreshold = false
	if ta.Check() {
		t.Fatal("want to stay un-notified")
	}
	if resetCount != 1 {
		t.Fatalf("want resetCount still 1, got %d", resetCount)
	}
}

func TestTriggeredActionRearms(t *testing.T) {
	trigger, reset := false, false
	notifyCount, resetCount := 0, 0

	ta := NewTriggeredAction(
		func() bool { return trigger },
		func() bool { return reset },
		func() { notifyCount++ },
		func() { resetCount++ },
	)

	trigger = true
	ta.Check()
	trigger, reset = false, true
	ta.Check()
	reset = false

	trigger = true
	ta.Check()
	if notifyCount != 2 {
		t.Fatalf("want notifyCount=2 after re-arming, got %d", notifyCount)
	}
	if resetCount != 1 {
		t.Fatalf("want resetCount=1, got %d", resetCount)
	}
}

func TestTriggeredActionNilNotifyReset(t *testing.T) {
	trigger, reset := true, false
	ta := NewTriggeredAction(
		func() bool { return trigger },
		func() bool { return reset },
		func() {},
		nil,
	)
	ta.Check()
	reset = true
	if ta.Check() {
		t.Fatal("want notified cleared even with nil NotifyReset")
	}
}
