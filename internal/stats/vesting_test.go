package stats

import "testing"

func TestUnlockScheduleCapsAtFull(t *testing.T) {
	// 20% at claim start, then 30% per period: 20, 50, 80, 100.
	got := unlockSchedule(1_000, 100, 20, 30)
	if len(got) != 4 {
		t.Fatalf("got %d points, want 4: %+v", len(got), got)
	}
	wantPercents := []float64{20, 50, 80, 100}
	wantTimes := []int64{1_000, 1_100, 1_200, 1_300}
	for i := range got {
		if got[i].Percent != wantPercents[i] || got[i].Time != wantTimes[i] {
			t.Fatalf("point %d = %+v, want %v%% at %d", i, got[i], wantPercents[i], wantTimes[i])
		}
	}
}

func TestUnlockScheduleNeverExceedsFull(t *testing.T) {
	// 90% + 25% would overshoot; the second point clamps to 100.
	got := unlockSchedule(1_000, 100, 90, 25)
	if len(got) != 2 || got[1].Percent != 100 {
		t.Fatalf("overshooting schedule = %+v", got)
	}
}

func TestUnlockScheduleFullAtStart(t *testing.T) {
	got := unlockSchedule(1_000, 100, 100, 10)
	if len(got) != 1 || got[0].Percent != 100 {
		t.Fatalf("fully unlocked at start = %+v", got)
	}
}

func TestUnlockScheduleStalledPeriodic(t *testing.T) {
	// No periodic unlock: the projection stops at the initial point.
	got := unlockSchedule(1_000, 100, 40, 0)
	if len(got) != 1 || got[0].Percent != 40 {
		t.Fatalf("stalled schedule = %+v", got)
	}
}

func TestUnlockScheduleUnsetClaimStart(t *testing.T) {
	if got := unlockSchedule(0, 100, 20, 10); got != nil {
		t.Fatalf("unset claim start must yield no projection, got %+v", got)
	}
}

func TestUnlockScheduleBoundedSteps(t *testing.T) {
	// A tiny periodic percentage must not loop forever.
	got := unlockSchedule(1_000, 60, 0.5, 0.01)
	if len(got) > maxUnlockPoints {
		t.Fatalf("projection emitted %d points, cap is %d", len(got), maxUnlockPoints)
	}
}
