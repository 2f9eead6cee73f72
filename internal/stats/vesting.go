package stats

import (
	"presale-dashboard/internal/domain"
)

// maxUnlockPoints bounds the projection when the periodic percentage
// is small; 400 steps covers any sane schedule.
const maxUnlockPoints = 400

// unlockSchedule projects the vesting curve: the initial percentage
// unlocks at claimStart, then periodicPercent more each claimPeriod
// seconds until the cumulative percentage reaches 100.
//
// Percent inputs are whole-number percentages (basis 100). A zero
// claimStart or a schedule that can never advance yields nil.
func unlockSchedule(claimStart int64, claimPeriod uint64, initialPercent, periodicPercent float64) []domain.UnlockPoint {
	if claimStart == 0 {
		return nil
	}
	if initialPercent <= 0 && periodicPercent <= 0 {
		return nil
	}

	points := []domain.UnlockPoint{{
		Time:    claimStart,
		Percent: clampPercent(initialPercent),
	}}
	if points[0].Percent >= 100 || periodicPercent <= 0 || claimPeriod == 0 {
		return points
	}

	cumulative := points[0].Percent
	t := claimStart
	for len(points) < maxUnlockPoints {
		t += int64(claimPeriod)
		cumulative = clampPercent(cumulative + periodicPercent)
		points = append(points, domain.UnlockPoint{Time: t, Percent: cumulative})
		if cumulative >= 100 {
			break
		}
	}
	return points
}

func clampPercent(p float64) float64 {
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
