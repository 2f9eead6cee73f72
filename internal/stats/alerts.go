package stats

import (
	"fmt"
)

// Alert thresholds. Advisory only; nothing here blocks an action.
const (
	lowBalanceRatio = 0.10 // token balance below 10% of total sold
	nearCapRatio    = 0.90 // sold above 90% of hard cap
)

// alertInput is the subset of the snapshot the rule set inspects.
type alertInput struct {
	TokenBalance float64
	TotalSold    float64
	HardCap      float64
	Paused       bool
	StartTime    int64
	EndTime      int64
	StateKnown   bool
	StateOrdinal uint8
}

// buildAlerts derives the operational warnings shown at the top of the
// admin overview.
func buildAlerts(in alertInput) []string {
	var alerts []string

	if in.TotalSold > 0 && in.TokenBalance < in.TotalSold*lowBalanceRatio {
		alerts = append(alerts, fmt.Sprintf(
			"Contract token balance (%.2f) is below 10%% of total sold (%.2f); claims may fail",
			in.TokenBalance, in.TotalSold))
	}

	if in.HardCap > 0 && in.TotalSold/in.HardCap > nearCapRatio {
		alerts = append(alerts, fmt.Sprintf(
			"Sold amount is above 90%% of the hard cap (%.2f / %.2f)",
			in.TotalSold, in.HardCap))
	}

	if in.Paused {
		alerts = append(alerts, "Presale contract is paused")
	}

	if in.StartTime == 0 || in.EndTime == 0 {
		alerts = append(alerts, "Presale start or end time is unset")
	}

	if !in.StateKnown {
		alerts = append(alerts, fmt.Sprintf("Contract reports unrecognized presale state ordinal %d", in.StateOrdinal))
	}

	return alerts
}
