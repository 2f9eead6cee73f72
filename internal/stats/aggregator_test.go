package stats

import (
	"math/big"
	"testing"
	"time"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/presale"
)

func testBundle() *presale.ReadBundle {
	return &presale.ReadBundle{
		SaleDecimals: 6,
		PayDecimals:  6,
		StateOrdinal: 1, // active

		SalePrice:             big.NewInt(500_000), // 0.5 per token
		HardCap:               tokens(1_000_000),
		SoftCap:               tokens(100_000),
		StartTime:             1_700_000_000,
		EndTime:               1_800_000_000,
		ClaimStart:            1_810_000_000,
		ClaimPeriod:           2_592_000,
		InitialUnlockPercent:  20,
		PeriodicUnlockPercent: 20,

		TotalTokensSold:  tokens(10_000),
		TotalRaised:      tokens(5_000),
		TokenBalance:     tokens(990_000),
		ParticipantCount: 4,
	}
}

func TestAggregatorBuild(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	agg := New(Options{Now: func() time.Time { return now }})

	jan := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC).Unix()
	ts := fixedTimestamps(map[uint64]int64{100: jan})

	stats := agg.Build(Input{
		Bundle: testBundle(),
		Events: []domain.Event{
			purchase(100, 1, 1_000, domain.DefaultTiers[0].LockupSeconds),
			purchase(100, 2, 9_000, domain.DefaultTiers[1].LockupSeconds),
		},
		Timestamps:    ts,
		FailedWindows: 2,
		LatestBlock:   5_000,
	})

	if stats.TotalSold != 10_000 || stats.TotalRaised != 5_000 {
		t.Fatalf("totals = %v / %v", stats.TotalSold, stats.TotalRaised)
	}
	if stats.RawTotalSold != tokens(10_000).String() {
		t.Fatalf("RawTotalSold = %q", stats.RawTotalSold)
	}
	if stats.State != domain.StateActive || !stats.StateKnown {
		t.Fatalf("state = %v known=%v", stats.State, stats.StateKnown)
	}
	if stats.AveragePurchase != 5_000.0/4 {
		t.Fatalf("average purchase = %v", stats.AveragePurchase)
	}
	if len(stats.Monthly) != 1 || stats.Monthly[0].Label != "Jan 2025" || stats.Monthly[0].Participants != 2 {
		t.Fatalf("monthly = %+v", stats.Monthly)
	}
	if len(stats.Unlocks) != 5 || stats.Unlocks[4].Percent != 100 {
		t.Fatalf("unlocks = %+v", stats.Unlocks)
	}
	if stats.FailedWindows != 2 || stats.LatestBlock != 5_000 {
		t.Fatalf("provenance = %d / %d", stats.FailedWindows, stats.LatestBlock)
	}
	if stats.FetchedAt != now.UnixMilli() {
		t.Fatalf("fetched at = %d", stats.FetchedAt)
	}
	if len(stats.Alerts) != 0 {
		t.Fatalf("healthy snapshot produced alerts: %v", stats.Alerts)
	}
}

func TestAggregatorBuildZeroParticipants(t *testing.T) {
	agg := New(Options{})
	b := testBundle()
	b.ParticipantCount = 0

	stats := agg.Build(Input{Bundle: b})
	if stats.AveragePurchase != 0 {
		t.Fatalf("average with no participants = %v, want 0", stats.AveragePurchase)
	}
}

func TestAggregatorBuildFallsBackToRecordCount(t *testing.T) {
	agg := New(Options{})
	b := testBundle()
	b.ParticipantCount = 0

	stats := agg.Build(Input{
		Bundle:       b,
		Participants: []domain.ParticipantRecord{{}, {}},
	})
	if stats.ParticipantCount != 2 {
		t.Fatalf("participant count = %d, want fallback to records", stats.ParticipantCount)
	}
	if stats.AveragePurchase != 2_500 {
		t.Fatalf("average purchase = %v", stats.AveragePurchase)
	}
}

func TestAggregatorBuildUnknownState(t *testing.T) {
	agg := New(Options{})
	b := testBundle()
	b.StateOrdinal = 9

	stats := agg.Build(Input{Bundle: b})
	if stats.StateKnown {
		t.Fatal("ordinal 9 must not be a known state")
	}
	if len(stats.Alerts) == 0 {
		t.Fatal("unknown state must raise an alert")
	}
}

func TestAggregatorBuildNilBundle(t *testing.T) {
	agg := New(Options{})
	stats := agg.Build(Input{})
	if stats.RawTotalSold != "0" || stats.RawTotalRaised != "0" {
		t.Fatalf("raw totals = %q / %q", stats.RawTotalSold, stats.RawTotalRaised)
	}
}
