package participants

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/presale"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

type fakeReader struct {
	mu        sync.Mutex
	summaries map[common.Address]*presale.ParticipantSummary
	entries   map[common.Address][]*presale.ParticipationEntry
	rewards   map[common.Address]*big.Int
	whitelist map[common.Address]bool

	failSummary map[common.Address]bool
	inflight    int
	maxInflight int
}

func (f *fakeReader) track() func() {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}
}

func (f *fakeReader) ParticipantSummary(_ context.Context, user common.Address) (*presale.ParticipantSummary, error) {
	defer f.track()()
	if f.failSummary[user] {
		return nil, errors.New("rpc timeout")
	}
	s, ok := f.summaries[user]
	if !ok {
		return nil, errors.New("unknown participant")
	}
	return s, nil
}

func (f *fakeReader) ParticipationEntry(_ context.Context, user common.Address, index int) (*presale.ParticipationEntry, error) {
	entries := f.entries[user]
	if index >= len(entries) {
		return nil, errors.New("index out of range")
	}
	return entries[index], nil
}

func (f *fakeReader) EstimatedRewards(_ context.Context, user common.Address) (*big.Int, error) {
	if r, ok := f.rewards[user]; ok {
		return r, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeReader) IsWhitelisted(_ context.Context, user common.Address) (bool, error) {
	return f.whitelist[user], nil
}

func purchaseEvent(buyer common.Address, logIndex uint) domain.Event {
	return domain.Event{
		Kind:        domain.KindPurchase,
		TxHash:      common.HexToHash("0x01"),
		LogIndex:    logIndex,
		Buyer:       buyer,
		TokenAmount: tokens(1),
	}
}

func TestAddressesDistinctFirstSeen(t *testing.T) {
	events := []domain.Event{
		purchaseEvent(addr(2), 0),
		purchaseEvent(addr(1), 1),
		purchaseEvent(addr(2), 2),
		{Kind: domain.KindClaim, Claimant: addr(3), Amount: tokens(1)},
	}
	got := Addresses(events)
	if len(got) != 2 || got[0] != addr(2) || got[1] != addr(1) {
		t.Fatalf("addresses = %v", got)
	}
}

func TestBuildRecord(t *testing.T) {
	user := addr(1)
	threeMonths := domain.DefaultTiers[0].LockupSeconds

	reader := &fakeReader{
		summaries: map[common.Address]*presale.ParticipantSummary{
			user: {
				TotalPurchased: tokens(100),
				TotalPaid:      tokens(50),
				TotalClaimed:   tokens(10),
				EntryCount:     2,
			},
		},
		entries: map[common.Address][]*presale.ParticipationEntry{
			user: {
				{Amount: tokens(60), Claimed: tokens(5), StakingOption: threeMonths, PurchasedAt: 1_000},
				{Amount: tokens(40), Claimed: tokens(5), StakingOption: threeMonths, PurchasedAt: 2_000},
			},
		},
		rewards:   map[common.Address]*big.Int{user: tokens(3)},
		whitelist: map[common.Address]bool{user: true},
	}

	b := New(Options{Reader: reader})
	got, err := b.Build(context.Background(), []domain.Event{purchaseEvent(user, 0)}, 6, 6)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	rec := got[0]
	if rec.TotalPurchased != 100 || rec.TotalPaid != 50 {
		t.Fatalf("totals = %v / %v", rec.TotalPurchased, rec.TotalPaid)
	}
	if rec.TotalClaimed != 10 {
		t.Fatalf("claimed = %v, want accumulator max of 10", rec.TotalClaimed)
	}
	if rec.EstimatedRewards != 3 {
		t.Fatalf("rewards = %v", rec.EstimatedRewards)
	}
	if rec.TierSummary != "3-Month" {
		t.Fatalf("tier summary = %q", rec.TierSummary)
	}
	if !rec.Whitelisted || rec.Participations != 2 || rec.LastPurchaseTime != 2_000 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestBuildClaimedPrefersLargestSource(t *testing.T) {
	user := addr(1)
	reader := &fakeReader{
		summaries: map[common.Address]*presale.ParticipantSummary{
			user: {
				TotalPurchased: tokens(10),
				TotalPaid:      tokens(5),
				TotalClaimed:   tokens(1), // accumulator lags
				EntryCount:     1,
			},
		},
		entries: map[common.Address][]*presale.ParticipationEntry{
			user: {{Amount: tokens(10), Claimed: tokens(2), PurchasedAt: 1}},
		},
	}

	// Claim events report more than either contract view.
	events := []domain.Event{
		purchaseEvent(user, 0),
		{Kind: domain.KindClaim, TxHash: common.HexToHash("0x02"), Claimant: user, Amount: tokens(4)},
	}

	b := New(Options{Reader: reader})
	got, err := b.Build(context.Background(), events, 6, 6)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got[0].TotalClaimed != 4 {
		t.Fatalf("claimed = %v, want event sum 4", got[0].TotalClaimed)
	}
}

func TestBuildTierSummaries(t *testing.T) {
	multi := addr(1)
	none := addr(2)
	reader := &fakeReader{
		summaries: map[common.Address]*presale.ParticipantSummary{
			multi: {TotalPurchased: tokens(20), TotalPaid: tokens(10), TotalClaimed: big.NewInt(0), EntryCount: 2},
			none:  {TotalPurchased: tokens(5), TotalPaid: tokens(2), TotalClaimed: big.NewInt(0), EntryCount: 1},
		},
		entries: map[common.Address][]*presale.ParticipationEntry{
			multi: {
				{Amount: tokens(10), StakingOption: domain.DefaultTiers[0].LockupSeconds, PurchasedAt: 1},
				{Amount: tokens(10), StakingOption: domain.DefaultTiers[1].LockupSeconds, PurchasedAt: 2},
			},
			none: {{Amount: tokens(5), StakingOption: 777, PurchasedAt: 1}},
		},
	}

	b := New(Options{Reader: reader})
	got, err := b.Build(context.Background(), []domain.Event{purchaseEvent(multi, 0), purchaseEvent(none, 1)}, 6, 6)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	byAddr := make(map[common.Address]domain.ParticipantRecord)
	for _, rec := range got {
		byAddr[rec.Address] = rec
	}
	if byAddr[multi].TierSummary != domain.TierSummaryMultiple {
		t.Fatalf("multi tier summary = %q", byAddr[multi].TierSummary)
	}
	if byAddr[none].TierSummary != domain.TierSummaryNone {
		t.Fatalf("none tier summary = %q", byAddr[none].TierSummary)
	}
}

func TestBuildSkipsFailedAddress(t *testing.T) {
	ok := addr(1)
	bad := addr(2)
	reader := &fakeReader{
		summaries: map[common.Address]*presale.ParticipantSummary{
			ok: {TotalPurchased: tokens(10), TotalPaid: tokens(5), TotalClaimed: big.NewInt(0)},
		},
		failSummary: map[common.Address]bool{bad: true},
	}

	b := New(Options{Reader: reader})
	got, err := b.Build(context.Background(), []domain.Event{purchaseEvent(ok, 0), purchaseEvent(bad, 1)}, 6, 6)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 1 || got[0].Address != ok {
		t.Fatalf("records = %+v", got)
	}
}

func TestBuildSortedByPurchasedDescending(t *testing.T) {
	reader := &fakeReader{summaries: map[common.Address]*presale.ParticipantSummary{}}
	var events []domain.Event
	for i := byte(1); i <= 5; i++ {
		reader.summaries[addr(i)] = &presale.ParticipantSummary{
			TotalPurchased: tokens(int64(i) * 10),
			TotalPaid:      tokens(int64(i)),
			TotalClaimed:   big.NewInt(0),
		}
		events = append(events, purchaseEvent(addr(i), uint(i)))
	}

	b := New(Options{Reader: reader})
	got, err := b.Build(context.Background(), events, 6, 6)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i].TotalPurchased > got[i-1].TotalPurchased {
			t.Fatalf("records not sorted descending: %+v", got)
		}
	}
}

func TestBuildBoundsConcurrency(t *testing.T) {
	reader := &fakeReader{summaries: map[common.Address]*presale.ParticipantSummary{}}
	var events []domain.Event
	for i := byte(1); i <= 25; i++ {
		reader.summaries[addr(i)] = &presale.ParticipantSummary{
			TotalPurchased: tokens(1), TotalPaid: tokens(1), TotalClaimed: big.NewInt(0),
		}
		events = append(events, purchaseEvent(addr(i), uint(i)))
	}

	b := New(Options{Reader: reader, BatchSize: 10})
	got, err := b.Build(context.Background(), events, 6, 6)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("got %d records, want 25", len(got))
	}
	if reader.maxInflight > 10 {
		t.Fatalf("max inflight summary reads = %d, batch size is 10", reader.maxInflight)
	}
}

func TestBuildCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New(Options{Reader: &fakeReader{}})
	if _, err := b.Build(ctx, []domain.Event{purchaseEvent(addr(1), 0)}, 6, 6); err == nil {
		t.Fatal("cancelled context must fail the build")
	}
}

func TestBuildNoPurchases(t *testing.T) {
	b := New(Options{Reader: &fakeReader{}})
	got, err := b.Build(context.Background(), nil, 6, 6)
	if err != nil || got != nil {
		t.Fatalf("empty input: got %v, %v", got, err)
	}
}
