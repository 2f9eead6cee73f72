package dedup

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
)

func purchase(txByte byte, index uint, buyer byte) domain.Event {
	return domain.Event{
		Kind:          domain.KindPurchase,
		TxHash:        common.Hash{txByte},
		LogIndex:      index,
		Buyer:         common.Address{buyer},
		TokenAmount:   big.NewInt(100),
		PaymentAmount: big.NewInt(10),
	}
}

func TestDeduplicate_IdenticalEventOnce(t *testing.T) {
	ev := purchase(0x01, 0, 0xA1)

	got := Deduplicate([]domain.Event{ev, ev})
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestDeduplicate_AcrossStreams(t *testing.T) {
	a := purchase(0x01, 0, 0xA1)
	b := purchase(0x01, 1, 0xA1) // same tx, different log index
	c := purchase(0x02, 0, 0xA2)

	// b and a overlap across the two streams.
	got := Deduplicate([]domain.Event{a, b}, []domain.Event{b, c, a})
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
}

func TestDeduplicate_FirstOccurrenceWins(t *testing.T) {
	first := purchase(0x01, 0, 0xA1)
	first.TokenAmount = big.NewInt(111)
	second := purchase(0x01, 0, 0xA1)
	second.TokenAmount = big.NewInt(222)

	got := Deduplicate([]domain.Event{first}, []domain.Event{second})
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].TokenAmount.Int64() != 111 {
		t.Errorf("first occurrence must win, got amount %s", got[0].TokenAmount)
	}
}

func TestDeduplicate_OrderIndependent(t *testing.T) {
	ev := purchase(0x01, 0, 0xA1)
	other := purchase(0x02, 0, 0xA2)

	forward := Deduplicate([]domain.Event{ev, other, ev})
	reverse := Deduplicate([]domain.Event{other, ev, ev})

	if len(forward) != 2 || len(reverse) != 2 {
		t.Fatalf("expected 2 events both ways, got %d and %d", len(forward), len(reverse))
	}
}

func TestDeduplicate_EmptyInput(t *testing.T) {
	if got := Deduplicate(); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
	if got := Deduplicate(nil, []domain.Event{}); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestByKind_PreservesEncounterOrder(t *testing.T) {
	p1 := purchase(0x01, 0, 0xA1)
	p2 := purchase(0x02, 0, 0xA2)
	claim := domain.Event{
		Kind:     domain.KindClaim,
		TxHash:   common.Hash{0x03},
		Claimant: common.Address{0xA1},
		Amount:   big.NewInt(5),
	}

	byKind := ByKind([]domain.Event{p1, claim, p2})

	if len(byKind[domain.KindPurchase]) != 2 {
		t.Fatalf("expected 2 purchases, got %d", len(byKind[domain.KindPurchase]))
	}
	if byKind[domain.KindPurchase][0].TxHash != p1.TxHash {
		t.Error("purchase order not preserved")
	}
	if len(byKind[domain.KindClaim]) != 1 {
		t.Errorf("expected 1 claim, got %d", len(byKind[domain.KindClaim]))
	}
}
