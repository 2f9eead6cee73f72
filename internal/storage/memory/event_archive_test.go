package memory

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"presale-dashboard/internal/domain"
)

func archivedPurchase(block uint64, logIndex uint, amount int64) domain.Event {
	return domain.Event{
		Kind:        domain.KindPurchase,
		TxHash:      common.HexToHash("0xaa"),
		LogIndex:    logIndex,
		BlockNumber: block,
		Buyer:       testAddr(1),
		TokenAmount: big.NewInt(amount),
	}
}

func TestEventArchive_InsertAndRange(t *testing.T) {
	archive := NewEventArchive()
	ctx := context.Background()

	events := []domain.Event{
		archivedPurchase(10, 0, 1),
		archivedPurchase(20, 1, 2),
		archivedPurchase(30, 0, 3),
	}
	if err := archive.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := archive.GetByBlockRange(ctx, 10, 20)
	if err != nil {
		t.Fatalf("GetByBlockRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].BlockNumber != 10 || got[1].BlockNumber != 20 {
		t.Errorf("events not ordered by block: %+v", got)
	}
}

func TestEventArchive_ReinsertIsHarmless(t *testing.T) {
	archive := NewEventArchive()
	ctx := context.Background()

	ev := archivedPurchase(10, 0, 1)
	if err := archive.InsertBulk(ctx, []domain.Event{ev, ev}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := archive.InsertBulk(ctx, []domain.Event{ev}); err != nil {
		t.Fatalf("second InsertBulk failed: %v", err)
	}

	got, err := archive.GetByBlockRange(ctx, 0, 100)
	if err != nil {
		t.Fatalf("GetByBlockRange failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events, want 1 after duplicate inserts", len(got))
	}
}

func TestEventArchive_CountByKind(t *testing.T) {
	archive := NewEventArchive()
	ctx := context.Background()

	events := []domain.Event{
		archivedPurchase(10, 0, 1),
		archivedPurchase(11, 0, 2),
		{Kind: domain.KindClaim, TxHash: common.HexToHash("0xbb"), BlockNumber: 12, Amount: big.NewInt(1)},
	}
	if err := archive.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	counts, err := archive.CountByKind(ctx)
	if err != nil {
		t.Fatalf("CountByKind failed: %v", err)
	}
	if counts[domain.KindPurchase] != 2 || counts[domain.KindClaim] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestEventArchive_ReturnsDeepCopies(t *testing.T) {
	archive := NewEventArchive()
	ctx := context.Background()

	if err := archive.InsertBulk(ctx, []domain.Event{archivedPurchase(10, 0, 5)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := archive.GetByBlockRange(ctx, 0, 100)
	if err != nil {
		t.Fatalf("GetByBlockRange failed: %v", err)
	}
	got[0].TokenAmount.SetInt64(999)

	again, _ := archive.GetByBlockRange(ctx, 0, 100)
	if again[0].TokenAmount.Int64() != 5 {
		t.Errorf("stored amount mutated through returned event")
	}
}
