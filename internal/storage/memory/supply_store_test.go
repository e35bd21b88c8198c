package memory

import (
	"context"
	"errors"
	"testing"

	"oi-radar/internal/domain"
	"oi-radar/internal/storage"
)

func floatPtr(v float64) *float64 { return &v }

func TestSupplyStore_InsertBulkAndGetAll(t *testing.T) {
	store := NewSupplyStore()
	ctx := context.Background()

	records := []*domain.SupplyRecord{
		{Symbol: "ethusdt", CirculatingSupply: floatPtr(120e6)},
		{Symbol: "BTCUSDT", CirculatingSupply: floatPtr(19.5e6), MarketCap: floatPtr(1.2e12)},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	// Ordered by symbol, normalized upper-case.
	if all[0].Symbol != "BTCUSDT" || all[1].Symbol != "ETHUSDT" {
		t.Errorf("unexpected order/normalization: %s, %s", all[0].Symbol, all[1].Symbol)
	}
}

func TestSupplyStore_InsertReplacesWholesale(t *testing.T) {
	store := NewSupplyStore()
	ctx := context.Background()

	first := []*domain.SupplyRecord{{Symbol: "BTCUSDT", MarketCap: floatPtr(1e12)}}
	if err := store.InsertBulk(ctx, first); err != nil {
		t.Fatalf("first InsertBulk failed: %v", err)
	}

	second := []*domain.SupplyRecord{{Symbol: "BTCUSDT", MarketCap: floatPtr(2e12)}}
	if err := store.InsertBulk(ctx, second); err != nil {
		t.Fatalf("second InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 || *all[0].MarketCap != 2e12 {
		t.Errorf("expected replaced record with market cap 2e12, got %+v", all)
	}
}

func TestSupplyStore_InsertInvalidInput(t *testing.T) {
	store := NewSupplyStore()

	err := store.InsertBulk(context.Background(), []*domain.SupplyRecord{{Symbol: ""}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSupplyStore_GetAllCopiesRecords(t *testing.T) {
	store := NewSupplyStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.SupplyRecord{{Symbol: "BTCUSDT", MarketCap: floatPtr(1e12)}}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, _ := store.GetAll(ctx)
	all[0].Symbol = "MUTATED"

	again, _ := store.GetAll(ctx)
	if again[0].Symbol != "BTCUSDT" {
		t.Error("store contents should be isolated from caller mutation")
	}
}
