package pricing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfmart/shelfmart/internal/catalog"
	"github.com/shelfmart/shelfmart/internal/sellers"
)

type fakeProducts struct {
	products map[string]catalog.Product
}

func (f *fakeProducts) Get(ctx context.Context, id string) (catalog.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return product, nil
}

type fakeSellers struct {
	all []sellers.Seller
}

func (f *fakeSellers) ListActive(ctx context.Context) ([]sellers.Seller, error) {
	var active []sellers.Seller
	for _, s := range f.all {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, nil
}

// fakeRuleRepo returns rules already in evaluation order, the way the
// PostgreSQL repository sorts them. It skips the repository's validity-window
// filter on purpose, leaving that check to the store.
type fakeRuleRepo struct {
	rules []Rule
}

func (f *fakeRuleRepo) ListActive(ctx context.Context, at time.Time) ([]Rule, error) {
	ordered := make([]Rule, len(f.rules))
	copy(ordered, f.rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return ordered, nil
}

type memInventory struct {
	mu         sync.Mutex
	rows       map[string]InventoryRow
	upserts    int
	failSeller map[string]error
}

func newMemInventory() *memInventory {
	return &memInventory{rows: make(map[string]InventoryRow)}
}

func invKey(sellerID, productID string) string {
	return fmt.Sprintf("%s:%s", sellerID, productID)
}

func (m *memInventory) GetOverridePrice(ctx context.Context, sellerID, productID string) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[invKey(sellerID, productID)]
	if !ok {
		return nil, nil
	}
	return row.SellerPrice, nil
}

func (m *memInventory) UpsertCalculated(ctx context.Context, input UpsertInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSeller[input.SellerID]; err != nil {
		return err
	}
	m.upserts++
	key := invKey(input.SellerID, input.ProductID)
	if row, ok := m.rows[key]; ok {
		row.CalculatedPrice = input.CalculatedPrice
		if row.SellerPrice == nil {
			price := input.CalculatedPrice
			row.SellerPrice = &price
		}
		row.UpdatedAt = time.Now()
		m.rows[key] = row
		return nil
	}
	price := input.CalculatedPrice
	m.rows[key] = InventoryRow{
		SellerID:        input.SellerID,
		ProductID:       input.ProductID,
		Stock:           input.DefaultStock,
		BasePrice:       input.BasePrice,
		SellerPrice:     &price,
		CalculatedPrice: input.CalculatedPrice,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	return nil
}

func (m *memInventory) Summary(ctx context.Context) ([]SellerSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := make(map[string]*SellerSummary)
	for _, row := range m.rows {
		summary, ok := byID[row.SellerID]
		if !ok {
			summary = &SellerSummary{SellerID: row.SellerID, MinPrice: row.CalculatedPrice, MaxPrice: row.CalculatedPrice}
			byID[row.SellerID] = summary
		}
		summary.TotalProducts++
		summary.AvgPrice += row.CalculatedPrice
		if row.CalculatedPrice < summary.MinPrice {
			summary.MinPrice = row.CalculatedPrice
		}
		if row.CalculatedPrice > summary.MaxPrice {
			summary.MaxPrice = row.CalculatedPrice
		}
	}
	var result []SellerSummary
	for _, summary := range byID {
		summary.AvgPrice /= float64(summary.TotalProducts)
		result = append(result, *summary)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SellerID < result[j].SellerID })
	return result, nil
}

func seller(id string, tier sellers.PricingTier, active bool) sellers.Seller {
	return sellers.Seller{ID: id, DisplayName: id, Tier: tier, IsActive: active}
}

func newTestService(products map[string]catalog.Product, sellerList []sellers.Seller, rules []Rule, inv *memInventory) *Service {
	return NewService(
		&fakeProducts{products: products},
		&fakeSellers{all: sellerList},
		NewStore(&fakeRuleRepo{rules: rules}),
		inv,
		nil,
		nil,
		ServiceConfig{Workers: 4, DefaultStock: 100},
	)
}

func baseProduct() catalog.Product {
	return catalog.Product{ID: "p-1", CategoryID: "cat-books", ISBN: "978-604-1-00001-1", Price: 100000, Stock: 25, IsActive: true}
}

func TestRecomputeGlobalPercentageDiscount(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{seller("s-1", sellers.TierRuleDriven, true)},
		[]Rule{rule(OpPercentageDiscount, Adjustment{Percent: 10}, 5)},
		inv,
	)

	report, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Empty(t, report.Failures)

	row := inv.rows[invKey("s-1", "p-1")]
	require.InDelta(t, 90000, row.CalculatedPrice, 0.001)
	require.Equal(t, 100, row.Stock)
	require.InDelta(t, 100000, row.BasePrice, 0.001)
}

func TestRecomputeStopOnMatchClampsUp(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{seller("s-1", sellers.TierRuleDriven, true)},
		[]Rule{
			rule(OpSetPrice, Adjustment{Price: 60000, StopOnMatch: true}, 10),
			rule(OpFixedMarkup, Adjustment{Amount: 5000}, 5),
		},
		inv,
	)

	report, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)

	// set_price lands below the band floor and is clamped to 0.7x base.
	require.InDelta(t, 70000, inv.rows[invKey("s-1", "p-1")].CalculatedPrice, 0.001)
}

func TestRecomputeOverrideSellerClamped(t *testing.T) {
	inv := newMemInventory()
	override := 250000.0
	inv.rows[invKey("s-1", "p-1")] = InventoryRow{SellerID: "s-1", ProductID: "p-1", BasePrice: 100000, SellerPrice: &override, CalculatedPrice: 100000}

	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{seller("s-1", sellers.TierSellerOverride, true)},
		[]Rule{rule(OpPercentageDiscount, Adjustment{Percent: 10}, 5)},
		inv,
	)

	report, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.InDelta(t, 150000, inv.rows[invKey("s-1", "p-1")].CalculatedPrice, 0.001)
}

func TestRecomputeOverrideSellerFallsBackToRules(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{seller("s-1", sellers.TierSellerOverride, true)},
		[]Rule{rule(OpPercentageDiscount, Adjustment{Percent: 10}, 5)},
		inv,
	)

	_, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.InDelta(t, 90000, inv.rows[invKey("s-1", "p-1")].CalculatedPrice, 0.001)
}

func TestRecomputeStockThresholdRuleSkipped(t *testing.T) {
	inv := newMemInventory()
	product := baseProduct()
	product.Stock = 2
	threshold := 10
	rules := []Rule{rule(OpPercentageDiscount, Adjustment{Percent: 10}, 5)}
	rules[0].Conditions = ConditionSet{StockThreshold: &threshold}

	svc := newTestService(
		map[string]catalog.Product{"p-1": product},
		[]sellers.Seller{seller("s-1", sellers.TierRuleDriven, true)},
		rules,
		inv,
	)

	_, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.InDelta(t, 100000, inv.rows[invKey("s-1", "p-1")].CalculatedPrice, 0.001)
}

func TestRecomputeSkipsInactiveSellers(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{
			seller("s-active", sellers.TierRuleDriven, true),
			seller("s-dormant", sellers.TierRuleDriven, false),
		},
		nil,
		inv,
	)

	report, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Len(t, inv.rows, 1)
	require.Contains(t, inv.rows, invKey("s-active", "p-1"))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{seller("s-1", sellers.TierRuleDriven, true)},
		[]Rule{rule(OpPercentageDiscount, Adjustment{Percent: 10}, 5)},
		inv,
	)

	_, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	first := inv.rows[invKey("s-1", "p-1")].CalculatedPrice

	_, err = svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)

	require.Len(t, inv.rows, 1)
	require.InDelta(t, first, inv.rows[invKey("s-1", "p-1")].CalculatedPrice, 0.001)
}

func TestRecomputeUnknownTierFailsSellerOnly(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{
			seller("s-good", sellers.TierRuleDriven, true),
			seller("s-bad", sellers.PricingTier("legacy_tier"), true),
		},
		nil,
		inv,
	)

	report, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "s-bad", report.Failures[0].SellerID)
	require.Contains(t, report.Failures[0].Reason, "unknown seller tier")
	require.Contains(t, inv.rows, invKey("s-good", "p-1"))
}

func TestRecomputeWriteFailureDoesNotAbortBatch(t *testing.T) {
	inv := newMemInventory()
	inv.failSeller = map[string]error{"s-broken": ErrInventoryWrite}
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{
			seller("s-broken", sellers.TierRuleDriven, true),
			seller("s-ok", sellers.TierRuleDriven, true),
		},
		nil,
		inv,
	)

	report, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "s-broken", report.Failures[0].SellerID)
	require.Contains(t, inv.rows, invKey("s-ok", "p-1"))
}

func TestRecomputeMissingProductFailsWholeCall(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(map[string]catalog.Product{}, []sellers.Seller{seller("s-1", sellers.TierRuleDriven, true)}, nil, inv)

	_, err := svc.RecomputeForProduct(context.Background(), "p-missing")
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	require.Empty(t, inv.rows)
}

func TestRecomputeBoundsInvariantAcrossSellers(t *testing.T) {
	inv := newMemInventory()
	override := 10.0
	inv.rows[invKey("s-low", "p-1")] = InventoryRow{SellerID: "s-low", ProductID: "p-1", SellerPrice: &override}

	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{
			seller("s-low", sellers.TierSellerOverride, true),
			seller("s-markup", sellers.TierRuleDriven, true),
		},
		[]Rule{rule(OpPercentageMarkup, Adjustment{Percent: 90}, 5)},
		inv,
	)

	_, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	for _, row := range inv.rows {
		require.GreaterOrEqual(t, row.CalculatedPrice, 70000.0)
		require.LessOrEqual(t, row.CalculatedPrice, 150000.0)
	}
}

func TestCalculateForAllSellersDoesNotPersist(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{"p-1": baseProduct()},
		[]sellers.Seller{
			seller("s-1", sellers.TierRuleDriven, true),
			seller("s-2", sellers.TierRuleDriven, true),
		},
		[]Rule{rule(OpPercentageDiscount, Adjustment{Percent: 10}, 5)},
		inv,
	)

	prices, err := svc.CalculateForAllSellers(context.Background(), "p-1", 100000)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	require.InDelta(t, 90000, prices["s-1"], 0.001)
	require.InDelta(t, 90000, prices["s-2"], 0.001)
	require.Zero(t, inv.upserts)
}

func TestCalculateForAllSellersLogsSkippedSellers(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	inv := newMemInventory()
	svc := NewService(
		&fakeProducts{products: map[string]catalog.Product{"p-1": baseProduct()}},
		&fakeSellers{all: []sellers.Seller{
			seller("s-good", sellers.TierRuleDriven, true),
			seller("s-bad", sellers.PricingTier("legacy_tier"), true),
		}},
		NewStore(&fakeRuleRepo{}),
		inv,
		nil,
		logger,
		ServiceConfig{Workers: 4, DefaultStock: 100},
	)

	prices, err := svc.CalculateForAllSellers(context.Background(), "p-1", 100000)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.Contains(t, prices, "s-good")

	require.Contains(t, logs.String(), "preview seller skipped")
	require.Contains(t, logs.String(), "s-bad")
}

func TestSummaryAggregatesPerSeller(t *testing.T) {
	inv := newMemInventory()
	svc := newTestService(
		map[string]catalog.Product{
			"p-1": baseProduct(),
			"p-2": {ID: "p-2", CategoryID: "cat-books", Price: 200000, Stock: 5, IsActive: true},
		},
		[]sellers.Seller{seller("s-1", sellers.TierRuleDriven, true)},
		nil,
		inv,
	)

	_, err := svc.RecomputeForProduct(context.Background(), "p-1")
	require.NoError(t, err)
	_, err = svc.RecomputeForProduct(context.Background(), "p-2")
	require.NoError(t, err)

	summaries, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 2, summaries[0].TotalProducts)
	require.InDelta(t, 150000, summaries[0].AvgPrice, 0.001)
	require.InDelta(t, 100000, summaries[0].MinPrice, 0.001)
	require.InDelta(t, 200000, summaries[0].MaxPrice, 0.001)
}
