package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shelfmart/shelfmart/internal/catalog"
	"github.com/shelfmart/shelfmart/internal/sellers"
)

// ProductSource abstracts product reads for the service.
type ProductSource interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// SellerSource abstracts seller reads for the service.
type SellerSource interface {
	ListActive(ctx context.Context) ([]sellers.Seller, error)
}

// RuleSource selects the rules applicable to a product.
type RuleSource interface {
	Applicable(ctx context.Context, product catalog.Product) ([]Rule, error)
}

// Service coordinates price recomputation across sellers.
type Service struct {
	products  ProductSource
	sellers   SellerSource
	rules     RuleSource
	inventory InventoryRepository
	cache     *Cache
	logger    *slog.Logger
	modifiers []Modifier
	workers   int
	stock     int
}

// ServiceConfig groups engine tunables.
type ServiceConfig struct {
	// Workers bounds the per-seller fan-out inside one batch.
	Workers int
	// DefaultStock seeds stock on first-contact inventory rows.
	DefaultStock int
	// Modifiers are optional multiplicative stages before clamping.
	Modifiers []Modifier
}

// NewService builds the Service.
func NewService(products ProductSource, sellerSource SellerSource, rules RuleSource, inventory InventoryRepository, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	stock := cfg.DefaultStock
	if stock <= 0 {
		stock = 100
	}
	return &Service{
		products:  products,
		sellers:   sellerSource,
		rules:     rules,
		inventory: inventory,
		cache:     cache,
		logger:    logger,
		modifiers: cfg.Modifiers,
		workers:   workers,
		stock:     stock,
	}
}

// RecomputeForProduct recomputes and persists the calculated price of every
// active seller for one product. A seller's failure is recorded in the report
// and never aborts the batch; only a missing product fails the whole call.
func (s *Service) RecomputeForProduct(ctx context.Context, productID string) (Report, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return Report{}, fmt.Errorf("pricing: load product %s: %w", productID, err)
	}
	active, err := s.sellers.ListActive(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("pricing: list sellers: %w", err)
	}
	// Rules are product-scoped, so one load serves every seller in the batch.
	rules, err := s.rules.Applicable(ctx, product)
	if err != nil {
		return Report{}, fmt.Errorf("pricing: load rules: %w", err)
	}

	report := Report{ProductID: productID}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, seller := range active {
		seller := seller
		g.Go(func() error {
			if err := s.recomputeSeller(ctx, seller, product, rules); err != nil {
				mu.Lock()
				report.Failures = append(report.Failures, SellerFailure{SellerID: seller.ID, Reason: err.Error()})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.Succeeded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].SellerID < report.Failures[j].SellerID
	})
	return report, nil
}

func (s *Service) recomputeSeller(ctx context.Context, seller sellers.Seller, product catalog.Product, rules []Rule) error {
	var override *float64
	if seller.Tier == sellers.TierSellerOverride {
		var err error
		override, err = s.inventory.GetOverridePrice(ctx, seller.ID, product.ID)
		if err != nil {
			return err
		}
	}
	candidate, err := CandidatePrice(seller.Tier, override, product.Price, rules, s.modifiers)
	if err != nil {
		return err
	}
	final := ClampToBand(product.Price, candidate)
	return s.inventory.UpsertCalculated(ctx, UpsertInput{
		SellerID:        seller.ID,
		ProductID:       product.ID,
		BasePrice:       product.Price,
		CalculatedPrice: final,
		DefaultStock:    s.stock,
	})
}

// CalculateForAllSellers computes the final price per active seller without
// persisting anything. Sellers that fail to resolve are omitted from the
// result and logged, so a preview does not silently hide sellers the
// persisting path would report as failed.
func (s *Service) CalculateForAllSellers(ctx context.Context, productID string, basePrice float64) (map[string]float64, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("pricing: load product %s: %w", productID, err)
	}
	active, err := s.sellers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("pricing: list sellers: %w", err)
	}
	rules, err := s.rules.Applicable(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("pricing: load rules: %w", err)
	}

	prices := make(map[string]float64, len(active))
	for _, seller := range active {
		var override *float64
		if seller.Tier == sellers.TierSellerOverride {
			override, err = s.inventory.GetOverridePrice(ctx, seller.ID, product.ID)
			if err != nil {
				s.warnPreviewSkip(productID, seller.ID, err)
				continue
			}
		}
		candidate, err := CandidatePrice(seller.Tier, override, basePrice, rules, s.modifiers)
		if err != nil {
			s.warnPreviewSkip(productID, seller.ID, err)
			continue
		}
		prices[seller.ID] = ClampToBand(basePrice, candidate)
	}
	return prices, nil
}

func (s *Service) warnPreviewSkip(productID, sellerID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn("pricing preview seller skipped",
		slog.String("product_id", productID),
		slog.String("seller_id", sellerID),
		slog.Any("error", err))
}

// UpdatePricingForProduct recomputes, persists, logs the batch outcome and
// invalidates cached summaries. Partial repricing is preferable to none, so
// per-seller failures only surface in logs and the report.
func (s *Service) UpdatePricingForProduct(ctx context.Context, productID string) error {
	report, err := s.RecomputeForProduct(ctx, productID)
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("pricing recompute",
			slog.String("product_id", productID),
			slog.Int("succeeded", report.Succeeded),
			slog.Int("failed", report.Failed()))
		for _, failure := range report.Failures {
			s.logger.Warn("pricing recompute seller failed",
				slog.String("product_id", productID),
				slog.String("seller_id", failure.SellerID),
				slog.String("reason", failure.Reason))
		}
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("pricing cache bump", slog.Any("error", err))
	}
	return nil
}

// Summary reports per-seller inventory aggregates, cached behind the
// versioned redis key so repeated dashboard reads skip the aggregate query.
func (s *Service) Summary(ctx context.Context) ([]SellerSummary, error) {
	key, err := s.cache.BuildKey(ctx, keySummary()...)
	if err != nil {
		return nil, err
	}
	var result []SellerSummary
	err = s.cache.FetchJSON(ctx, key, &result, func(ctx context.Context) (interface{}, error) {
		return s.inventory.Summary(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
