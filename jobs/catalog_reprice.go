package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shelfmart/shelfmart/internal/catalog"
	"github.com/shelfmart/shelfmart/internal/pricing"
)

// CatalogSweepJob walks the active catalog and reprices every product. Each
// product commits independently, so a failure midway never rolls back
// already-applied repricing; cancellation stops new batches but lets the
// in-flight product finish.
type CatalogSweepJob struct {
	products  catalog.Repository
	service   *pricing.Service
	logger    *slog.Logger
	batchSize int
}

// NewCatalogSweepJob constructs the sweep handler.
func NewCatalogSweepJob(products catalog.Repository, service *pricing.Service, logger *slog.Logger, batchSize int) *CatalogSweepJob {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &CatalogSweepJob{products: products, service: service, logger: logger, batchSize: batchSize}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *CatalogSweepJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload CatalogSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return j.Run(ctx)
}

// Run executes one sweep over the catalog in bounded batches.
func (j *CatalogSweepJob) Run(ctx context.Context) error {
	started := time.Now()
	var (
		afterID   string
		repriced  int
		failed    int
		sellersOK int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := j.products.ListActiveAfter(ctx, afterID, j.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for _, product := range page {
			report, err := j.service.RecomputeForProduct(ctx, product.ID)
			if err != nil {
				failed++
				if j.logger != nil {
					j.logger.Warn("catalog sweep product failed",
						slog.String("product_id", product.ID),
						slog.Any("error", err))
				}
				continue
			}
			repriced++
			sellersOK += report.Succeeded
			if report.Failed() > 0 && j.logger != nil {
				j.logger.Warn("catalog sweep partial product",
					slog.String("product_id", product.ID),
					slog.Int("failed_sellers", report.Failed()))
			}
		}
		afterID = page[len(page)-1].ID
	}
	if j.logger != nil {
		j.logger.Info("catalog sweep finished",
			slog.Int("products", repriced),
			slog.Int("product_failures", failed),
			slog.Int("seller_updates", sellersOK),
			slog.Duration("took", time.Since(started)))
	}
	return nil
}
