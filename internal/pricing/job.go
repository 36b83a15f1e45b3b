package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shelfmart/shelfmart/internal/catalog"
)

// TaskRepriceProduct is the task type catalog collaborators enqueue after a
// product or rule change.
const TaskRepriceProduct = "pricing:reprice_product"

// RepriceProductPayload identifies the product to reprice.
type RepriceProductPayload struct {
	ProductID string `json:"product_id"`
}

// NewRepriceProductTask constructs an Asynq task for one product.
func NewRepriceProductTask(productID string) (*asynq.Task, error) {
	if productID == "" {
		return nil, errors.New("pricing: product id required")
	}
	body, err := json.Marshal(RepriceProductPayload{ProductID: productID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRepriceProduct, body), nil
}

// RepriceJob processes reprice-product tasks.
type RepriceJob struct {
	service *Service
	logger  *slog.Logger
}

// NewRepriceJob constructs a job handler.
func NewRepriceJob(service *Service, logger *slog.Logger) *RepriceJob {
	return &RepriceJob{service: service, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract. A vanished product is not
// retried; every other failure is.
func (j *RepriceJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload RepriceProductPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.ProductID == "" {
		return asynq.SkipRetry
	}
	if err := j.service.UpdatePricingForProduct(ctx, payload.ProductID); err != nil {
		if j.logger != nil {
			j.logger.Error("reprice product", slog.String("product_id", payload.ProductID), slog.Any("error", err))
		}
		if errors.Is(err, catalog.ErrProductNotFound) {
			return asynq.SkipRetry
		}
		return err
	}
	return nil
}
