package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogSweep triggers the full-catalog repricing sweep.
	TaskCatalogSweep = "pricing:catalog_sweep"
)

// CatalogSweepPayload carries scheduling metadata for a sweep run.
type CatalogSweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewCatalogSweepTask constructs an Asynq task for a full-catalog sweep.
func NewCatalogSweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(CatalogSweepPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogSweep, body, asynq.Queue(QueueDefault)), nil
}
