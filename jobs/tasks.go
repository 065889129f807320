package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotationStatusChanged notifies stakeholders of a lifecycle move.
	TaskQuotationStatusChanged = "quotation:status_changed"
	// TaskTaxCacheWarmup pre-populates the tax lookup cache.
	TaskTaxCacheWarmup = "pricing:tax_warmup"
)

// StatusChangedPayload describes one quotation status transition.
type StatusChangedPayload struct {
	QuotationID int64  `json:"quotation_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// NewStatusChangedTask constructs an Asynq task for a status transition.
func NewStatusChangedTask(payload StatusChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationStatusChanged, data), nil
}

// StatusChangedJob dispatches status-change alerts.
type StatusChangedJob struct {
	Logger *slog.Logger
}

// Handle processes TaskQuotationStatusChanged tasks.
// Placeholder dispatch: integrate with the notification gateway in phase 2.
func (j *StatusChangedJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StatusChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	j.Logger.Info("quotation status changed",
		slog.Int64("quotation_id", payload.QuotationID),
		slog.String("from", payload.From),
		slog.String("to", payload.To))
	return nil
}

// TaxWarmupPayload scopes a cache warmup run.
type TaxWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewTaxWarmupTask constructs an Asynq task for a tax cache warmup.
func NewTaxWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(TaxWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTaxCacheWarmup, data), nil
}
