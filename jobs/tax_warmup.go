package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/taxes"
)

// TaxWarmupJob pre-populates the charge-to-tax-code cache so the first
// pricing run of the day does not pay the lookup cost.
type TaxWarmupJob struct {
	Taxes      *taxes.Service
	ChargeRepo charges.Repository
	Logger     *slog.Logger
}

// NewTaxWarmupJob wires dependencies for the warmup handler.
func NewTaxWarmupJob(taxSvc *taxes.Service, chargeRepo charges.Repository, logger *slog.Logger) *TaxWarmupJob {
	return &TaxWarmupJob{Taxes: taxSvc, ChargeRepo: chargeRepo, Logger: logger}
}

// Handle processes TaskTaxCacheWarmup tasks. Charges without tax
// configuration are skipped, not failed; warmup is best effort.
func (j *TaxWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("tax warmup: handler not configured")
	}
	var payload TaxWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	active, err := j.ChargeRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	var warmed, skipped int
	for _, charge := range active {
		if charge.TaxCodeID == nil {
			skipped++
			continue
		}
		if _, err := j.Taxes.TaxFor(ctx, 0, charge.ID); err != nil {
			j.Logger.Warn("tax warmup lookup failed",
				slog.Int64("charge_id", charge.ID), slog.Any("error", err))
			skipped++
			continue
		}
		warmed++
	}

	j.Logger.Info("tax cache warmup completed",
		slog.Int("warmed", warmed), slog.Int("skipped", skipped))
	return nil
}
