package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-retail/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-retail/internal/jobs"
)

// AlertStore persists negative stock alerts.
type AlertStore interface {
	RecordAlert(ctx context.Context, alert inventory.NegativeStockAlert) (int64, error)
}

// NegativeStockJob records alerts raised after a committed write left a
// product below zero.
type NegativeStockJob struct {
	Store   AlertStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewNegativeStockJob initialises the alert handler.
func NewNegativeStockJob(store AlertStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *NegativeStockJob {
	return &NegativeStockJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes TaskInventoryNegativeStock.
func (j *NegativeStockJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("negative stock: handler not configured")
	}
	var payload NegativeStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	alert := payload.Alert
	if alert.TenantID <= 0 || alert.ProductID <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskInventoryNegativeStock)
	logger := j.logger().With(
		slog.Int64("tenant_id", alert.TenantID),
		slog.Int64("product_id", alert.ProductID),
		slog.String("reference", alert.Reference),
	)

	current, err := j.Store.RecordAlert(ctx, alert)
	if errors.Is(err, inventory.ErrProductNotFound) {
		logger.Info("alert dropped, product no longer exists")
		_ = tracker.End(nil)
		return asynq.SkipRetry
	}
	if err != nil {
		logger.Error("record stock alert", slog.Any("error", err))
		return tracker.End(err)
	}

	j.Metrics.AddStockAlerts(alert.TenantID, 1)
	logger.Warn("negative stock recorded",
		slog.Int64("on_hand_at_write", alert.OnHand),
		slog.Int64("on_hand_now", current))
	return tracker.End(nil)
}

func (j *NegativeStockJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
