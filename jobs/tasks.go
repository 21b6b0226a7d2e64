package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-retail/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAlerts carries stock alerts ahead of maintenance work.
	QueueAlerts = "alerts"
	// TaskInventoryNegativeStock records a product left below zero.
	TaskInventoryNegativeStock = "inventory:negative-stock"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// NegativeStockPayload is the task body of TaskInventoryNegativeStock.
type NegativeStockPayload struct {
	Alert inventory.NegativeStockAlert `json:"alert"`
}

// NewNegativeStockTask constructs an Asynq task for one alert.
func NewNegativeStockTask(alert inventory.NegativeStockAlert) (*asynq.Task, error) {
	data, err := json.Marshal(NegativeStockPayload{Alert: alert})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryNegativeStock, data), nil
}

// IdempotencyCleanupPayload configures the cleanup window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		return nil, fmt.Errorf("idempotency cleanup: retention must be positive, got %d", retentionHours)
	}
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
