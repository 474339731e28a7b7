// Package jobs holds the background task definitions and the Asynq
// worker plumbing.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueScan marks sent invoices past their due date as overdue.
	TaskOverdueScan = "documents:overdue_scan"
	// TaskAggregatesWarmup precomputes the monthly groupings per tenant.
	TaskAggregatesWarmup = "reporting:warmup"
)

// OverdueScanPayload scopes one overdue scan run. AsOf defaults to the
// handler's clock when zero.
type OverdueScanPayload struct {
	AsOf time.Time `json:"asOf,omitempty"`
}

// AggregatesWarmupPayload scopes a warmup run. An empty TenantID warms
// every tenant with documents.
type AggregatesWarmupPayload struct {
	TenantID string `json:"tenantId,omitempty"`
}

// NewOverdueScanTask constructs an overdue-scan task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, data), nil
}

// NewAggregatesWarmupTask constructs a warmup task.
func NewAggregatesWarmupTask(payload AggregatesWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAggregatesWarmup, data), nil
}
