package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ledgerkit/ledgerkit/internal/jobs"
	"github.com/ledgerkit/ledgerkit/internal/reporting"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// AggregatesWarmer precomputes the monthly groupings so dashboard loads
// hit a warm cache.
type AggregatesWarmer struct {
	logger  *slog.Logger
	repo    reporting.Repository
	service *reporting.Service
	metrics *jobmetrics.Metrics
}

// NewAggregatesWarmer builds the warmup task handler.
func NewAggregatesWarmer(logger *slog.Logger, repo reporting.Repository, service *reporting.Service, metrics *jobmetrics.Metrics) *AggregatesWarmer {
	return &AggregatesWarmer{logger: logger, repo: repo, service: service, metrics: metrics}
}

// Handle processes one TaskAggregatesWarmup task.
func (w *AggregatesWarmer) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := w.metrics.Track("aggregates_warmup")

	var payload AggregatesWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}

	tenants := []string{payload.TenantID}
	if payload.TenantID == "" {
		all, err := w.repo.ListTenants(ctx)
		if err != nil {
			return tracker.End(err)
		}
		tenants = all
	}

	for _, tenantID := range tenants {
		tenant := shared.TenantContext{TenantID: tenantID}
		if err := w.service.WarmMonthGroups(ctx, tenant); err != nil {
			w.logger.Error("aggregates warmup",
				slog.Any("error", err), slog.String("tenant", tenantID))
			continue
		}
	}

	w.logger.Info("aggregates warmup complete", slog.Int("tenants", len(tenants)))
	return tracker.End(nil)
}
