package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerkit/ledgerkit/internal/documents"
	jobmetrics "github.com/ledgerkit/ledgerkit/internal/jobs"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// OverdueScanner flips sent invoices past their due date to Overdue. It
// goes through the document service so every flip takes the per-document
// lock and the transition table.
type OverdueScanner struct {
	logger  *slog.Logger
	repo    documents.Repository
	service *documents.Service
	metrics *jobmetrics.Metrics
}

// NewOverdueScanner builds the overdue scan task handler.
func NewOverdueScanner(logger *slog.Logger, repo documents.Repository, service *documents.Service, metrics *jobmetrics.Metrics) *OverdueScanner {
	return &OverdueScanner{logger: logger, repo: repo, service: service, metrics: metrics}
}

// Handle processes one TaskOverdueScan task.
func (s *OverdueScanner) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := s.metrics.Track("overdue_scan")

	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	candidates, err := s.repo.ListOverdueCandidates(ctx, asOf)
	if err != nil {
		return tracker.End(err)
	}

	flipped := 0
	for _, candidate := range candidates {
		tenant := shared.TenantContext{TenantID: candidate.TenantID}
		_, err := s.service.SetStatus(ctx, tenant, candidate.ID, documents.StatusOverdue)
		if err != nil {
			// A racing payment may already have moved the document on.
			var illegal *documents.IllegalTransitionError
			var conflict *documents.ConcurrencyConflictError
			if errors.As(err, &illegal) || errors.As(err, &conflict) {
				continue
			}
			s.logger.Error("overdue scan: mark overdue",
				slog.Any("error", err), slog.String("document", candidate.ID.String()))
			continue
		}
		flipped++
	}

	s.metrics.AddOverdueFlipped(flipped)
	s.logger.Info("overdue scan complete",
		slog.Int("candidates", len(candidates)), slog.Int("flipped", flipped))
	return tracker.End(nil)
}
