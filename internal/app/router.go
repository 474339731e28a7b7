package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerkit/ledgerkit/internal/catalog"
	"github.com/ledgerkit/ledgerkit/internal/documents"
	"github.com/ledgerkit/ledgerkit/internal/observability"
	"github.com/ledgerkit/ledgerkit/internal/parties"
	"github.com/ledgerkit/ledgerkit/internal/payments"
	"github.com/ledgerkit/ledgerkit/internal/reporting"
	"github.com/ledgerkit/ledgerkit/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	DocumentHandler  *documents.Handler
	PaymentHandler   *payments.Handler
	ReportingHandler *reporting.Handler
	CatalogHandler   *catalog.Handler
	PartyHandler     *parties.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(TenantMiddleware)

		if params.DocumentHandler != nil {
			r.Route("/documents", params.DocumentHandler.MountRoutes)
		}
		if params.PaymentHandler != nil {
			params.PaymentHandler.MountRoutes(r)
		}
		if params.ReportingHandler != nil {
			r.Route("/reports", params.ReportingHandler.MountRoutes)
		}
		if params.CatalogHandler != nil {
			r.Route("/items", params.CatalogHandler.MountRoutes)
		}
		if params.PartyHandler != nil {
			r.Route("/parties", params.PartyHandler.MountRoutes)
		}
	})

	return r
}
