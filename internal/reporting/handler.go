package reporting

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerkit/ledgerkit/internal/documents"
	"github.com/ledgerkit/ledgerkit/internal/platform/httpx"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Handler serves the document query and aggregation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/documents", h.listDocuments)
	r.Get("/documents/by-month", h.groupByMonth)
	r.Get("/aging", h.aging)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	page, err := h.service.ListDocuments(r.Context(), shared.TenantFromContext(r.Context()), filter)
	if err != nil {
		h.logger.Error("list documents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) groupByMonth(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	groups, err := h.service.GroupByMonth(r.Context(), shared.TenantFromContext(r.Context()), filter)
	if err != nil {
		h.logger.Error("group by month", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if groups == nil {
		groups = []MonthGroup{}
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "asOf must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	buckets, err := h.service.Aging(r.Context(), shared.TenantFromContext(r.Context()), asOf)
	if err != nil {
		h.logger.Error("aging report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, buckets)
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var filter Filter

	if raw := q.Get("dateFrom"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &t
	}
	if raw := q.Get("dateTo"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &t
	}
	if raw := q.Get("type"); raw != "" {
		docType := documents.DocType(raw)
		if !docType.Valid() {
			return filter, fmt.Errorf("unknown document type %q", raw)
		}
		filter.Type = &docType
	}
	if raw := q.Get("status"); raw != "" {
		status := documents.Status(raw)
		filter.Status = &status
	}
	if raw := q.Get("customerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &id
	}
	filter.Search = q.Get("search")

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Page = page
	}
	if raw := q.Get("perPage"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.PerPage = perPage
	}
	return filter, nil
}
