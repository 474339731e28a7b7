package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerkit/ledgerkit/internal/observability"
	"github.com/ledgerkit/ledgerkit/internal/platform/httpx"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Handler serves the payment ledger endpoints. Routes mount under a
// document scope; the payment id routes act on individual records.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, metrics: metrics}
}

// MountRoutes registers payment ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/documents/{id}/payments", h.listPayments)
	r.Post("/documents/{id}/payments", h.recordPayment)
	r.Post("/documents/{id}/receipt", h.generateReceipt)
	r.Post("/payments/{paymentId}/reverse", h.reversePayment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	records, err := h.service.ListPayments(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if records == nil {
		records = []PaymentRecord{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	req.DocumentID = id
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	record, err := h.service.RecordPayment(r.Context(), shared.TenantFromContext(r.Context()), req)
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.String("document", id.String()))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PaymentRecorded()
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) reversePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "paymentId")
	if !ok {
		return
	}
	reversal, err := h.service.ReversePayment(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		h.logger.Error("reverse payment", slog.Any("error", err), slog.String("payment", id.String()))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PaymentRecorded()
	httpx.JSON(w, http.StatusCreated, reversal)
}

func (h *Handler) generateReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	receipt, err := h.service.GenerateReceipt(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		h.logger.Error("generate receipt", slog.Any("error", err), slog.String("document", id.String()))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ReceiptIssued()
	httpx.JSON(w, http.StatusCreated, receipt)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", param+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
