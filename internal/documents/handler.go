package documents

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

// Handler serves the document store endpoints.
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

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createDocument)
	r.Get("/{id}", h.getDocument)
	r.Put("/{id}/lines", h.updateLines)
	r.Patch("/{id}", h.updateHeader)
	r.Post("/{id}/status", h.setStatus)
	r.Post("/{id}/cancel", h.cancelDocument)
	r.Post("/{id}/duplicate", h.duplicateDocument)
	r.Post("/{id}/convert", h.convertDocument)
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	doc, err := h.service.Create(r.Context(), shared.TenantFromContext(r.Context()), req)
	if err != nil {
		h.logger.Error("create document", slog.Any("error", err), slog.String("type", string(req.Type)))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.DocumentCreated(string(doc.Type))
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) updateLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	var req UpdateLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	doc, err := h.service.UpdateLines(r.Context(), shared.TenantFromContext(r.Context()), id, req)
	if err != nil {
		h.logger.Error("update lines", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) updateHeader(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	var req UpdateHeaderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	doc, err := h.service.UpdateHeader(r.Context(), shared.TenantFromContext(r.Context()), id, req)
	if err != nil {
		h.logger.Error("update header", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	doc, err := h.service.SetStatus(r.Context(), shared.TenantFromContext(r.Context()), id, req.Status)
	if err != nil {
		h.logger.Error("set status", slog.Any("error", err),
			slog.String("id", id.String()), slog.String("to", string(req.Status)))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) cancelDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Cancel(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		h.logger.Error("cancel document", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) duplicateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Duplicate(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		h.logger.Error("duplicate document", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) convertDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}
	var req ConvertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	doc, err := h.service.Convert(r.Context(), shared.TenantFromContext(r.Context()), id, req.TargetType)
	if err != nil {
		h.logger.Error("convert document", slog.Any("error", err),
			slog.String("id", id.String()), slog.String("target", string(req.TargetType)))
		httpx.RespondError(w, err)
		return
	}
	if doc.SourceDocumentType != nil {
		h.metrics.ConversionPerformed(string(*doc.SourceDocumentType), string(doc.Type))
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
