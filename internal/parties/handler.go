package parties

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerkit/ledgerkit/internal/platform/httpx"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Handler serves the customer and supplier directory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers party routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listParties)
	r.Post("/", h.createParty)
	r.Get("/{id}", h.getParty)
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	kind := PartyKind(r.URL.Query().Get("kind"))
	parties, err := h.service.ListParties(r.Context(), shared.TenantFromContext(r.Context()), kind)
	if err != nil {
		h.logger.Error("list parties", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if parties == nil {
		parties = []Party{}
	}
	httpx.JSON(w, http.StatusOK, parties)
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "party id must be a UUID")
		return
	}
	party, err := h.service.GetParty(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var party Party
	if err := httpx.DecodeJSON(r, &party); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	created, err := h.service.CreateParty(r.Context(), shared.TenantFromContext(r.Context()), party)
	if err != nil {
		h.logger.Error("create party", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
