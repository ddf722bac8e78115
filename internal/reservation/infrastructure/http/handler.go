package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/reservation/application"
	"github.com/PixelCodeeee/arroyo-seco-backend/internal/reservation/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("reservation-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/reservations", h.create)
	r.Get("/reservations", h.list)
	r.Get("/reservations/stats", h.stats)
	r.Get("/reservations/upcoming", h.upcoming)
	r.Get("/reservations/availability", h.availability)
	r.Get("/reservations/{id}", h.get)
	r.Put("/reservations/{id}", h.update)
	r.Patch("/reservations/{id}/status", h.changeStatus)
	r.Delete("/reservations/{id}", h.delete)
	r.Get("/users/{id}/reservations", h.listByUser)
	r.Get("/services/{id}/reservations", h.listByService)
	r.Get("/reservations/date/{date}", h.listByDate)
	r.Get("/reservations/status/{status}", h.listByStatus)
	return r
}

type createReq struct {
	UserID    string `json:"user_id"`
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	PartySize int    `json:"party_size"`
	Notes     string `json:"notes"`
}

type updateReq struct {
	Date      *string `json:"date"`
	Slot      *string `json:"slot"`
	PartySize *int    `json:"party_size"`
	Notes     *string `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateReservation")
	defer span.End()

	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(ctx, domain.Reservation{
		UserID:    req.UserID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		Slot:      req.Slot,
		PartySize: req.PartySize,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateReservation")
	defer span.End()

	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(ctx, chi.URLParam(r, "id"), domain.Update{
		Date:      req.Date,
		Slot:      req.Slot,
		PartySize: req.PartySize,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ChangeReservationStatus")
	defer span.End()

	var req struct {
		Status domain.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.ChangeStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CheckSeats")
	defer span.End()

	q := r.URL.Query()
	partySize, err := strconv.Atoi(q.Get("party_size"))
	if err != nil {
		http.Error(w, "invalid party_size", http.StatusBadRequest)
		return
	}
	adm, err := h.service.CheckSeats(ctx, q.Get("service_id"), q.Get("date"), q.Get("slot"), partySize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": adm.OK, "remaining": adm.Remaining})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listByService(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListByService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listByDate(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListByStatus(r.Context(), domain.Status(chi.URLParam(r, "status")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	out, err := h.service.ListUpcoming(r.Context(), days)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var capErr *domain.CapacityError
	switch {
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "remaining": capErr.Remaining})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrMissingFields):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrServiceNotFound),
		errors.Is(err, domain.ErrServiceUnavailable):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	default:
		h.log.Error("reservation request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
