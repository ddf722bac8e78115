package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/application"
	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/domain"
	inventorydomain "github.com/PixelCodeeee/arroyo-seco-backend/internal/inventory/domain"
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
		tracer:  otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/checkout/orders", h.initiate)
	r.Post("/checkout/orders/{id}/capture", h.capture)
	r.Get("/checkout/orders/{id}", h.getProcessorOrder)
	r.Get("/orders/{id}", h.getOrder)
	return r
}

type cartReq struct {
	VendorID           string            `json:"vendor_id"`
	Items              []domain.CartItem `json:"items"`
	DeclaredTotalCents int64             `json:"total_cents"`
}

func (c cartReq) toCart() domain.Cart {
	return domain.Cart{
		VendorID:           c.VendorID,
		Items:              c.Items,
		DeclaredTotalCents: c.DeclaredTotalCents,
	}
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "InitiateCheckout")
	defer span.End()

	var req cartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	processorOrderID, err := h.service.Initiate(ctx, req.toCart())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"order_id": processorOrderID})
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CaptureCheckout")
	defer span.End()

	var req struct {
		UserID string  `json:"user_id"`
		Cart   cartReq `json:"cart"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	order, err := h.service.Capture(ctx, chi.URLParam(r, "id"), req.UserID, req.Cart.toCart())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) getProcessorOrder(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.GetProcessorOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(po.Raw)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *inventorydomain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrMissingOrderID), errors.Is(err, domain.ErrInvalidCart):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrTotalMismatch),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrPaymentNotCompleted),
		errors.Is(err, domain.ErrDuplicateTransaction),
		errors.Is(err, domain.ErrCaptureInProgress):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "remaining": insufficient.Remaining})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	default:
		h.log.Error("checkout request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
