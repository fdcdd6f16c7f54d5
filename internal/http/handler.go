package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/enrollment"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
)

// CheckoutService is the part of *checkout.Service the handlers call.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64, shippingAddress string) (*order.Order, error)
	StartPayment(ctx context.Context, userID int64, shippingAddress string) (payment.Session, error)
	VerifySession(ctx context.Context, sessionID string) (payment.Session, error)
	Reconcile(ctx context.Context, session payment.Session) (checkout.Result, error)
	ReconcileSessions(ctx context.Context, sessionIDs []string) checkout.SyncSummary
}

type EventParser interface {
	ParseEvent(payload []byte, signatureHeader string) (payment.Event, error)
}

type Deps struct {
	Checkout    CheckoutService
	Events      EventParser
	Carts       cart.Repository
	Orders      order.Repository
	Enrollments enrollment.Repository
	Stock       inventory.Repository
	Logger      *slog.Logger
}

type Handler struct {
	checkout    CheckoutService
	events      EventParser
	carts       cart.Repository
	orders      order.Repository
	enrollments enrollment.Repository
	stock       inventory.Repository
	logger      *slog.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		checkout:    d.Checkout,
		events:      d.Events,
		carts:       d.Carts,
		orders:      d.Orders,
		enrollments: d.Enrollments,
		stock:       d.Stock,
		logger:      logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "educomm-service",
	})
}

func (h *Handler) GetKitStock(w http.ResponseWriter, r *http.Request) {
	kitID, ok := pathID(w, r, "kitId")
	if !ok {
		return
	}
	item, err := h.stock.GetStock(r.Context(), kitID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// writeDomainError is the single place where domain errors become status
// codes and user-facing messages.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if h.requestEnded(r, err) {
		return
	}

	var stockErr *checkout.InsufficientStockError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Cart is empty.")
	case errors.As(err, &stockErr):
		writeError(w, http.StatusBadRequest, stockErr.Error())
	case errors.Is(err, checkout.ErrShippingAddressRequired):
		writeError(w, http.StatusBadRequest, "Shipping address is required.")
	case errors.Is(err, checkout.ErrMissingSessionID):
		writeError(w, http.StatusBadRequest, "sessionId is required.")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "Quantity must be at least 1.")
	case errors.Is(err, cart.ErrKitNotFound), errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Kit not found.")
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Item not found in cart.")
	case errors.Is(err, payment.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Payment session not found.")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err,
			"correlation_id", middleware.GetCorrelationID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requestEnded reports whether the request context is already done. The
// timeout middleware answers expired requests and a cancelled client reads
// nothing, so the handler must not write.
func (h *Handler) requestEnded(r *http.Request, err error) bool {
	ctxErr := r.Context().Err()
	if ctxErr == nil {
		return false
	}
	h.logger.WarnContext(r.Context(), "request ended before completion",
		"method", r.Method, "path", r.URL.Path, "reason", ctxErr, "error", err,
		"correlation_id", middleware.GetCorrelationID(r.Context()))
	return true
}

func identity(r *http.Request) middleware.Identity {
	id, _ := middleware.GetIdentity(r.Context())
	return id
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
