package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
	OrderID  int64  `json:"orderId,omitempty"`
}

// PaymentWebhook answers 400 only for deliveries that can never succeed
// (bad signature, no user, nothing to buy) and 200 for everything the
// gateway should stop retrying. Unexpected failures are 500 so the delivery
// is retried; reconciliation is idempotent per session.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeText(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	ev, err := h.events.ParseEvent(payload, r.Header.Get(signatureHeader))
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook rejected", "error", err)
		writeText(w, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	if ev.Type != payment.EventCheckoutSessionCompleted || ev.Session == nil {
		h.logger.InfoContext(r.Context(), "webhook event ignored", "event_id", ev.ID, "type", ev.Type)
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: "ignored"})
		return
	}

	res, err := h.checkout.Reconcile(r.Context(), *ev.Session)
	var stockErr *checkout.InsufficientStockError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: string(res.Outcome), OrderID: res.OrderID})
	case errors.Is(err, checkout.ErrMissingUserID):
		writeText(w, http.StatusBadRequest, "userId not found in metadata")
	case errors.Is(err, checkout.ErrEmptyCart):
		writeText(w, http.StatusBadRequest, "Cart is empty")
	case errors.As(err, &stockErr), errors.Is(err, checkout.ErrMissingSessionID):
		// Retrying cannot fix these; the session needs manual follow-up.
		h.logger.ErrorContext(r.Context(), "paid session could not be fulfilled",
			"event_id", ev.ID, "session_id", ev.Session.ID, "error", err)
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: "failed"})
	case h.requestEnded(r, err):
		// Answered by the timeout middleware.
	default:
		h.logger.ErrorContext(r.Context(), "webhook processing failed",
			"event_id", ev.ID, "session_id", ev.Session.ID, "error", err)
		writeText(w, http.StatusInternalServerError, "Webhook processing failed")
	}
}

// writeText writes msg as is; http.Error would append a newline.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
