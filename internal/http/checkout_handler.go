package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type shippingRequest struct {
	ShippingAddress string `json:"shippingAddress"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req shippingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	o, err := h.checkout.Checkout(r.Context(), identity(r).UserID, req.ShippingAddress)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req shippingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	s, err := h.checkout.StartPayment(r.Context(), identity(r).UserID, req.ShippingAddress)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createSessionResponse{SessionID: s.ID, URL: s.URL})
}

type verifySessionResponse struct {
	Success       bool            `json:"success"`
	SessionID     string          `json:"sessionId"`
	UserID        *int64          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	PaymentStatus string          `json:"paymentStatus"`
}

// VerifySession reports the gateway's payment status for polling clients.
// It never creates an order.
func (h *Handler) VerifySession(w http.ResponseWriter, r *http.Request) {
	s, err := h.checkout.VerifySession(r.Context(), r.URL.Query().Get("sessionId"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	caller := identity(r)
	resp := verifySessionResponse{
		Success:       s.Paid(),
		SessionID:     s.ID,
		Amount:        s.Amount(),
		Currency:      s.Currency,
		PaymentStatus: s.PaymentStatus,
	}
	if uid, ok := s.UserID(); ok {
		if uid != caller.UserID && !caller.IsAdmin() {
			writeError(w, http.StatusNotFound, "Payment session not found.")
			return
		}
		resp.UserID = &uid
	}
	writeJSON(w, http.StatusOK, resp)
}
