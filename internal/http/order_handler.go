package httpapi

import (
	"net/http"
)

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder hides orders of other users behind a 404 unless the caller is an
// admin.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderId")
	if !ok {
		return
	}

	o, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	caller := identity(r)
	if o == nil || (o.UserID != caller.UserID && !caller.IsAdmin()) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	list, err := h.enrollments.ListByUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
