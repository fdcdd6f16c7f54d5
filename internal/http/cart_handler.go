package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cart"
)

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := identity(r).UserID
	c, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(c, userID))
}

type addItemRequest struct {
	KitID    int64 `json:"kitId"`
	Quantity int   `json:"quantity"`
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.KitID <= 0 {
		writeError(w, http.StatusBadRequest, "kitId is required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), identity(r).UserID, req.KitID, req.Quantity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	kitID, ok := pathID(w, r, "kitId")
	if !ok {
		return
	}
	userID := identity(r).UserID

	if err := h.carts.RemoveItem(r.Context(), userID, kitID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	c, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(c, userID))
}

func orEmpty(c *cart.Cart, userID int64) *cart.Cart {
	if c != nil {
		return c
	}
	return &cart.Cart{UserID: userID, Items: []cart.Item{}, Total: decimal.Zero}
}
