package checkout

import (
	"context"
	"strings"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
)

// StartPayment opens a hosted payment session for the current cart. Nothing
// is written locally; the order is created when the session is reconciled.
func (s *Service) StartPayment(ctx context.Context, userID int64, shippingAddress string) (payment.Session, error) {
	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		return payment.Session{}, ErrShippingAddressRequired
	}

	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return payment.Session{}, err
	}
	if c.Empty() {
		return payment.Session{}, ErrEmptyCart
	}

	req := payment.SessionRequest{UserID: userID, ShippingAddress: shippingAddress}
	for _, it := range c.Items {
		req.Lines = append(req.Lines, payment.LineItem{Name: it.KitName, UnitPrice: it.Price, Quantity: it.Quantity})
	}

	session, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "create payment session failed", "user_id", userID, "error", err)
		return payment.Session{}, err
	}
	s.logger.InfoContext(ctx, "payment session created",
		"session_id", session.ID, "user_id", userID, "total", c.Total.String())
	return session, nil
}

// VerifySession reads the gateway's current view of a session without
// writing anything.
func (s *Service) VerifySession(ctx context.Context, sessionID string) (payment.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return payment.Session{}, ErrMissingSessionID
	}
	return s.gateway.GetSession(ctx, sessionID)
}
