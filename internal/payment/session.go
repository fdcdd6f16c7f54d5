// Package payment wraps the hosted payment gateway behind a small interface
// so reconciliation can run against a fake.
package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MetadataUserID          = "userId"
	MetadataShippingAddress = "shippingAddress"

	StatusPaid = "paid"

	EventCheckoutSessionCompleted = "checkout.session.completed"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSessionNotFound  = errors.New("payment session not found")
)

// Session is the gateway's view of one hosted checkout.
type Session struct {
	ID            string
	PaymentStatus string
	Status        string
	// AmountTotal is in minor units (cents).
	AmountTotal int64
	Currency    string
	Metadata    map[string]string
	URL         string
	CreatedAt   time.Time
}

func (s Session) Paid() bool {
	return s.PaymentStatus == StatusPaid
}

// UserID parses the user id the session was created for. ok is false when
// the metadata is missing or not a positive integer.
func (s Session) UserID() (int64, bool) {
	raw := strings.TrimSpace(s.Metadata[MetadataUserID])
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s Session) ShippingAddress() string {
	return strings.TrimSpace(s.Metadata[MetadataShippingAddress])
}

// Amount converts AmountTotal from minor units of the session currency.
func (s Session) Amount() decimal.Decimal {
	return decimal.New(s.AmountTotal, -CurrencyExponent(s.Currency))
}

type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type SessionRequest struct {
	UserID          int64
	ShippingAddress string
	Lines           []LineItem
}

// Event is a verified webhook delivery. Session is set for checkout.session.*
// events only.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	ParseEvent(payload []byte, signatureHeader string) (Event, error)
}

// MinorUnits converts a decimal amount to minor units of currency, rounding
// half away from zero.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(CurrencyExponent(currency)).Round(0).IntPart()
}
