// Package checkout turns a user's cart into an order, either directly or
// when the payment gateway reports a paid session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/enrollment"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
)

// PlaceholderShippingAddress is stored when a paid session carries no address.
const PlaceholderShippingAddress = "Address not recorded"

type CartStore interface {
	cart.TxRepository
	GetCart(ctx context.Context, userID int64) (*cart.Cart, error)
}

type Deps struct {
	DB          db.TxBeginner
	Carts       CartStore
	Kits        inventory.TxRepository
	Orders      order.TxRepository
	Enrollments enrollment.TxRepository
	Ledger      dedup.Repository
	Gateway     payment.Gateway
	Publisher   events.OrderPublisher
	Metrics     *metrics.ServerMetrics
	Logger      *slog.Logger
	// CorrelationID extracts the request correlation id for published events.
	CorrelationID func(ctx context.Context) string
}

type Service struct {
	db            db.TxBeginner
	carts         CartStore
	kits          inventory.TxRepository
	orders        order.TxRepository
	enrollments   enrollment.TxRepository
	ledger        dedup.Repository
	gateway       payment.Gateway
	publisher     events.OrderPublisher
	metrics       *metrics.ServerMetrics
	logger        *slog.Logger
	correlationID func(ctx context.Context) string
}

func NewService(d Deps) *Service {
	s := &Service{
		db:            d.DB,
		carts:         d.Carts,
		kits:          d.Kits,
		orders:        d.Orders,
		enrollments:   d.Enrollments,
		ledger:        d.Ledger,
		gateway:       d.Gateway,
		publisher:     d.Publisher,
		metrics:       d.Metrics,
		logger:        d.Logger,
		correlationID: d.CorrelationID,
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.correlationID == nil {
		s.correlationID = func(context.Context) string { return "" }
	}
	return s
}

// placed is what a successful placeOrder produced inside the transaction.
type placed struct {
	order    *order.Order
	enrolled []int64
}

// Checkout buys everything in the user's cart in one transaction. The order
// starts out Pending.
func (s *Service) Checkout(ctx context.Context, userID int64, shippingAddress string) (*order.Order, error) {
	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		return nil, ErrShippingAddressRequired
	}

	p, err := s.checkoutTx(ctx, userID, shippingAddress)
	if err != nil {
		s.metrics.ObserveCheckout(checkoutOutcome(err))
		if !isClientError(err) {
			s.logger.ErrorContext(ctx, "checkout failed", "user_id", userID, "error", err)
		}
		return nil, err
	}

	s.metrics.ObserveCheckout("completed")
	s.logger.InfoContext(ctx, "order placed",
		"order_id", p.order.ID, "user_id", userID, "total", p.order.TotalAmount.String(), "source", events.SourceCheckout)
	s.publish(ctx, p, events.SourceCheckout, "")
	return p.order, nil
}

func (s *Service) checkoutTx(ctx context.Context, userID int64, shippingAddress string) (placed, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return placed{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cartID, found, err := s.carts.LockCartWithTx(ctx, tx, userID)
	if err != nil {
		return placed{}, stockConflict(err)
	}
	if !found {
		return placed{}, ErrEmptyCart
	}

	p, err := s.placeOrder(ctx, tx, userID, cartID, order.StatusPending, shippingAddress)
	if err != nil {
		return placed{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return placed{}, stockConflict(fmt.Errorf("commit: %w", err))
	}
	return p, nil
}

// placeOrder runs the shared checkout steps on a locked cart: revalidate
// stock, snapshot the order, take stock, enroll and empty the cart.
func (s *Service) placeOrder(ctx context.Context, tx pgx.Tx, userID, cartID int64, status order.Status, shippingAddress string) (placed, error) {
	lines, err := s.carts.LinesWithTx(ctx, tx, cartID)
	if err != nil {
		return placed{}, err
	}
	if len(lines) == 0 {
		return placed{}, ErrEmptyCart
	}

	kitIDs := make([]int64, 0, len(lines))
	for _, ln := range lines {
		kitIDs = append(kitIDs, ln.KitID)
	}
	kits, err := s.kits.LockWithTx(ctx, tx, kitIDs)
	if err != nil {
		return placed{}, stockConflict(err)
	}
	if short := inventory.Shortages(lines, kits); len(short) > 0 {
		return placed{}, &InsufficientStockError{Lines: short}
	}

	o := &order.Order{
		UserID:          userID,
		Status:          status,
		ShippingAddress: shippingAddress,
		Items:           make([]order.Item, 0, len(lines)),
	}
	for _, ln := range lines {
		o.Items = append(o.Items, order.Item{
			KitID:    ln.KitID,
			Quantity: ln.Quantity,
			Price:    kits[ln.KitID].Price,
		})
	}
	o.TotalAmount = order.Total(o.Items)

	if err := s.orders.CreateWithTx(ctx, tx, o); err != nil {
		return placed{}, err
	}

	if err := s.kits.DecrementWithTx(ctx, tx, lines); err != nil {
		return placed{}, stockConflict(err)
	}

	var enrolled []int64
	seen := make(map[int64]bool)
	for _, ln := range lines {
		courseID := kits[ln.KitID].CourseID
		if courseID == nil || seen[*courseID] {
			continue
		}
		seen[*courseID] = true
		created, err := s.enrollments.EnsureWithTx(ctx, tx, userID, *courseID)
		if err != nil {
			return placed{}, err
		}
		if created {
			enrolled = append(enrolled, *courseID)
		}
	}

	if err := s.carts.ClearWithTx(ctx, tx, cartID); err != nil {
		return placed{}, err
	}

	return placed{order: o, enrolled: enrolled}, nil
}

func (s *Service) publish(ctx context.Context, p placed, source, sessionID string) {
	meta := events.EventMeta{
		CorrelationID: s.correlationID(ctx),
		CausationID:   sessionID,
		PartitionKey:  events.PartitionKeyForUser(p.order.UserID),
	}
	payload := events.NewOrderPlacedPayload(p.order, source, sessionID, p.enrolled)
	if err := s.publisher.PublishOrderPlaced(ctx, meta, payload); err != nil {
		s.logger.WarnContext(ctx, "publish OrderPlaced failed", "order_id", p.order.ID, "error", err)
	}
}

// stockConflict maps lost races reported by the database to a retryable
// insufficient-stock error.
func stockConflict(err error) error {
	if errors.Is(err, inventory.ErrStockConflict) || db.IsStockConflict(err) {
		return &InsufficientStockError{}
	}
	return err
}

func isClientError(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrMissingUserID) ||
		errors.Is(err, ErrShippingAddressRequired) ||
		errors.Is(err, ErrMissingSessionID)
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}
