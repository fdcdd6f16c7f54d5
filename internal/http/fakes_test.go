package httpapi

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/enrollment"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
)

type fakeCheckout struct {
	checkoutFn  func(ctx context.Context, userID int64, addr string) (*order.Order, error)
	startFn     func(ctx context.Context, userID int64, addr string) (payment.Session, error)
	verifyFn    func(ctx context.Context, sessionID string) (payment.Session, error)
	reconcileFn func(ctx context.Context, s payment.Session) (checkout.Result, error)
	syncFn      func(ctx context.Context, ids []string) checkout.SyncSummary
}

func (f *fakeCheckout) Checkout(ctx context.Context, userID int64, addr string) (*order.Order, error) {
	return f.checkoutFn(ctx, userID, addr)
}

func (f *fakeCheckout) StartPayment(ctx context.Context, userID int64, addr string) (payment.Session, error) {
	return f.startFn(ctx, userID, addr)
}

func (f *fakeCheckout) VerifySession(ctx context.Context, sessionID string) (payment.Session, error) {
	return f.verifyFn(ctx, sessionID)
}

func (f *fakeCheckout) Reconcile(ctx context.Context, s payment.Session) (checkout.Result, error) {
	return f.reconcileFn(ctx, s)
}

func (f *fakeCheckout) ReconcileSessions(ctx context.Context, ids []string) checkout.SyncSummary {
	return f.syncFn(ctx, ids)
}

type fakeParser struct {
	ev  payment.Event
	err error
	sig string
}

func (f *fakeParser) ParseEvent(payload []byte, sig string) (payment.Event, error) {
	f.sig = sig
	return f.ev, f.err
}

type fakeCarts struct {
	carts     map[int64]*cart.Cart
	addErr    error
	removeErr error
}

func (f *fakeCarts) GetCart(ctx context.Context, userID int64) (*cart.Cart, error) {
	return f.carts[userID], nil
}

func (f *fakeCarts) AddItem(ctx context.Context, userID, kitID int64, quantity int) (*cart.Cart, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	c := &cart.Cart{UserID: userID, Items: []cart.Item{{KitID: kitID, Quantity: quantity}}}
	f.carts[userID] = c
	return c, nil
}

func (f *fakeCarts) RemoveItem(ctx context.Context, userID, kitID int64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.carts, userID)
	return nil
}

type fakeOrders struct {
	orders map[int64]*order.Order
}

func (f *fakeOrders) GetByID(ctx context.Context, orderID int64) (*order.Order, error) {
	return f.orders[orderID], nil
}

func (f *fakeOrders) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	out := []order.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeEnrollments struct{ list []enrollment.Enrollment }

func (f *fakeEnrollments) ListByUser(ctx context.Context, userID int64) ([]enrollment.Enrollment, error) {
	return f.list, nil
}

type fakeStock struct{ items map[int64]int }

func (f *fakeStock) GetStock(ctx context.Context, kitID int64) (inventory.StockItem, error) {
	q, ok := f.items[kitID]
	if !ok {
		return inventory.StockItem{}, inventory.ErrNotFound
	}
	return inventory.StockItem{KitID: kitID, StockQuantity: q}, nil
}
