package checkout

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
)

// state is everything the fake database holds. Transactions work on a copy
// and swap it in on Commit.
type state struct {
	carts       map[int64]int64 // user -> cart
	lines       map[int64][]inventory.Line
	kits        map[int64]inventory.Kit
	orders      []order.Order
	enrollments map[[2]int64]bool
	ledger      map[string]int64
	nextOrderID int64
}

func (s state) clone() state {
	c := state{
		carts:       make(map[int64]int64, len(s.carts)),
		lines:       make(map[int64][]inventory.Line, len(s.lines)),
		kits:        make(map[int64]inventory.Kit, len(s.kits)),
		orders:      append([]order.Order(nil), s.orders...),
		enrollments: make(map[[2]int64]bool, len(s.enrollments)),
		ledger:      make(map[string]int64, len(s.ledger)),
		nextOrderID: s.nextOrderID,
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]inventory.Line(nil), v...)
	}
	for k, v := range s.kits {
		c.kits[k] = v
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range s.ledger {
		c.ledger[k] = v
	}
	return c
}

type fakeStore struct {
	mu sync.Mutex
	st state

	beginErr       error
	orderInsertErr error
	decrementErr   error
	commitErr      error
	// claimLost simulates a concurrent delivery committing the same session
	// after this transaction's ledger lookup.
	claimLost bool

	txCount   int
	commits   int
	rollbacks int
}

func newFakeStore() *fakeStore {
	return &fakeStore{st: state{
		carts:       map[int64]int64{},
		lines:       map[int64][]inventory.Line{},
		kits:        map[int64]inventory.Kit{},
		enrollments: map[[2]int64]bool{},
		ledger:      map[string]int64{},
		nextOrderID: 100,
	}}
}

func (f *fakeStore) addKit(k inventory.Kit) {
	f.st.kits[k.ID] = k
}

func (f *fakeStore) addToCart(userID, kitID int64, qty int) {
	cartID, ok := f.st.carts[userID]
	if !ok {
		cartID = userID * 10
		f.st.carts[userID] = cartID
	}
	f.st.lines[cartID] = append(f.st.lines[cartID], inventory.Line{KitID: kitID, Quantity: qty})
}

func (f *fakeStore) snapshot() state {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st.clone()
}

type fakeTx struct {
	pgx.Tx
	store *fakeStore
	st    state
	done  bool
}

func (f *fakeStore) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++
	return &fakeTx{store: f, st: f.st.clone()}, nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	if tx.store.commitErr != nil {
		tx.store.rollbacks++
		return tx.store.commitErr
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.st = tx.st
	tx.store.commits++
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.store.rollbacks++
	return nil
}

func txState(tx pgx.Tx) *state {
	return &tx.(*fakeTx).st
}

func (f *fakeStore) GetCart(ctx context.Context, userID int64) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cartID, ok := f.st.carts[userID]
	if !ok {
		return nil, nil
	}
	c := &cart.Cart{ID: cartID, UserID: userID, Items: []cart.Item{}}
	for _, ln := range f.st.lines[cartID] {
		k := f.st.kits[ln.KitID]
		c.Items = append(c.Items, cart.Item{KitID: ln.KitID, KitName: k.Name, Price: k.Price, Quantity: ln.Quantity})
		c.Total = c.Total.Add(k.Price.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}
	return c, nil
}

func (f *fakeStore) LockCartWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, bool, error) {
	cartID, ok := txState(tx).carts[userID]
	return cartID, ok, nil
}

func (f *fakeStore) LinesWithTx(ctx context.Context, tx pgx.Tx, cartID int64) ([]inventory.Line, error) {
	lines := append([]inventory.Line(nil), txState(tx).lines[cartID]...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].KitID < lines[j].KitID })
	return lines, nil
}

func (f *fakeStore) ClearWithTx(ctx context.Context, tx pgx.Tx, cartID int64) error {
	delete(txState(tx).lines, cartID)
	return nil
}

func (f *fakeStore) LockWithTx(ctx context.Context, tx pgx.Tx, kitIDs []int64) (map[int64]inventory.Kit, error) {
	out := make(map[int64]inventory.Kit, len(kitIDs))
	for _, id := range kitIDs {
		if k, ok := txState(tx).kits[id]; ok {
			out[id] = k
		}
	}
	return out, nil
}

func (f *fakeStore) DecrementWithTx(ctx context.Context, tx pgx.Tx, lines []inventory.Line) error {
	if f.decrementErr != nil {
		return f.decrementErr
	}
	st := txState(tx)
	for _, ln := range lines {
		k := st.kits[ln.KitID]
		if k.StockQuantity < ln.Quantity {
			return inventory.ErrStockConflict
		}
		k.StockQuantity -= ln.Quantity
		st.kits[ln.KitID] = k
	}
	return nil
}

func (f *fakeStore) CreateWithTx(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	if f.orderInsertErr != nil {
		return f.orderInsertErr
	}
	st := txState(tx)
	st.nextOrderID++
	o.ID = st.nextOrderID
	o.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range o.Items {
		o.Items[i].ID = o.ID*10 + int64(i)
	}
	st.orders = append(st.orders, *o)
	return nil
}

func (f *fakeStore) EnsureWithTx(ctx context.Context, tx pgx.Tx, userID, courseID int64) (bool, error) {
	st := txState(tx)
	key := [2]int64{userID, courseID}
	if st.enrollments[key] {
		return false, nil
	}
	st.enrollments[key] = true
	return true, nil
}

func (f *fakeStore) FindWithTx(ctx context.Context, tx pgx.Tx, sessionID string) (int64, bool, error) {
	orderID, ok := txState(tx).ledger[sessionID]
	return orderID, ok, nil
}

func (f *fakeStore) ClaimWithTx(ctx context.Context, tx pgx.Tx, s dedup.ProcessedSession) (bool, error) {
	st := txState(tx)
	if f.claimLost {
		return false, nil
	}
	if _, ok := st.ledger[s.SessionID]; ok {
		return false, nil
	}
	st.ledger[s.SessionID] = s.OrderID
	return true, nil
}

type fakeGateway struct {
	sessions map[string]payment.Session
	created  []payment.SessionRequest
	getErr   error
}

func (g *fakeGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	g.created = append(g.created, req)
	return payment.Session{ID: "cs_new", URL: "https://pay.test/cs_new", PaymentStatus: "unpaid"}, nil
}

func (g *fakeGateway) GetSession(ctx context.Context, id string) (payment.Session, error) {
	if g.getErr != nil {
		return payment.Session{}, g.getErr
	}
	s, ok := g.sessions[id]
	if !ok {
		return payment.Session{}, payment.ErrSessionNotFound
	}
	return s, nil
}

func (g *fakeGateway) ParseEvent([]byte, string) (payment.Event, error) {
	return payment.Event{}, errors.New("not used")
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []events.OrderPlacedPayload
	metas    []events.EventMeta
	err      error
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, meta events.EventMeta, payload events.OrderPlacedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metas = append(p.metas, meta)
	p.payloads = append(p.payloads, payload)
	return p.err
}
