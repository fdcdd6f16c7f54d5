package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/enrollment"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/testutil"
)

const (
	testWebhookSecret = "whsec_integration"
	testStripeKey     = "sk_test_integration"
)

type app struct {
	pool        *pgxpool.Pool
	seed        *testutil.Seeder
	carts       *cart.PostgresRepository
	orders      *order.PostgresRepository
	enrollments *enrollment.PostgresRepository
	kits        *inventory.PostgresRepository
	gateway     *payment.StripeGateway
	svc         *checkout.Service
	logger      *slog.Logger
}

func newApp(t *testing.T, publisher events.OrderPublisher) *app {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}

	return newAppWithPool(t, testutil.StartPostgres(t), publisher)
}

func newAppWithPool(t *testing.T, pool *pgxpool.Pool, publisher events.OrderPublisher) *app {
	t.Helper()
	a := &app{
		pool:        pool,
		seed:        testutil.NewSeeder(t, pool),
		carts:       cart.NewPostgresRepository(pool),
		orders:      order.NewPostgresRepository(pool),
		enrollments: enrollment.NewPostgresRepository(pool),
		kits:        inventory.NewPostgresRepository(pool),
		gateway:     payment.NewStripeGateway(payment.StripeConfig{SecretKey: testStripeKey, WebhookSecret: testWebhookSecret}),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	a.svc = checkout.NewService(checkout.Deps{
		DB:          pool,
		Carts:       a.carts,
		Kits:        a.kits,
		Orders:      a.orders,
		Enrollments: a.enrollments,
		Ledger:      dedup.NewPostgresRepository(),
		Gateway:     a.gateway,
		Publisher:   publisher,
		Logger:      a.logger,
	})
	return a
}

func (a *app) addToCart(t *testing.T, userID, kitID int64, qty int) {
	t.Helper()
	_, err := a.carts.AddItem(context.Background(), userID, kitID, qty)
	require.NoError(t, err)
}

func paidSession(id string, userID string, cents int64, addr string) payment.Session {
	md := map[string]string{}
	if userID != "" {
		md[payment.MetadataUserID] = userID
	}
	if addr != "" {
		md[payment.MetadataShippingAddress] = addr
	}
	return payment.Session{
		ID:            id,
		PaymentStatus: payment.StatusPaid,
		Status:        "complete",
		AmountTotal:   cents,
		Currency:      "usd",
		Metadata:      md,
	}
}

func courseRef(id int64) *int64 { return &id }
