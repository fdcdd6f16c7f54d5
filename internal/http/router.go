package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/middleware"
)

type RouterConfig struct {
	JWTSecret        string
	CORSAllowOrigins []string
	RequestTimeout   time.Duration
	SyncTimeout      time.Duration
	Metrics          *metrics.ServerMetrics
	// Gatherer backs GET /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recover(logger))
	r.Use(cfg.Metrics.Middleware)
	r.Use(middleware.CORS(cfg.CORSAllowOrigins))

	r.Get("/health", h.Health)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(withTimeout(cfg.RequestTimeout))

		r.Get("/kits/{kitId}/stock", h.GetKitStock)

		// Authenticated by the Stripe-Signature header instead of a user.
		r.Post("/payment/webhook", h.PaymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.JWTSecret))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/items", h.AddCartItem)
				r.Delete("/items/{kitId}", h.RemoveCartItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/checkout", h.Checkout)
				r.Get("/", h.ListOrders)
				r.Get("/{orderId}", h.GetOrder)
			})

			r.Get("/enrollments", h.ListEnrollments)

			r.Route("/payment", func(r chi.Router) {
				r.Post("/create-checkout-session", h.CreateCheckoutSession)
				r.Get("/verify-session", h.VerifySession)
			})
		})
	})

	// The backfill fetches one session after another, so it gets its own budget.
	r.Group(func(r chi.Router) {
		r.Use(withTimeout(cfg.SyncTimeout))
		r.Use(middleware.Authenticate(cfg.JWTSecret))
		r.Use(middleware.RequireAdmin)

		r.Post("/admin/sync-historical-payments", h.SyncHistoricalPayments)
	})

	return r
}

func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return chimw.Timeout(d)
}
