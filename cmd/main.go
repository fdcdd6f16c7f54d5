package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cache"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/enrollment"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/educomm-service-go/internal/sequence"
)

const serviceName = "educomm-service"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", serviceName)
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Error("run migrations", "error", err)
			os.Exit(1)
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("connect db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	cartRepo := cart.NewPostgresRepository(pool)
	orderRepo := order.NewPostgresRepository(pool)
	kitRepo := inventory.NewPostgresRepository(pool)
	enrollmentRepo := enrollment.NewPostgresRepository(pool)

	// RabbitMQ
	var publisher events.OrderPublisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.DialConfig(cfg.RabbitMQURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
		if err != nil {
			logger.Error("dial rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, sequence.NewPostgresRepository(pool), events.PublisherOptions{})
		if err != nil {
			logger.Error("create publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		publisher = pub
	} else {
		logger.Warn("RABBITMQ_URL not set; OrderPlaced events are not published")
	}

	// Payments
	var gateway payment.Gateway = payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.PaymentCurrency,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	})
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, serviceName)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unavailable; session lookups go to the gateway", "error", err)
		} else {
			gateway = payment.NewCachedGateway(gateway, rc, cfg.SessionCacheTTL, logger)
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics("service", reg)

	svc := checkout.NewService(checkout.Deps{
		DB:            pool,
		Carts:         cartRepo,
		Kits:          kitRepo,
		Orders:        orderRepo,
		Enrollments:   enrollmentRepo,
		Ledger:        dedup.NewPostgresRepository(),
		Gateway:       gateway,
		Publisher:     publisher,
		Metrics:       serverMetrics,
		Logger:        logger,
		CorrelationID: middleware.GetCorrelationID,
	})

	// HTTP
	handler := httpapi.NewHandler(httpapi.Deps{
		Checkout:    svc,
		Events:      gateway,
		Carts:       cartRepo,
		Orders:      orderRepo,
		Enrollments: enrollmentRepo,
		Stock:       kitRepo,
		Logger:      logger,
	})
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		JWTSecret:        cfg.JWTSecret,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		RequestTimeout:   cfg.RequestTimeout,
		SyncTimeout:      cfg.SyncTimeout,
		Metrics:          serverMetrics,
		Gatherer:         reg,
		Logger:           logger,
	})
	if cfg.JWTSecret == "" {
		logger.Warn("AUTH_TRUST_HEADERS set; trusting X-User-Id and X-User-Role headers")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Response deadlines come from the router's per-route timeouts.
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}
