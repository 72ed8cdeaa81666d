package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mateoquintana/mercaderia-backend/api/routes"
	"github.com/mateoquintana/mercaderia-backend/internal/cart"
	"github.com/mateoquintana/mercaderia-backend/internal/offers"
	"github.com/mateoquintana/mercaderia-backend/internal/orders"
	"github.com/mateoquintana/mercaderia-backend/internal/payments"
	"github.com/mateoquintana/mercaderia-backend/internal/payouts"
	"github.com/mateoquintana/mercaderia-backend/pkg/config"
	"github.com/mateoquintana/mercaderia-backend/pkg/db"
	"github.com/mateoquintana/mercaderia-backend/pkg/gateway"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
	"github.com/mateoquintana/mercaderia-backend/pkg/metrics"
	"github.com/mateoquintana/mercaderia-backend/pkg/migrate"
	"github.com/mateoquintana/mercaderia-backend/pkg/outbox"
	"github.com/mateoquintana/mercaderia-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.Open(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payment gateway", err)
		os.Exit(1)
	}
	if gatewayClient.DevMode() {
		logg.Warn(context.Background(), "gateway signing secret unset, signature verification disabled")
	}

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	ordersRepo := orders.NewRepository(dbClient.DB())
	offersRepo := offers.NewRepository(dbClient.DB())
	ledger := offers.NewLedger()
	publisher := outbox.NewPublisher()

	ordersSvc := orders.NewService(dbClient, ordersRepo, offersRepo, ledger, publisher, gatewayClient, orderMetrics, logg)
	paymentsSvc := payments.NewService(
		dbClient,
		ordersRepo,
		ledger,
		cart.NewRepository(dbClient.DB()),
		publisher,
		gatewayClient,
		redisClient,
		db.DefaultRetryPolicy(),
		orderMetrics,
		logg,
	)
	payoutsSvc := payouts.NewService(dbClient, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Orders:       ordersSvc,
			Payments:     paymentsSvc,
			Payouts:      payoutsSvc,
			PromGatherer: registry,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down")
}
