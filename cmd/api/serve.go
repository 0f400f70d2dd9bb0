package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NaikDeepak/village-mandi-sub001/internal/app"
	"github.com/NaikDeepak/village-mandi-sub001/internal/auth"
	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/config"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/events"
	"github.com/NaikDeepak/village-mandi-sub001/internal/metrics"
	"github.com/NaikDeepak/village-mandi-sub001/internal/storage/postgres"
	transporthttp "github.com/NaikDeepak/village-mandi-sub001/internal/transport/http"
	"github.com/NaikDeepak/village-mandi-sub001/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the cutoff sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if err := cfg.Validate(); err != nil {
				logger.Error("invalid configuration", zap.Error(err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := migrate(startupCtx, pool, logger); err != nil {
		return err
	}

	clk := clock.NewSystem()
	reg := metrics.NewRegistry()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, clk)

	var identity app.IdentityVerifier
	if cfg.Firebase.Enabled() {
		verifier, err := auth.NewFirebaseVerifier(startupCtx, cfg.Firebase.ServiceAccountJSON)
		if err != nil {
			return err
		}
		identity = verifier
	} else {
		logger.Warn("FIREBASE_SERVICE_ACCOUNT_JSON not set, firebase sign-in disabled")
	}

	var publisher events.Publisher
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn("close kafka publisher", zap.Error(err))
			}
		}()
		publisher = kp
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	svcOpts := []app.Option{app.WithLogger(logger), app.WithPublisher(publisher), app.WithMetrics(reg)}
	authSvc := app.NewAuthService(postgres.NewUserRepository(pool), tokens, identity, clk)
	catalogSvc := app.NewCatalogService(postgres.NewCatalogRepository(pool), clk)
	batchSvc := app.NewBatchService(postgres.NewBatchRepository(pool), clk, cfg.Batches.EditAfterCutoffAllowed, svcOpts...)
	orderRepo := postgres.NewOrderRepository(pool)
	orderSvc := app.NewOrderService(orderRepo, clk, svcOpts...)
	paymentSvc := app.NewPaymentService(orderRepo, clk, svcOpts...)

	if err := seedAdmin(startupCtx, authSvc, cfg, logger); err != nil {
		return err
	}

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Version:            cfg.Version,
		Rules:              domain.NewSystemRules(cfg.Batches.EditAfterCutoffAllowed),
		CORSOrigins:        cfg.CORSOrigins,
		CookieSecure:       cfg.Auth.CookieSecure,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		Auth:               authSvc,
		Catalog:            catalogSvc,
		Batches:            batchSvc,
		Orders:             orderSvc,
		Payments:           paymentSvc,
		Tokens:             tokens,
		Clock:              clk,
		Logger:             logger,
		Metrics:            reg,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweeper := worker.NewCutoffSweeper(batchSvc, cfg.Batches.SweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
