package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/cache"
	"ledgerdash/internal/cli"
	apphttp "ledgerdash/internal/http"
	"ledgerdash/internal/log"
	"ledgerdash/internal/middleware/ratelimit"
	"ledgerdash/internal/services"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code once every deferred cleanup has run.
func run() int {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext()
	defer stop()

	be, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error())
		return 1
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	// Events are optional: without a broker nothing is exported.
	var publisher amqp.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err.Error())
		} else {
			publisher = client
			defer client.Close()
		}
	}

	dash := services.NewDashboardService(be.Store, services.DashboardConfig{
		PageSizeMax:          cfg.PageSizeMax,
		CacheSize:            cfg.CacheSize,
		CacheTTL:             cfg.CacheTTL,
		MinSegmentPercentage: cfg.MinSegmentPercentage,
		OtherDisplayFloor:    cfg.OtherDisplayFloor,
	}, logger)
	ledgerSvc := services.NewLedgerService(be.Store, publisher, dash, logger)

	caches := cache.NewManager(logger)
	caches.Register(dash.PageCache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                       ":" + cfg.Port,
		DefaultIncludeConfidential: cfg.DefaultIncludeConfidential,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Ready: be.Ready,
	}, ledgerSvc, dash, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledgerdash server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		return 1
	}
	logger.Info("Server stopped gracefully")
	return 0
}
