package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/backend"
	"ledgerdash/internal/cli"
	"ledgerdash/internal/core"
	"ledgerdash/internal/export/sheets"
	"ledgerdash/internal/log"
	"ledgerdash/internal/worker"
)

const storeCheckInterval = time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	if cfg.AMQPURL == "" || !cfg.ExportEnabled() {
		logger.Error("Worker needs AMQP_URL, GOOGLE_SPREADSHEET_ID and service account credentials")
		return 1
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is private to this process; created events will not resolve")
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	be, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error())
		return 1
	}
	defer be.Cleanup()

	exporter, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, sheets.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err.Error())
		return 1
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		return 1
	}
	defer client.Close()

	w := worker.NewExportWorker(be.Store, exporter, core.ViewOptions{IncludeConfidential: cfg.DefaultIncludeConfidential}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return client.ConsumeWithReconnect(gctx, w.HandleEvent)
	})
	g.Go(func() error {
		return watchStore(gctx, be, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		return 1
	}
	logger.Info("Worker shutdown complete")
	return 0
}

// watchStore pings the store so an unreachable database shows up in the
// logs before events start failing.
func watchStore(ctx context.Context, be *backend.Result, logger *log.Logger) error {
	ticker := time.NewTicker(storeCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if be.Ready == nil {
				continue
			}
			if err := be.Ready(ctx); err != nil {
				logger.WarnContext(ctx, "Store health check failed", log.FieldError, err.Error())
			}
		}
	}
}
