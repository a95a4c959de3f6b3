package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"soci/internal/amqp"
	"soci/internal/cli"
	"soci/internal/services"
	"soci/internal/sheets"
	gsheet "soci/internal/sheets/google"
	mem "soci/internal/sheets/memory"
	"soci/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("sync-worker")

	logger.Info("Starting soci-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The ledger target is Google Sheets when configured, otherwise an
	// in-memory store so the sync pipeline stays runnable in development.
	var ledger sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Google Sheets ledger initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		ledger = mem.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID configured, exports go to an in-memory ledger")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncWorker := worker.NewSyncWorker(repo, ledger, cfg.SyncBatchSize)

	// Recover payments stuck from a previous run before taking new work.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - continue with normal operation
	}

	// Safety net: poll for payments whose messages never arrived.
	syncProcessor := services.NewSyncProcessor(repo, ledger, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})
	if err := syncProcessor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Fast path: export as soon as the API publishes a payment.
	g.Go(func() error {
		handle := func(msg *amqp.PaymentSyncMessage) error {
			return syncWorker.HandleSyncMessage(gctx, msg)
		}
		return amqpClient.ConsumePaymentSync(gctx, handle)
	})

	// Stop the poller once the group winds down.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return syncProcessor.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
