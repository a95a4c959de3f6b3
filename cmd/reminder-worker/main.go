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
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("reminder-worker")

	logger.Info("Starting reminder-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	processor, err := services.NewReminderProcessor(repo, amqpClient, services.ReminderProcessorConfig{
		Interval:       cfg.ReminderInterval,
		Frequency:      cfg.ReminderFrequency,
		MinDaysOverdue: cfg.ReminderMinDays,
	})
	if err != nil {
		logger.Error("Failed to create reminder processor", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start reminder processor", "error", err)
		os.Exit(1)
	}
	logger.Info("Reminder processor started",
		"interval", cfg.ReminderInterval.String(),
		"frequency", cfg.ReminderFrequency,
		"min_days", cfg.ReminderMinDays)

	g, gctx := errgroup.WithContext(ctx)

	// Log delivered reminders so operators can audit what went out. An actual
	// mail or chat integration would consume this queue instead.
	g.Go(func() error {
		handle := func(msg *amqp.ReminderMessage) error {
			logger.Info("Reminder delivered",
				"member_number", msg.MemberNumber,
				"balance_cents", msg.BalanceCents,
				"days_since_payment", msg.DaysSincePayment)
			return nil
		}
		return amqpClient.ConsumeReminders(gctx, handle)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return processor.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Reminder worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Reminder worker shutdown complete")
}
