package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"soci/internal/amqp"
	"soci/internal/cli"
	apphttp "soci/internal/http"
	"soci/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("api")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// AMQP is optional: without it payment exports still happen, just on the
	// worker's polling schedule instead of immediately.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPReminderQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, payment sync falls back to polling", "error", err)
			amqpClient = nil
		}
	}

	memberService := services.NewMemberService(repo, amqpClient)
	ratesService := services.NewRatesService(repo)
	applicationService := services.NewApplicationService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, memberService, ratesService, applicationService)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := memberService.Close(); err != nil {
			logger.Error("Service close error", "error", err)
		}
	})

	logger.Info("Starting soci server", "port", cfg.Port, "db", cfg.SQLiteDBPath, "amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
