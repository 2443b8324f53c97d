package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compliance_notifier/internal/app"
	"compliance_notifier/internal/infra/config"
	idb "compliance_notifier/internal/infra/database"
	"compliance_notifier/internal/infra/httpapi"
	"compliance_notifier/internal/infra/logger"
	"compliance_notifier/internal/infra/notifier"
	"compliance_notifier/internal/infra/scheduler"
	"compliance_notifier/internal/infra/telegram"
)

func main() {
	fmt.Println("Compliance deadline notifier starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLog := logger.Component("main")
	mainLog.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLog.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLog.Info("Database connection established successfully.")

	// Initialize Repositories
	itemRepo := idb.NewPostgresItemRepository(db)
	auditLog := idb.NewPostgresAuditLog(db)
	operatorRepo := idb.NewPostgresOperatorRepository(db)
	mainLog.Info("Repositories initialized.")

	// Initialize outbound transports
	notifierSvc := notifier.NewService(cfg, logger.Component("notifier"))
	if cfg.ResendAPIKey == "" {
		mainLog.Warn("Email transport not configured; email sends will be skipped.")
	}
	if cfg.TwilioAccountSID == "" {
		mainLog.Warn("SMS transport not configured; SMS sends will be skipped.")
	}

	// Initialize Escalation Engine and Batch Runner
	engine := app.NewEscalationService(itemRepo, notifierSvc, auditLog, logger.Component("escalation"), cfg.AppURL)
	runner := app.NewBatchService(itemRepo, engine, logger.Component("batch"), cfg.BatchSize, cfg.RunBudget)

	// Optional operations channel
	if cfg.TelegramToken != "" {
		ops, err := telegram.NewOpsNotifier(cfg.TelegramToken, cfg.OpsChatID, logger.Component("ops"))
		if err != nil {
			mainLog.Fatalf("Could not create ops notifier: %v", err)
		}
		runner.SetOpsNotifier(ops)
		mainLog.Info("Ops summary channel initialized.")
	}

	// Optional in-process cron trigger
	runScheduler := scheduler.NewRunScheduler(runner, logger.Component("scheduler"), cfg.CronSpec, cfg.RunBudget)
	if err := runScheduler.Start(); err != nil {
		mainLog.Fatalf("Could not start cron trigger: %v", err)
	}

	// HTTP trigger endpoint
	apiServer := httpapi.NewServer(cfg, runner, operatorRepo, db, logger.Component("httpapi"))
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiServer.Handler(),
	}
	go func() {
		mainLog.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLog.Info("Shutting down application...")
	runScheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLog.Errorf("HTTP server shutdown: %v", err)
	}
	mainLog.Info("Application shut down gracefully.")
}
