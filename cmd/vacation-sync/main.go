package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"vacation-sync/internal/config"
	"vacation-sync/internal/handler"
	"vacation-sync/internal/models"
	"vacation-sync/internal/repository"
	"vacation-sync/internal/server"
	"vacation-sync/internal/service"
	"vacation-sync/pkg/telegram"

	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env", ".env", "path to the .env file")
	force := flag.Bool("force", false, "download and reprocess even when the spreadsheet is unchanged")
	daemon := flag.Bool("daemon", false, "keep running: scheduler, telegram bot and HTTP server")
	flag.Parse()

	logrus.Info("Initializing config...")
	provider := config.FileProvider{EnvFile: *envFile}
	cfg, err := provider.Current()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	logrus.SetLevel(cfg.Level())
	logrus.Info("Config initialized...")

	if cfg.DBDriver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o755); err != nil {
			logrus.WithError(err).Fatal("Failed to create database directory")
		}
	}

	db, err := repository.Open(cfg.DBDriver, cfg.DatabaseURL, cfg.Level() < logrus.DebugLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() {
		if err := repository.Close(db); err != nil {
			logrus.Infof("Error closing database: %v", err)
		}
	}()

	vacationRepo, err := repository.NewGormVacationRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create vacation repository")
	}
	tabRepo, err := repository.NewGormTabSummaryRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create tab summary repository")
	}
	auditRepo, err := repository.NewGormSyncAuditRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create sync audit repository")
	}
	lockRepo, err := repository.NewGormSyncLockRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create sync lock repository")
	}

	syncService := service.NewSyncService(
		provider,
		repository.NewGormSyncStore(db, vacationRepo, tabRepo),
		auditRepo,
		lockRepo,
		&http.Client{},
	)
	reportService := service.NewReportService(vacationRepo, auditRepo)

	var client *telegram.Client
	if cfg.TelegramEnabled() {
		client, err = telegram.NewClient(cfg.TelegramToken, cfg.Level() >= logrus.TraceLevel)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create Telegram client")
		}
		logrus.Infof("Authorized on account %s", client.Bot.Self.UserName)
		syncService.SetNotifier(service.NewTelegramNotifier(client, cfg.TelegramChatID))
	}

	if !*daemon {
		res := syncService.Run(context.Background(), service.RunOptions{Force: *force, Trigger: models.TriggerCLI})
		if res.Outcome == models.SyncError {
			logrus.Errorf("Sync failed: %s", res.Message)
			_ = repository.Close(db)
			os.Exit(1)
		}
		logrus.Infof("Sync %s: %s", res.Outcome, res.Message)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier service.Notifier
	if client != nil {
		notifier = service.NewTelegramNotifier(client, cfg.TelegramChatID)
	}

	scheduler, err := service.NewScheduler(cfg, syncService, reportService, auditRepo, notifier)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create scheduler")
	}
	scheduler.Start()

	var wg sync.WaitGroup

	if client != nil {
		botHandler := handler.NewHandler(client, syncService, reportService, cfg.TelegramChatID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			botHandler.HandleUpdates(client.Updates())
		}()
		go func() {
			<-ctx.Done()
			client.Stop()
		}()
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(cfg.HTTPAddr, syncService, auditRepo)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				logrus.WithError(err).Error("HTTP server failed")
				stop()
			}
		}()
	}

	logrus.Info("Vacation sync started. Press Ctrl+C to stop.")
	<-ctx.Done()

	<-scheduler.Stop().Done()
	wg.Wait()
	logrus.Info("Vacation sync stopped gracefully")
}
