package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"moonbounce/internal/agreement"
	"moonbounce/internal/commons"
	"moonbounce/internal/config"
	"moonbounce/internal/infrastructure/logger"
	"moonbounce/internal/infrastructure/mysql"
	"moonbounce/internal/mailer"
	"moonbounce/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := commons.LoadConfigFile(path, cfg); err != nil {
			log.Fatalf("loading config file: %v", err)
		}
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	sender := mailer.NewSMTPSender(cfg.Mail)

	agreements := agreement.NewModule(db, cfg, sender, zapLogger)

	router := server.NewRouter(agreements, zapLogger)
	srv := server.New(cfg.Server.Port, router, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go agreements.Scheduler.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
