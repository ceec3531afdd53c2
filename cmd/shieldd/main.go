package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"shield-backend/internal/app"
	"shield-backend/internal/config"
	"shield-backend/internal/router"
	"shield-backend/internal/wallet"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default config.yaml)")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig
	logger := app.NewLogger(cfg.Log)

	if cfg.Wallet.KeypairPath == "" {
		log.Fatal("wallet.keypairPath is required")
	}
	w, err := wallet.LoadKeypairFile(cfg.Wallet.KeypairPath)
	if err != nil {
		log.Fatalf("Failed to load wallet: %v", err)
	}
	logger.WithField("wallet", w.PublicKey().String()).Info("[Main] wallet loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.InitializeContainer(ctx, cfg, w, logger)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer container.Cleanup()

	if recoverable, err := container.TransferService.ListRecoverable(ctx); err == nil && len(recoverable) > 0 {
		logger.WithField("count", len(recoverable)).Warn("[Main] transfers awaiting withdrawal; resume them via POST /api/transfers/:id/resume")
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupRouter(container.TransferService, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("[Main] operator API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("[Main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("[Main] graceful shutdown failed")
	}
}
