package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shield-backend/internal/clients"
	"shield-backend/internal/config"
	"shield-backend/internal/db"
	"shield-backend/internal/encryption"
	"shield-backend/internal/events"
	"shield-backend/internal/pda"
	"shield-backend/internal/repository"
	"shield-backend/internal/services"
	"shield-backend/internal/solana"
	"shield-backend/internal/wallet"
)

// ServiceContainer holds the wired services of one signing session.
type ServiceContainer struct {
	Config *config.Config
	Logger *logrus.Logger

	// Database (nil when transfer records are kept in memory)
	DB           *gorm.DB
	TransferRepo repository.TransferRepository

	// Transport clients
	RPC        *clients.RPCClient
	Indexer    *clients.IndexerClient
	Prover     *clients.ProverClient
	NATSClient *clients.NATSClient

	// Session
	Wallet     wallet.Wallet
	Encryption *encryption.Service
	Deriver    *pda.Deriver

	// Core Services
	NoteService     *services.NoteService
	PoolService     *services.PoolService
	TransferService *services.TransferService
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// InitializeContainer wires every service for w. Session keys are derived
// once here by asking the wallet to sign the sign-in message.
func InitializeContainer(ctx context.Context, cfg *config.Config, w wallet.Wallet, logger *logrus.Logger) (*ServiceContainer, error) {
	log.Println("🚀 Initializing Service Container...")
	if logger == nil {
		logger = NewLogger(cfg.Log)
	}

	c := &ServiceContainer{
		Config: cfg,
		Logger: logger,
		Wallet: w,
	}

	// 1. Persistence
	if err := c.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	// 2. Session keys and program addresses
	if err := c.initSession(ctx); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	// 3. Core services
	if err := c.initCoreServices(); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to initialize core services: %w", err)
	}

	log.Println("✅ Service Container initialized successfully")
	return c, nil
}

// initRepositories opens postgres when a DSN is configured and falls back to
// in-memory transfer records otherwise.
func (c *ServiceContainer) initRepositories() error {
	if c.Config.Database.DSN == "" {
		c.Logger.Warn("[Container] no database DSN configured, transfer records are kept in memory")
		c.TransferRepo = repository.NewMemoryTransferRepository()
		return nil
	}
	database, err := db.InitDB(c.Config.Database.DSN)
	if err != nil {
		return err
	}
	c.DB = database
	c.TransferRepo = repository.NewTransferRepository(database)
	return nil
}

func (c *ServiceContainer) initSession(ctx context.Context) error {
	c.Encryption = encryption.NewService(c.Logger)
	if err := c.Encryption.DeriveFromSigner(ctx, c.Wallet); err != nil {
		return err
	}

	programID, err := solana.PublicKeyFromBase58(c.Config.Program.ProgramID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}
	c.Deriver, err = pda.NewDeriver(programID, c.Config.Program.PDACacheSize)
	return err
}

func (c *ServiceContainer) initCoreServices() error {
	cfg := c.Config
	c.RPC = clients.NewRPCClient(cfg.Solana, c.Logger)
	c.Indexer = clients.NewIndexerClient(cfg.Indexer, c.Logger)
	c.Prover = clients.NewProverClient(cfg.Prover, c.Logger)

	c.NoteService = services.NewNoteService(c.Indexer, c.RPC, c.Encryption, c.Deriver, cfg.Indexer.PageSize, c.Logger)

	pool, err := services.NewPoolService(services.PoolDeps{
		Notes:   c.NoteService,
		Indexer: c.Indexer,
		Prover:  c.Prover,
		Chain:   c.RPC,
		Wallet:  c.Wallet,
		Enc:     c.Encryption,
		Deriver: c.Deriver,
	}, cfg.Program, cfg.Solana, cfg.Transfer, c.Logger)
	if err != nil {
		return err
	}
	c.PoolService = pool

	c.TransferService = services.NewTransferService(pool, c.NoteService, c.Indexer, c.TransferRepo, c.initEventPublisher(), cfg.Transfer, c.Logger)
	return nil
}

// initEventPublisher connects to NATS when configured. Events are optional:
// a failed connection degrades to a no-op publisher.
func (c *ServiceContainer) initEventPublisher() events.Publisher {
	if c.Config.NATS.URL == "" {
		return events.NoopPublisher{}
	}
	natsClient, err := clients.NewNATSClient(c.Config.NATS, c.Logger)
	if err != nil {
		log.Printf("⚠️ Event publishing disabled: %v", err)
		return events.NoopPublisher{}
	}
	c.NATSClient = natsClient
	log.Printf("✅ NATS client connected: %s", c.Config.NATS.URL)
	return natsClient
}

// Cleanup releases connections.
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")

	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if c.Encryption != nil {
		c.Encryption.Reset()
	}
}
