package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Solana   SolanaConfig   `yaml:"solana"`
	Program  ProgramConfig  `yaml:"program"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Prover   ProverConfig   `yaml:"prover"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Transfer TransferConfig `yaml:"transfer"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	MetricsAllowedIPs []string `yaml:"metricsAllowedIPs"` // loopback is always allowed
}

// LogConfig logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DatabaseConfig Database configuration; an empty DSN keeps transfer
// checkpoints in memory.
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS event publishing; an empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"` // seconds
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// SolanaConfig RPC transport configuration
type SolanaConfig struct {
	RPCURL            string  `yaml:"rpcUrl"`
	TimeoutMs         int     `yaml:"timeoutMs"`
	MaxRetries        int     `yaml:"maxRetries"`
	BaseDelayMs       int     `yaml:"baseDelayMs"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"` // 0 = unlimited
	Commitment        string  `yaml:"commitment"`
	ConfirmTimeoutSec int     `yaml:"confirmTimeoutSec"`
}

// ProgramConfig shielded pool program accounts
type ProgramConfig struct {
	ProgramID        string `yaml:"programId"`
	FeeRecipient     string `yaml:"feeRecipient"`
	PDACacheSize     int    `yaml:"pdaCacheSize"`
	ComputeUnitLimit uint32 `yaml:"computeUnitLimit"`
}

// IndexerConfig indexer / relayer service
type IndexerConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	Timeout  int    `yaml:"timeout"` // seconds
	PageSize int    `yaml:"pageSize"`
}

// ProverConfig remote proving service
type ProverConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Timeout int    `yaml:"timeout"` // seconds
}

// WalletConfig signing wallet
type WalletConfig struct {
	KeypairPath string `yaml:"keypairPath"`
}

// TransferConfig private transfer tuning
type TransferConfig struct {
	SafetyMargin             float64 `yaml:"safetyMargin"`
	MinWithdrawalLamports    uint64  `yaml:"minWithdrawalLamports"`
	SettleDelayMs            int     `yaml:"settleDelayMs"`
	SettlePollIntervalMs     int     `yaml:"settlePollIntervalMs"` // 0 = fixed delay only
	SettleTimeoutMs          int     `yaml:"settleTimeoutMs"`
	FallbackFeeRate          float64 `yaml:"fallbackFeeRate"`
	FallbackFixedFeeLamports uint64  `yaml:"fallbackFixedFeeLamports"`
}

// AuthConfig operator API authentication
type AuthConfig struct {
	JWTSecret     string `yaml:"jwtSecret"`
	TokenTTLHours int    `yaml:"tokenTtlHours"`
}

var AppConfig *Config

// Default returns a configuration with every tunable set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8090},
		Log:    LogConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		NATS: NATSConfig{Timeout: 10, SubjectPrefix: "shield.transfers"},
		Solana: SolanaConfig{
			RPCURL:            "https://api.mainnet-beta.solana.com",
			TimeoutMs:         20000,
			MaxRetries:        5,
			BaseDelayMs:       350,
			Commitment:        "confirmed",
			ConfirmTimeoutSec: 60,
		},
		Program: ProgramConfig{
			ProgramID:        "9fhQBbumKEFuXtMBDw8AaQyAjCorLGJQiS3skWZdQyQD",
			PDACacheSize:     1024,
			ComputeUnitLimit: 1_000_000,
		},
		Indexer: IndexerConfig{BaseURL: "http://localhost:3000", Timeout: 30, PageSize: 20000},
		Prover:  ProverConfig{BaseURL: "http://localhost:18081", Timeout: 600},
		Transfer: TransferConfig{
			SafetyMargin:             0.02,
			MinWithdrawalLamports:    10_000_000,
			SettleDelayMs:            8000,
			SettlePollIntervalMs:     2000,
			SettleTimeoutMs:          60000,
			FallbackFeeRate:          0.01,
			FallbackFixedFeeLamports: 100_000,
		},
		Auth: AuthConfig{TokenTTLHours: 24},
	}
}

// LoadConfig Load configuration file
func LoadConfig(configPath string) error {
	// if configuration file path empty, use default path
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return err
	}
	fmt.Printf("✅ [%s] Loading configuration from config file: %s\n", time.Now().Format("2006-01-02 15:04:05"), configPath)

	overrideFromEnv(config)

	fmt.Printf("📋 [Config] RPC=%s timeout=%dms retries=%d, indexer=%s, prover=%s\n",
		config.Solana.RPCURL, config.Solana.TimeoutMs, config.Solana.MaxRetries,
		config.Indexer.BaseURL, config.Prover.BaseURL)

	AppConfig = config
	return nil
}

// Parse decodes YAML on top of Default().
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// overrideFromEnv Override configuration
func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}

	// server configuration
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}

	// RPC transport
	if rpcURL := os.Getenv("SOLANA_RPC_URL"); rpcURL != "" {
		config.Solana.RPCURL = rpcURL
	}
	if v := os.Getenv("RPC_TIMEOUT_MS"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			config.Solana.TimeoutMs = t
		}
	}
	if v := os.Getenv("RPC_MAX_RETRIES"); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			config.Solana.MaxRetries = r
		}
	}
	if v := os.Getenv("RPC_BASE_DELAY_MS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			config.Solana.BaseDelayMs = d
		}
	}

	if indexer := os.Getenv("INDEXER_BASE_URL"); indexer != "" {
		config.Indexer.BaseURL = indexer
	}
	if prover := os.Getenv("PROVER_BASE_URL"); prover != "" {
		config.Prover.BaseURL = prover
	}
	if programID := os.Getenv("PROGRAM_ID"); programID != "" {
		config.Program.ProgramID = programID
	}
	if keypair := os.Getenv("WALLET_KEYPAIR_PATH"); keypair != "" {
		config.Wallet.KeypairPath = keypair
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
}

// GetIndexerURL Get indexer service URL
func GetIndexerURL() string {
	if AppConfig != nil && AppConfig.Indexer.BaseURL != "" {
		return AppConfig.Indexer.BaseURL
	}
	if indexerURL := os.Getenv("INDEXER_BASE_URL"); indexerURL != "" {
		return indexerURL
	}
	return Default().Indexer.BaseURL
}

// GetProverURL Get prover service URL
func GetProverURL() string {
	if AppConfig != nil && AppConfig.Prover.BaseURL != "" {
		return AppConfig.Prover.BaseURL
	}
	if proverURL := os.Getenv("PROVER_BASE_URL"); proverURL != "" {
		return proverURL
	}
	if os.Getenv("GIN_MODE") == "release" {
		return "http://shield-prover:18081"
	}
	return Default().Prover.BaseURL
}
