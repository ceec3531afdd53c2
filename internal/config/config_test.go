package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := Parse([]byte(`
solana:
  rpcUrl: http://rpc.local
  maxRetries: 2
transfer:
  minWithdrawalLamports: 5000000
`))
	require.NoError(t, err)

	assert.Equal(t, "http://rpc.local", cfg.Solana.RPCURL)
	assert.Equal(t, 2, cfg.Solana.MaxRetries)
	assert.Equal(t, 20000, cfg.Solana.TimeoutMs)
	assert.Equal(t, 350, cfg.Solana.BaseDelayMs)
	assert.Equal(t, uint64(5_000_000), cfg.Transfer.MinWithdrawalLamports)
	assert.InDelta(t, 0.02, cfg.Transfer.SafetyMargin, 1e-9)
	assert.Equal(t, uint64(100_000), cfg.Transfer.FallbackFixedFeeLamports)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("solana: [unterminated"))
	require.Error(t, err)
}

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\nsolana:\n  timeoutMs: 1000\n"), 0o600))

	t.Setenv("SOLANA_RPC_URL", "http://env-rpc")
	t.Setenv("RPC_TIMEOUT_MS", "1500")
	t.Setenv("RPC_MAX_RETRIES", "not-a-number")
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("JWT_SECRET", "s3cret")

	prev := AppConfig
	t.Cleanup(func() { AppConfig = prev })

	require.NoError(t, LoadConfig(path))
	require.NotNil(t, AppConfig)
	assert.Equal(t, "http://env-rpc", AppConfig.Solana.RPCURL)
	assert.Equal(t, 1500, AppConfig.Solana.TimeoutMs)
	assert.Equal(t, 5, AppConfig.Solana.MaxRetries, "unparsable override is ignored")
	assert.Equal(t, 9100, AppConfig.Server.Port)
	assert.Equal(t, "s3cret", AppConfig.Auth.JWTSecret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	require.Error(t, LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestServiceURLHelpers(t *testing.T) {
	prev := AppConfig
	t.Cleanup(func() { AppConfig = prev })

	AppConfig = nil
	t.Setenv("INDEXER_BASE_URL", "")
	t.Setenv("PROVER_BASE_URL", "")
	t.Setenv("GIN_MODE", "")
	assert.Equal(t, Default().Indexer.BaseURL, GetIndexerURL())
	assert.Equal(t, Default().Prover.BaseURL, GetProverURL())

	AppConfig = Default()
	AppConfig.Indexer.BaseURL = "http://indexer"
	assert.Equal(t, "http://indexer", GetIndexerURL())
}
