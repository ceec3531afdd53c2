package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"shield-backend/internal/config"
)

// ProverClient calls the remote zk proving service.
type ProverClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// TransactWitness is the circuit input for one transact proof. Field
// elements travel as decimal strings.
type TransactWitness struct {
	Root             string     `json:"root"`
	InputNullifier   []string   `json:"inputNullifier"`
	OutputCommitment []string   `json:"outputCommitment"`
	PublicAmount     string     `json:"publicAmount"`
	ExtDataHash      string     `json:"extDataHash"`
	MintAddress      string     `json:"mintAddress"`
	InAmount         []string   `json:"inAmount"`
	InPrivateKey     []string   `json:"inPrivateKey"`
	InBlinding       []string   `json:"inBlinding"`
	InPathIndices    []int64    `json:"inPathIndices"`
	InPathElements   [][]string `json:"inPathElements"`
	OutAmount        []string   `json:"outAmount"`
	OutBlinding      []string   `json:"outBlinding"`
	OutPubkey        []string   `json:"outPubkey"`
}

// ProofResponse POST /api/proof/transact
type ProofResponse struct {
	RequestID      string  `json:"request_id"`
	Success        bool    `json:"success"`
	ProofA         string  `json:"proof_a"`
	ProofB         string  `json:"proof_b"`
	ProofC         string  `json:"proof_c"`
	ErrorMessage   *string `json:"error_message"`
	GenerationTime *string `json:"generation_time"`
}

// Components decodes the hex proof points into their fixed widths.
func (r *ProofResponse) Components() (a [64]byte, b [128]byte, c [64]byte, err error) {
	if err = decodeFixed(r.ProofA, a[:]); err != nil {
		return a, b, c, fmt.Errorf("proof_a: %w", err)
	}
	if err = decodeFixed(r.ProofB, b[:]); err != nil {
		return a, b, c, fmt.Errorf("proof_b: %w", err)
	}
	if err = decodeFixed(r.ProofC, c[:]); err != nil {
		return a, b, c, fmt.Errorf("proof_c: %w", err)
	}
	return a, b, c, nil
}

func decodeFixed(s string, dst []byte) error {
	raw := common.FromHex(s)
	if len(raw) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// NewProverClient Create a new prover client
func NewProverClient(cfg config.ProverConfig, logger *logrus.Logger) *ProverClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	// proving is slow; default 10 minutes
	timeout := 600 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	logger.WithFields(logrus.Fields{
		"base_url": cfg.BaseURL,
		"timeout":  timeout.String(),
	}).Debug("[Prover] client created")

	return &ProverClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Prove requests a transact proof for witness.
func (c *ProverClient) Prove(ctx context.Context, witness *TransactWitness) (*ProofResponse, error) {
	jsonData, err := json.Marshal(witness)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/proof/transact", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("[Prover] proof request failed")
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ProofResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		msg := "unknown error"
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		return nil, fmt.Errorf("prover returned failure: %s", msg)
	}

	c.logger.WithFields(logrus.Fields{
		"request_id": result.RequestID,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("[Prover] proof generated")
	return &result, nil
}
