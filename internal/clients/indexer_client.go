package clients

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"shield-backend/internal/config"
	"shield-backend/internal/solana"
)

const lamportsPerSOL = 1_000_000_000

// IndexerClient talks to the pool indexer, which also relays withdrawals.
type IndexerClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// MerkleRoot GET /merkle/root
type MerkleRoot struct {
	Root      string `json:"root"`
	NextIndex int64  `json:"nextIndex"`
}

// MerkleProof GET /merkle/proof/{commitment}
type MerkleProof struct {
	PathElements []string `json:"pathElements"`
	PathIndices  []int    `json:"pathIndices"`
}

// EncryptedOutputsPage GET /utxos/range
type EncryptedOutputsPage struct {
	EncryptedOutputs []string `json:"encrypted_outputs"`
	HasMore          bool     `json:"hasMore"`
	Total            int64    `json:"total"`
}

// Decode returns the hex-decoded ciphertexts; entries that are not valid
// hex come back as nil so indexes stay aligned.
func (p *EncryptedOutputsPage) Decode() [][]byte {
	out := make([][]byte, len(p.EncryptedOutputs))
	for i, s := range p.EncryptedOutputs {
		raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err == nil {
			out[i] = raw
		}
	}
	return out
}

// FeeConfig GET /config. The rent fee is in native units.
type FeeConfig struct {
	WithdrawFeeRate float64 `json:"withdraw_fee_rate"`
	WithdrawRentFee float64 `json:"withdraw_rent_fee"`
}

// FixedFeeLamports converts the rent fee to lamports.
func (f *FeeConfig) FixedFeeLamports() uint64 {
	if f.WithdrawRentFee <= 0 {
		return 0
	}
	return uint64(math.Ceil(f.WithdrawRentFee * lamportsPerSOL))
}

// RelayWithdrawRequest POST /withdraw
type RelayWithdrawRequest struct {
	SerializedProof  string `json:"serializedProof"` // base64 transact instruction data
	TreeAccount      string `json:"treeAccount"`
	Nullifier0PDA    string `json:"nullifier0PDA"`
	Nullifier1PDA    string `json:"nullifier1PDA"`
	Nullifier2PDA    string `json:"nullifier2PDA"`
	Nullifier3PDA    string `json:"nullifier3PDA"`
	TreeTokenAccount string `json:"treeTokenAccount"`
	GlobalConfig     string `json:"globalConfigAccount"`
	Recipient        string `json:"recipient"`
	FeeRecipient     string `json:"feeRecipientAccount"`
	ExtAmount        int64  `json:"extAmount"`
	EncryptedOutput1 string `json:"encryptedOutput1"`
	EncryptedOutput2 string `json:"encryptedOutput2"`
	Fee              uint64 `json:"fee"`
	SenderAddress    string `json:"senderAddress"`
	MintAddress      string `json:"mintAddress,omitempty"`
}

// RelayWithdrawResponse relayer answer
type RelayWithdrawResponse struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

// NewIndexerClient Create indexer client
func NewIndexerClient(cfg config.IndexerConfig, logger *logrus.Logger) *IndexerClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &IndexerClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func tokenQuery(mint solana.PublicKey) url.Values {
	q := url.Values{}
	if !mint.IsZero() && mint != solana.NativeMint {
		q.Set("token", mint.String())
	}
	return q
}

// GetMerkleRoot returns the current root for the native pool or a token pool.
func (c *IndexerClient) GetMerkleRoot(ctx context.Context, mint solana.PublicKey) (*MerkleRoot, error) {
	var root MerkleRoot
	if err := c.getJSON(ctx, "/merkle/root", tokenQuery(mint), &root); err != nil {
		return nil, fmt.Errorf("get merkle root: %w", err)
	}
	return &root, nil
}

// GetMerkleProof returns the inclusion path of a commitment (decimal string).
func (c *IndexerClient) GetMerkleProof(ctx context.Context, commitment string, mint solana.PublicKey) (*MerkleProof, error) {
	var proof MerkleProof
	if err := c.getJSON(ctx, "/merkle/proof/"+url.PathEscape(commitment), tokenQuery(mint), &proof); err != nil {
		return nil, fmt.Errorf("get merkle proof: %w", err)
	}
	return &proof, nil
}

// GetEncryptedOutputs pages encrypted outputs in [start, end).
func (c *IndexerClient) GetEncryptedOutputs(ctx context.Context, start, end int64) (*EncryptedOutputsPage, error) {
	q := url.Values{}
	q.Set("start", fmt.Sprint(start))
	q.Set("end", fmt.Sprint(end))
	var page EncryptedOutputsPage
	if err := c.getJSON(ctx, "/utxos/range", q, &page); err != nil {
		return nil, fmt.Errorf("get encrypted outputs: %w", err)
	}
	return &page, nil
}

// GetFeeConfig returns the relayer's withdrawal fee schedule.
func (c *IndexerClient) GetFeeConfig(ctx context.Context) (*FeeConfig, error) {
	var cfg FeeConfig
	if err := c.getJSON(ctx, "/config", nil, &cfg); err != nil {
		return nil, fmt.Errorf("get fee config: %w", err)
	}
	return &cfg, nil
}

// RelayWithdraw hands a proven withdrawal to the relayer for submission.
func (c *IndexerClient) RelayWithdraw(ctx context.Context, req *RelayWithdrawRequest) (*RelayWithdrawResponse, error) {
	body, err := c.makeRequest(ctx, http.MethodPost, "/withdraw", nil, req)
	if err != nil {
		return nil, fmt.Errorf("relay withdraw: %w", err)
	}
	var resp RelayWithdrawResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relay response: %w", err)
	}
	if !resp.Success || resp.Signature == "" {
		return nil, fmt.Errorf("relayer rejected withdrawal: %s", resp.Error)
	}
	c.logger.WithFields(logrus.Fields{
		"signature":  resp.Signature,
		"ext_amount": req.ExtAmount,
		"fee":        req.Fee,
	}).Info("[Indexer] withdrawal relayed")
	return &resp, nil
}

func (c *IndexerClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	body, err := c.makeRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// makeRequest HTTP request; non-2xx responses become *HTTPStatusError.
func (c *IndexerClient) makeRequest(ctx context.Context, method, path string, query url.Values, data interface{}) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "shield-backend/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("[Indexer] request failed")
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
