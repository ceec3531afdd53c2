package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"shield-backend/internal/solana"
)

// maxAccountsPerRequest is the getMultipleAccounts batch limit.
const maxAccountsPerRequest = 100

var (
	ErrTransactionFailed = errors.New("transaction failed on chain")
	ErrConfirmTimeout    = errors.New("transaction confirmation timed out")
)

// SignatureStatus mirrors one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Failed reports whether the transaction executed with an error.
func (s *SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

func (s *SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

func (c *RPCClient) commitmentConfig() map[string]interface{} {
	return map[string]interface{}{"commitment": c.commitment}
}

// GetLatestBlockhash returns the recent blockhash and its last valid height.
func (c *RPCClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	var out struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.Call(ctx, "getLatestBlockhash", []interface{}{c.commitmentConfig()}, &out); err != nil {
		return solana.Hash{}, 0, err
	}
	hash, err := solana.HashFromBase58(out.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, 0, err
	}
	return hash, out.Value.LastValidBlockHeight, nil
}

// GetBalance returns the lamport balance of account.
func (c *RPCClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out struct {
		Value uint64 `json:"value"`
	}
	if err := c.Call(ctx, "getBalance", []interface{}{account.String(), c.commitmentConfig()}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetAccountsExist reports, per key, whether the account exists on chain.
func (c *RPCClient) GetAccountsExist(ctx context.Context, keys []solana.PublicKey) ([]bool, error) {
	exists := make([]bool, 0, len(keys))
	for start := 0; start < len(keys); start += maxAccountsPerRequest {
		end := start + maxAccountsPerRequest
		if end > len(keys) {
			end = len(keys)
		}
		addrs := make([]string, 0, end-start)
		for _, k := range keys[start:end] {
			addrs = append(addrs, k.String())
		}

		var out struct {
			Value []json.RawMessage `json:"value"`
		}
		cfg := map[string]interface{}{"commitment": c.commitment, "encoding": "base64", "dataSlice": map[string]int{"offset": 0, "length": 0}}
		if err := c.Call(ctx, "getMultipleAccounts", []interface{}{addrs, cfg}, &out); err != nil {
			return nil, err
		}
		if len(out.Value) != len(addrs) {
			return nil, fmt.Errorf("getMultipleAccounts returned %d entries for %d keys", len(out.Value), len(addrs))
		}
		for _, v := range out.Value {
			exists = append(exists, len(v) > 0 && string(v) != "null")
		}
	}
	return exists, nil
}

// SendTransaction submits a signed, serialized transaction.
func (c *RPCClient) SendTransaction(ctx context.Context, tx []byte) (string, error) {
	var signature string
	cfg := map[string]interface{}{"encoding": "base64", "preflightCommitment": c.commitment}
	if err := c.Call(ctx, "sendTransaction", []interface{}{base64.StdEncoding.EncodeToString(tx), cfg}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// GetSignatureStatus returns nil when the signature is not yet known.
func (c *RPCClient) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var out struct {
		Value []*SignatureStatus `json:"value"`
	}
	cfg := map[string]interface{}{"searchTransactionHistory": true}
	if err := c.Call(ctx, "getSignatureStatuses", []interface{}{[]string{signature}, cfg}, &out); err != nil {
		return nil, err
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

// ConfirmTransaction polls the signature status until it is confirmed,
// fails, or timeout elapses.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		status, err := c.GetSignatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		if status != nil {
			if status.Failed() {
				return fmt.Errorf("%w: %s: %s", ErrTransactionFailed, signature, string(status.Err))
			}
			if status.Confirmed() {
				c.logger.WithFields(logrus.Fields{
					"signature": signature,
					"slot":      status.Slot,
				}).Debug("[RPC] transaction confirmed")
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrConfirmTimeout, signature)
		}
		if err := c.sleep(ctx, time.Second); err != nil {
			return err
		}
	}
}
