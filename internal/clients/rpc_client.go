package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"shield-backend/internal/config"
	"shield-backend/internal/metrics"
)

const (
	defaultRPCTimeout    = 20 * time.Second
	defaultRPCMaxRetries = 5
	defaultRPCBaseDelay  = 350 * time.Millisecond
	maxJitter            = 250 * time.Millisecond

	// CodeNodeBehind is the JSON-RPC code a lagging node answers with.
	CodeNodeBehind = -32005
)

var transientRPCMessages = []string{
	"Too many requests",
	"rate limit",
	"timed out",
	"Node is behind",
	"Blockhash not found",
}

// errRateLimited marks an HTTP 429 attempt.
var errRateLimited = errors.New("rate limited (HTTP 429)")

// RPCClient is a JSON-RPC 2.0 client with bounded retries.
type RPCClient struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	commitment string
	limiter    *rate.Limiter
	nextID     atomic.Uint64
	logger     *logrus.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// attemptResult classifies the outcome of a single HTTP round trip.
type attemptResult struct {
	retryable  bool
	retryAfter time.Duration
	reason     string
	err        error
}

// NewRPCClient Create a new RPC client; zero values fall back to defaults.
func NewRPCClient(cfg config.SolanaConfig, logger *logrus.Logger) *RPCClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := defaultRPCTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	maxRetries := defaultRPCMaxRetries
	if cfg.MaxRetries > 0 {
		maxRetries = cfg.MaxRetries
	}
	baseDelay := defaultRPCBaseDelay
	if cfg.BaseDelayMs > 0 {
		baseDelay = time.Duration(cfg.BaseDelayMs) * time.Millisecond
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}

	return &RPCClient{
		endpoint:   cfg.RPCURL,
		httpClient: &http.Client{},
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		commitment: commitment,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
		sleep:      sleepContext,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff = base * 2^attempt + jitter
func (c *RPCClient) backoff(attempt int) time.Duration {
	return c.baseDelay*time.Duration(1<<uint(attempt)) + c.jitter()
}

// Call performs method with params and decodes the result into result
// (which may be nil). At most maxRetries+1 attempts are made.
func (c *RPCClient) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		metrics.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()
	if params == nil {
		params = []interface{}{}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		raw, res := c.attempt(ctx, method, params)
		if res == nil {
			metrics.RPCAttempts.WithLabelValues(method, "ok").Inc()
			if result == nil || len(raw) == 0 {
				return nil
			}
			if err := json.Unmarshal(raw, result); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
			return nil
		}

		metrics.RPCAttempts.WithLabelValues(method, res.reason).Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !res.retryable {
			return res.err
		}
		lastErr = res.err
		if attempt == c.maxRetries {
			// transient JSON-RPC errors surface as themselves once attempts run out
			var rpcErr *RPCError
			if errors.As(res.err, &rpcErr) {
				return rpcErr
			}
			break
		}

		delay := res.retryAfter
		if delay <= 0 {
			delay = c.backoff(attempt)
		}
		metrics.RPCRetries.WithLabelValues(res.reason).Inc()
		c.logger.WithFields(logrus.Fields{
			"method":   method,
			"attempt":  attempt + 1,
			"reason":   res.reason,
			"delay_ms": delay.Milliseconds(),
			"error":    res.err,
		}).Warn("[RPC] retrying request")

		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("rpc %s failed after %d attempts: %w", method, c.maxRetries+1, lastErr)
}

func (c *RPCClient) attempt(ctx context.Context, method string, params []interface{}) (json.RawMessage, *attemptResult) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, &attemptResult{reason: "encode", err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &attemptResult{reason: "encode", err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, &attemptResult{retryable: true, reason: "timeout", err: fmt.Errorf("request timed out after %v: %w", c.timeout, err)}
		}
		return nil, &attemptResult{retryable: true, reason: "network", err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &attemptResult{retryable: true, reason: "network", err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &attemptResult{
			retryable:  true,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			reason:     "rate_limited",
			err:        errRateLimited,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &attemptResult{
			retryable: true,
			reason:    "http_status",
			err:       &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(respBody)},
		}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &attemptResult{retryable: true, reason: "decode", err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if envelope.Error != nil {
		return nil, &attemptResult{
			retryable: isTransientRPCError(envelope.Error),
			reason:    "rpc_error",
			err:       envelope.Error,
		}
	}
	return envelope.Result, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func isTransientRPCError(e *RPCError) bool {
	if e.Code == CodeNodeBehind {
		return true
	}
	for _, pattern := range transientRPCMessages {
		if strings.Contains(e.Message, pattern) {
			return true
		}
	}
	return false
}
