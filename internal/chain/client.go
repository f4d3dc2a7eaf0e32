// Package chain provides Solana JSON-RPC interaction for the mint layer.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound reports that a queried account does not exist on the cluster.
var ErrNotFound = errors.New("chain: account not found")

// Client is a rate-limited Solana JSON-RPC client.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config holds client configuration.
type Config struct {
	RPCURL string
	// Timeout bounds a single HTTP round trip. Defaults to 30s.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls. Public RPC endpoints
	// enforce aggressive limits; zero disables local throttling.
	RequestsPerSecond float64
}

// NewClient creates a Solana JSON-RPC client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		rpcURL:     cfg.RPCURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}, nil
}

// =============================================================================
// Core RPC Methods
// =============================================================================

// Call makes an RPC call to the node and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// GetAccountInfo fetches account data with base64 encoding. Returns
// ErrNotFound for nonexistent accounts.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	result, err := c.Call(ctx, "getAccountInfo", []interface{}{
		address,
		map[string]interface{}{"encoding": "base64", "commitment": "confirmed"},
	})
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Value *AccountInfo `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal account info: %w", err)
	}
	if wrapped.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return wrapped.Value, nil
}

// GetBalance returns an account's lamport balance.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	result, err := c.Call(ctx, "getBalance", []interface{}{
		address,
		map[string]interface{}{"commitment": "confirmed"},
	})
	if err != nil {
		return 0, err
	}

	var wrapped struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return 0, fmt.Errorf("unmarshal balance: %w", err)
	}
	return wrapped.Value, nil
}

// GetTokenAccountsByOwner returns the raw jsonParsed token accounts of an
// owner filtered to one mint. Callers extract amounts from the raw payload.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) (json.RawMessage, error) {
	return c.Call(ctx, "getTokenAccountsByOwner", []interface{}{
		owner,
		map[string]interface{}{"mint": mint},
		map[string]interface{}{"encoding": "jsonParsed", "commitment": "confirmed"},
	})
}

// GetLatestBlockhash returns the most recent blockhash for transaction
// construction.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error) {
	result, err := c.Call(ctx, "getLatestBlockhash", []interface{}{
		map[string]interface{}{"commitment": "confirmed"},
	})
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Value LatestBlockhash `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal blockhash: %w", err)
	}
	return &wrapped.Value, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of the given size.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	result, err := c.Call(ctx, "getMinimumBalanceForRentExemption", []interface{}{size})
	if err != nil {
		return 0, err
	}

	var lamports uint64
	if err := json.Unmarshal(result, &lamports); err != nil {
		return 0, fmt.Errorf("unmarshal rent exemption: %w", err)
	}
	return lamports, nil
}

// SendTransaction submits a base64-encoded signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, encodedTx string) (string, error) {
	result, err := c.Call(ctx, "sendTransaction", []interface{}{
		encodedTx,
		map[string]interface{}{"encoding": "base64", "preflightCommitment": "confirmed"},
	})
	if err != nil {
		return "", err
	}

	var signature string
	if err := json.Unmarshal(result, &signature); err != nil {
		return "", fmt.Errorf("unmarshal signature: %w", err)
	}
	return signature, nil
}

// GetSignatureStatus returns the status of one transaction signature, nil
// when the cluster does not know it yet.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	result, err := c.Call(ctx, "getSignatureStatuses", []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": true},
	})
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Value []*SignatureStatus `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal signature statuses: %w", err)
	}
	if len(wrapped.Value) == 0 {
		return nil, nil
	}
	return wrapped.Value[0], nil
}
