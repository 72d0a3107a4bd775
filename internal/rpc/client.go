package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
)

// Client is an Ethereum JSON-RPC client with retry, timeout and endpoint fallback
type Client struct {
	httpClient   *http.Client
	urls         []string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
	observe      func(method string, d time.Duration)
	requestID    atomic.Int64
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	// BaseURL is the primary endpoint; FallbackURLs are tried in order after it
	BaseURL      string
	FallbackURLs []string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
	// Observe, when set, receives the latency of every completed call
	Observe func(method string, d time.Duration)
}

var _ ethereum.ContractCaller = (*Client)(nil)

// NewClient creates a new RPC client with retry support
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rpc base url is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		urls:         append([]string{cfg.BaseURL}, cfg.FallbackURLs...),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
		observe:      cfg.Observe,
	}, nil
}

// Call makes a JSON-RPC call with retry logic and decodes the result field.
// JSON-RPC errors (reverts, bad params) are returned as *RPCError without retrying.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	data, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(method, time.Since(start)) }()
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying RPC call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		raw, err := c.doRequestAny(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}

		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// CallContract executes eth_call against the latest block, or blockNumber when set
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, fmt.Errorf("eth_call requires a target address")
	}

	arg := callArg{
		To:   msg.To.Hex(),
		Data: hexutil.Encode(msg.Data),
	}
	if msg.From != (common.Address{}) {
		arg.From = msg.From.Hex()
	}

	block := "latest"
	if blockNumber != nil {
		block = hexutil.EncodeBig(blockNumber)
	}

	var out hexutil.Bytes
	if err := c.Call(ctx, "eth_call", []any{arg, block}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// doRequestAny tries every endpoint in order and returns the first success
func (c *Client) doRequestAny(ctx context.Context, data []byte) ([]byte, error) {
	var errs []error
	for _, u := range c.urls {
		body, err := c.doRequest(ctx, u, data)
		if err == nil {
			return body, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func (c *Client) doRequest(ctx context.Context, url string, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
