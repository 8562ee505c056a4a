// Package subgraph reads pair listings from a Uniswap-V2 style subgraph.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"tickerScope/internal/retry"
)

// ErrNoData is returned when a GraphQL response carries no data.
var ErrNoData = errors.New("subgraph returned no data")

// Config holds subgraph connection settings.
type Config struct {
	URL          string
	APIKey       string
	BlocksPerDay uint64
	MaxRetries   int
	RetryBackoff time.Duration
	MaxDelay     time.Duration
	Timeout      time.Duration
}

// Client is a GraphQL client for the pair subgraph.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new subgraph client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// doQuery executes a query and returns the raw "data" field. Transport errors
// and 5xx responses are retried; GraphQL errors and 4xx responses are not.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	var data json.RawMessage
	policy := retry.Policy{MaxRetries: c.cfg.MaxRetries, BaseDelay: c.cfg.RetryBackoff, MaxDelay: c.cfg.MaxDelay}
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		data, err = c.post(ctx, body)
		return err
	}, func(attempt int, err error) {
		c.logger.Warn("subgraph query failed", zap.Int("attempt", attempt), zap.Error(err))
	})
	return data, err
}

func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, retry.Permanent(fmt.Errorf("decode graphql response: %w", err))
	}
	if len(gqlResp.Errors) > 0 {
		return nil, retry.Permanent(fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message))
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return nil, retry.Permanent(ErrNoData)
	}

	return gqlResp.Data, nil
}
