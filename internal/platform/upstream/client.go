package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/honeypot-card-monitor/internal/config"
)

// Client defines the upstream processor operations the pipeline consumes
type Client interface {
	// ListTransactions fetches candidate transactions. When begin is non-nil
	// the query is inclusive: the event at the watermark boundary is returned
	// again and deduplicated downstream.
	ListTransactions(ctx context.Context, begin *time.Time) ([]json.RawMessage, error)

	// GetTransaction fetches a single transaction by token, or nil when the
	// processor does not know it
	GetTransaction(ctx context.Context, token string) (json.RawMessage, error)
}

// HTTPClient implements Client against the processor's REST API
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// listEnvelope is the processor's list response wrapper
type listEnvelope struct {
	Data []json.RawMessage `json:"data"`
}

func NewHTTPClient(logger *slog.Logger, cfg *config.UpstreamConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) ListTransactions(ctx context.Context, begin *time.Time) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/transactions", c.baseURL)
	if begin != nil {
		endpoint = fmt.Sprintf("%s?begin=%s", endpoint, url.QueryEscape(begin.UTC().Format(time.RFC3339)))
	}

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d for transaction list", status)
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode transaction list: %w", err)
	}

	c.logger.Debug("Fetched upstream transactions", "count", len(envelope.Data))
	return envelope.Data, nil
}

func (c *HTTPClient) GetTransaction(ctx context.Context, token string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s", c.baseURL, url.PathEscape(token))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", token, err)
	}
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("upstream returned status %d for transaction %s", status, token)
	}
}

func (c *HTTPClient) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}
