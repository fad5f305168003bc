// Package catalog reads products from the catalog service over HTTP.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultRetries      = 2
	defaultRetryBackoff = 500 * time.Millisecond
	maxBodyBytes        = 32 << 20
	productsPath        = "/products"
)

// Config holds the catalog client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	Logger  *zap.Logger
}

// Client lists catalog items.
type Client struct {
	baseURL      string
	client       *http.Client
	retries      int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewClient creates a catalog client. Zero values select defaults.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultRetries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		client:       &http.Client{Timeout: timeout},
		retries:      retries,
		retryBackoff: defaultRetryBackoff,
		logger:       logger,
	}
}

// ListAllItems fetches GET {base}/products, a JSON array of items.
// Transport failures and 5xx are retried; every failure wraps domain.ErrCatalogUnavailable.
func (c *Client) ListAllItems(ctx context.Context) ([]domain.Item, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("list items: %w: %w", domain.ErrCatalogUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
		}

		items, retry, err := c.listOnce(ctx)
		if err == nil {
			return items, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.logger.Debug("Catalog request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return nil, fmt.Errorf("list items: %w: %w", domain.ErrCatalogUnavailable, lastErr)
}

func (c *Client) listOnce(ctx context.Context) ([]domain.Item, bool, error) {
	resp, err := c.get(ctx)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		return nil, resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests, err
	}

	var items []domain.Item
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&items); err != nil {
		return nil, false, fmt.Errorf("decode products: %w", err)
	}
	return items, false, nil
}

// Ping checks that the catalog answers the products endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx)
	if err != nil {
		return fmt.Errorf("ping catalog: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping catalog: status %d: %w", resp.StatusCode, domain.ErrCatalogUnavailable)
	}
	return nil
}

func (c *Client) get(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+productsPath, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
