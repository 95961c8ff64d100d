// Package client is a Go SDK for the backtest server's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides a Go SDK for interacting with the backtest server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// ListStrategies returns the names of the strategies the server can run.
func (c *Client) ListStrategies(ctx context.Context) ([]string, error) {
	var resp struct {
		Strategies []string `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// ListSymbols returns the symbols stored for market. An empty market uses
// the server default.
func (c *Client) ListSymbols(ctx context.Context, market string) ([]string, error) {
	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}
	var resp struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/symbols?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}

// GetBars retrieves daily bars for a symbol within [start, end].
func (c *Client) GetBars(ctx context.Context, symbol, market string, start, end time.Time) ([]Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if market != "" {
		q.Set("market", market)
	}
	q.Set("start", start.Format(time.DateOnly))
	q.Set("end", end.Format(time.DateOnly))

	var resp struct {
		Bars []Bar `json:"bars"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/bars?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bars, nil
}

// RunBacktest runs one backtest on the server.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtests", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Compare runs each named strategy with the same settings. req.Strategy is
// ignored. Results are in the order of strategies.
func (c *Client) Compare(ctx context.Context, req BacktestRequest, strategies []string) (*Comparison, error) {
	body := compareRequest{BacktestRequest: req, Strategies: strategies}
	body.Strategy = ""
	var cmp Comparison
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtests/compare", body, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

// do sends a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
