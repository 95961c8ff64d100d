// Package cn gathers China A-share daily data from the Tushare Pro API.
package cn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Svanik-yan/trading-backtest/internal/domain"
	"github.com/Svanik-yan/trading-backtest/internal/util"
)

// DefaultBaseURL is the Tushare Pro HTTP endpoint.
const DefaultBaseURL = "https://api.tushare.pro"

// codeRateLimited is the Tushare response code for exceeding the per-minute
// call quota.
const codeRateLimited = 40203

// ErrNoToken is returned when a TushareClient has no API token.
var ErrNoToken = errors.New("tushare: no API token configured")

// APIError is a non-zero response code from the Tushare API.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tushare: code %d: %s", e.Code, e.Msg)
}

// ---------------------------------------------------------------------------
// Wire format
// ---------------------------------------------------------------------------

type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields,omitempty"`
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *Table `json:"data"`
}

// Table is the columnar payload of a Tushare response.
type Table struct {
	Fields []string `json:"fields"`
	Items  [][]any  `json:"items"`

	index map[string]int
}

func (t *Table) col(name string) int {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Fields))
		for i, f := range t.Fields {
			t.index[f] = i
		}
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// String returns column name of row i, or "" when absent or null.
func (t *Table) String(i int, name string) string {
	c := t.col(name)
	if c < 0 || c >= len(t.Items[i]) || t.Items[i][c] == nil {
		return ""
	}
	switch v := t.Items[i][c].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Float returns column name of row i as a float, or 0 when absent, null or
// not numeric.
func (t *Table) Float(i int, name string) float64 {
	s := t.String(i, name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Items) }

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// TushareClient calls the Tushare Pro API with its own token. Calls are
// rate limited and retried with backoff on transport errors and quota
// responses.
type TushareClient struct {
	token    string
	baseURL  string
	http     *http.Client
	limiter  *util.RateLimiter
	attempts int
	backoff  time.Duration
}

// NewTushareClient creates a client. An empty baseURL uses DefaultBaseURL;
// perMinute <= 0 disables client-side rate limiting.
func NewTushareClient(token, baseURL string, perMinute int) *TushareClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TushareClient{
		token:    token,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  util.NewRateLimiter(perMinute),
		attempts: 3,
		backoff:  2 * time.Second,
	}
}

// Query calls apiName with params and returns the result table. fields may
// be nil to receive the API's default columns.
func (c *TushareClient) Query(ctx context.Context, apiName string, params map[string]string, fields []string) (*Table, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	if params == nil {
		params = map[string]string{}
	}
	body, err := json.Marshal(request{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  strings.Join(fields, ","),
	})
	if err != nil {
		return nil, err
	}

	var table *Table
	err = util.Retry(ctx, c.attempts, c.backoff, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		t, err := c.post(ctx, body)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Code != codeRateLimited {
				return util.Permanent(err)
			}
			return err
		}
		table = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tushare %s: %w", apiName, err)
	}
	return table, nil
}

func (c *TushareClient) post(ctx context.Context, body []byte) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var r response
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if r.Code != 0 {
		return nil, &APIError{Code: r.Code, Msg: r.Msg}
	}
	if r.Data == nil {
		return &Table{}, nil
	}
	return r.Data, nil
}

// ---------------------------------------------------------------------------
// Endpoints
// ---------------------------------------------------------------------------

var (
	dailyFields      = []string{"ts_code", "trade_date", "open", "high", "low", "close", "pre_close", "change", "pct_chg", "vol", "amount"}
	dailyBasicFields = []string{"ts_code", "trade_date", "turnover_rate", "volume_ratio", "pe", "pb"}
	stockBasicFields = []string{"ts_code", "symbol", "name", "industry", "list_date"}
)

func windowParams(code string, start, end time.Time) map[string]string {
	return map[string]string{
		"ts_code":    domain.NormalizeCNSymbol(code),
		"start_date": util.FormatCompact(start),
		"end_date":   util.FormatCompact(end),
	}
}

// Daily returns the daily bars of code within [start, end], ascending by
// date. Volume is in lots and amount in thousands of yuan, as Tushare
// reports them.
func (c *TushareClient) Daily(ctx context.Context, code string, start, end time.Time) ([]domain.Bar, error) {
	t, err := c.Query(ctx, "daily", windowParams(code, start, end), dailyFields)
	if err != nil {
		return nil, err
	}
	bars := make([]domain.Bar, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		date, err := util.ParseDate(t.String(i, "trade_date"))
		if err != nil {
			return nil, fmt.Errorf("daily row %d: %w", i, err)
		}
		bars = append(bars, domain.Bar{
			Symbol: domain.NormalizeCNSymbol(t.String(i, "ts_code")),
			Date:   date,
			Open:   t.Float(i, "open"),
			High:   t.Float(i, "high"),
			Low:    t.Float(i, "low"),
			Close:  t.Float(i, "close"),
			Volume: t.Float(i, "vol"),
			Amount: t.Float(i, "amount"),
		})
	}
	// Tushare returns newest first.
	reverseIfDescending(bars)
	return bars, nil
}

// DailyBasic returns the per-day indicator rows of code within [start, end].
func (c *TushareClient) DailyBasic(ctx context.Context, code string, start, end time.Time) ([]domain.Indicator, error) {
	t, err := c.Query(ctx, "daily_basic", windowParams(code, start, end), dailyBasicFields)
	if err != nil {
		return nil, err
	}
	inds := make([]domain.Indicator, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		date, err := util.ParseDate(t.String(i, "trade_date"))
		if err != nil {
			return nil, fmt.Errorf("daily_basic row %d: %w", i, err)
		}
		inds = append(inds, domain.Indicator{
			Symbol:       domain.NormalizeCNSymbol(t.String(i, "ts_code")),
			Date:         date,
			TurnoverRate: t.Float(i, "turnover_rate"),
			VolumeRatio:  t.Float(i, "volume_ratio"),
			PE:           t.Float(i, "pe"),
			PB:           t.Float(i, "pb"),
		})
	}
	return inds, nil
}

// StockBasic returns all listed A-share instruments.
func (c *TushareClient) StockBasic(ctx context.Context) ([]domain.Instrument, error) {
	t, err := c.Query(ctx, "stock_basic", map[string]string{"exchange": "", "list_status": "L"}, stockBasicFields)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Instrument, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		sym := domain.NormalizeCNSymbol(t.String(i, "ts_code"))
		code := t.String(i, "symbol")
		if code == "" {
			code = domain.SymbolCode(sym)
		}
		out = append(out, domain.Instrument{
			Symbol:   sym,
			Code:     code,
			Name:     t.String(i, "name"),
			Industry: t.String(i, "industry"),
			Market:   domain.MarketCN,
			ListDate: t.String(i, "list_date"),
		})
	}
	return out, nil
}

func reverseIfDescending(bars []domain.Bar) {
	if len(bars) < 2 || !bars[0].Date.After(bars[len(bars)-1].Date) {
		return
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
