package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stockchart/internal/interval"
	"stockchart/internal/series"
)

const (
	stocksPath       = "/api/stocks/"
	defaultBaseURL   = "http://localhost:8080"
	defaultUserAgent = "stockchart/1.0"
	defaultTimeout   = 10 * time.Second
)

// Options parameterise the upstream client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Retry     RetryOptions
}

// Client fetches history and live prices over the backend REST API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs an upstream client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "market_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchHistory retrieves the raw, most-recent-first history of symbol.
func (c *Client) FetchHistory(ctx context.Context, symbol string, granularity interval.Granularity) (series.History, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return series.History{}, err
	}

	endpoint := c.baseURL + stocksPath + url.PathEscape(sym) + "/history?" + url.Values{"interval": {string(granularity)}}.Encode()
	payload, err := c.get(ctx, endpoint)
	if err != nil {
		return series.History{}, fmt.Errorf("fetch %s %s history: %w", sym, granularity, err)
	}

	var history series.History
	if err := json.Unmarshal(payload, &history); err != nil {
		return series.History{}, fmt.Errorf("decode %s history: %w", sym, err)
	}
	if history.Symbol == "" {
		history.Symbol = sym
	}
	if history.Interval == "" {
		history.Interval = string(granularity)
	}

	c.logger.Debug().
		Str("symbol", sym).
		Str("granularity", string(granularity)).
		Int("points", len(history.Data)).
		Msg("history fetched")
	return history, nil
}

// FetchPrice retrieves the live price of symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}

	payload, err := c.get(ctx, c.baseURL+stocksPath+url.PathEscape(sym)+"/price")
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch %s price: %w", sym, err)
	}

	var res priceResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode %s price: %w", sym, err)
	}
	if !res.Price.Valid || !res.Price.Decimal.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w for %s", ErrInvalidPrice, sym)
	}
	return res.Price.Decimal, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := doWithRetry(ctx, c.client, c.opts.Retry, c.logger, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
			req.Header.Set("User-Agent", ua)
		} else {
			req.Header.Set("User-Agent", defaultUserAgent)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readStatusError(resp)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

type priceResponse struct {
	Symbol string              `json:"symbol"`
	Price  decimal.NullDecimal `json:"price"`
	High   decimal.NullDecimal `json:"high"`
	Low    decimal.NullDecimal `json:"low"`
	Date   string              `json:"date"`
	Source string              `json:"source"`
}

var (
	_ HistoryFetcher = (*Client)(nil)
	_ PriceFetcher   = (*Client)(nil)
)
