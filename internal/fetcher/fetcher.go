// Package fetcher talks to the upstream market data backend.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"stockchart/internal/interval"
	"stockchart/internal/series"
)

var (
	// ErrInvalidSymbol is returned for symbols the backend would reject.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidPrice is returned when the backend reports a missing or non-positive price.
	ErrInvalidPrice = errors.New("invalid live price")

	symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z]{1,2})?$`)
)

// HistoryFetcher retrieves the OHLC history of a symbol at one granularity.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol string, granularity interval.Granularity) (series.History, error)
}

// PriceFetcher retrieves the latest trade price of a symbol.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// NormalizeSymbol trims and upper-cases a ticker and validates its shape.
func NormalizeSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return normalized, nil
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream error (%d)", e.Code)
	}
	return fmt.Sprintf("upstream error (%d): %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}
