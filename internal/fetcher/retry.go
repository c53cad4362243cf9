package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const errorBodyLimit = 512

// RetryOptions configure exponential backoff for upstream calls.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetry is used for unset retry options.
var DefaultRetry = RetryOptions{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultRetry.MaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultRetry.BaseDelay
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = o.BaseDelay
	}
	return o
}

// doWithRetry executes the request built by buildReq, retrying transport
// errors and 5xx responses. Any other response is returned to the caller.
func doWithRetry(ctx context.Context, client *http.Client, opts RetryOptions, logger zerolog.Logger, buildReq func() (*http.Request, error)) (*http.Response, error) {
	opts = opts.withDefaults()

	var lastErr error
	delay := opts.BaseDelay

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = readStatusError(resp)
		}

		if attempt == opts.MaxAttempts || ctx.Err() != nil {
			break
		}

		logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", opts.MaxAttempts).
			Dur("backoff", delay).
			Msg("upstream request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", opts.MaxAttempts, lastErr)
}

func readStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
