// Package quotestream subscribes to pushed live quotes over a WebSocket.
package quotestream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	subscribeType = "subscribe"
	quotesType    = "quotes"

	defaultHandshakeTimeout = 10 * time.Second
	defaultReadTimeout      = 90 * time.Second
	closeGracePeriod        = time.Second
)

// Quote is one pushed price update.
type Quote struct {
	Symbol    string              `json:"symbol"`
	Price     decimal.NullDecimal `json:"price"`
	High      decimal.NullDecimal `json:"high"`
	Low       decimal.NullDecimal `json:"low"`
	Date      string              `json:"date"`
	Source    string              `json:"source"`
	Timestamp string              `json:"timestamp"`
}

type subscribeMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

type envelope struct {
	Type   string          `json:"type"`
	Quotes json.RawMessage `json:"quotes"`
}

// Options configure the stream client.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
}

// Client dials the quote stream endpoint.
type Client struct {
	opts   Options
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// New constructs a stream client.
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	return &Client{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		logger: logger.With().Str("component", "quote_stream").Logger(),
	}
}

// NormalizeSymbols trims, upper-cases and de-duplicates symbols, keeping
// first-seen order and dropping empties.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// Subscribe opens a stream for symbols and invokes onQuotes for every quotes
// frame until the returned func is called or ctx ends. An empty symbol set
// opens nothing. onQuotes runs on the reader goroutine and must not call the
// returned func, which is otherwise safe to call more than once.
func (c *Client) Subscribe(ctx context.Context, symbols []string, onQuotes func([]Quote)) (func(), error) {
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return func() {}, nil
	}
	if c.opts.URL == "" {
		return nil, errors.New("stream url is required")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial quote stream: %w", err)
	}
	if err := conn.WriteJSON(subscribeMessage{Type: subscribeType, Symbols: symbols}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}
	c.logger.Info().Strs("symbols", symbols).Msg("quote stream subscribed")

	sub := &subscription{conn: conn, done: make(chan struct{})}
	go c.readLoop(sub, onQuotes)
	go func() {
		select {
		case <-ctx.Done():
			sub.close()
		case <-sub.done:
		}
	}()
	return sub.close, nil
}

func (c *Client) readLoop(sub *subscription, onQuotes func([]Quote)) {
	defer close(sub.done)

	conn := sub.conn
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !sub.closing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("quote stream closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		if mt != websocket.TextMessage {
			continue
		}

		quotes, ok := decodeQuotes(data)
		if !ok {
			c.logger.Debug().Int("bytes", len(data)).Msg("skipping quote stream frame")
			continue
		}
		onQuotes(quotes)
	}
}

// decodeQuotes accepts only {"type":"quotes","quotes":[...]} frames.
func decodeQuotes(data []byte) ([]Quote, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != quotesType {
		return nil, false
	}
	var quotes []Quote
	if err := json.Unmarshal(env.Quotes, &quotes); err != nil || quotes == nil {
		return nil, false
	}
	return quotes, true
}

type subscription struct {
	conn *websocket.Conn
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func (s *subscription) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *subscription) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	select {
	case <-s.done:
	case <-time.After(closeGracePeriod):
	}
	s.conn.Close()
	<-s.done
}
