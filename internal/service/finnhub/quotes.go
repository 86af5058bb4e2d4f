package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"FinCast/pkg/logger"

	"github.com/gorilla/websocket"
)

// QuoteClient reads last trade prices from the Finnhub trade stream.
// Every LastPrices call opens its own connection, subscribes to the
// requested symbols and returns once each has traded or the wait expires.
type QuoteClient struct {
	apiKey       string
	websocketURL string
	wait         time.Duration
	dialer       *websocket.Dialer
	log          *logger.Logger
}

// Option configures QuoteClient.
type Option func(*QuoteClient)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *QuoteClient) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *QuoteClient) { c.dialer = d }
}

// New creates a QuoteClient. wait bounds how long a call collects trades.
func New(apiKey, websocketURL string, wait time.Duration, opts ...Option) *QuoteClient {
	if wait <= 0 {
		wait = 3 * time.Second
	}
	c := &QuoteClient{
		apiKey:       apiKey,
		websocketURL: websocketURL,
		wait:         wait,
		dialer:       websocket.DefaultDialer,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

type fhCommand struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// LastPrices returns the latest trade price of each symbol seen before the
// wait elapsed. Symbols that did not trade are absent from the map.
func (c *QuoteClient) LastPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[s] = struct{}{}
		if err := conn.WriteJSON(fhCommand{Type: "subscribe", Symbol: s}); err != nil {
			return nil, fmt.Errorf("finnhub subscribe %s: %w", s, err)
		}
	}

	deadline := time.Now().Add(c.wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	// unblock the reader on cancellation
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	for len(out) < len(want) {
		_, b, err := conn.ReadMessage()
		if err != nil {
			var ne interface{ Timeout() bool }
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			if len(out) > 0 {
				c.log.Warn("finnhub read ended early", logger.Error(err))
				break
			}
			return nil, fmt.Errorf("finnhub read: %w", err)
		}
		var m fhMessage
		if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
			continue
		}
		latest := make(map[string]int64)
		for _, d := range m.Data {
			if _, ok := want[d.S]; !ok || d.P <= 0 {
				continue
			}
			if d.T >= latest[d.S] {
				latest[d.S] = d.T
				out[d.S] = d.P
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for s := range want {
		_ = conn.WriteJSON(fhCommand{Type: "unsubscribe", Symbol: s})
	}
	c.log.Debug("finnhub quotes", logger.Int("requested", len(want)), logger.Int("received", len(out)))
	return out, nil
}

func (c *QuoteClient) connect(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return nil, fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("finnhub connect: %w", err)
	}
	return conn, nil
}
