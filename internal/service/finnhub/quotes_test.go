package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tradeServer answers every subscribe with one trade frame for the symbol
// when a price is known for it.
func tradeServer(t *testing.T, prices map[string]float64) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var cmd fhCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			p, ok := prices[cmd.Symbol]
			if cmd.Type != "subscribe" || !ok {
				continue
			}
			_ = conn.WriteJSON(map[string]string{"type": "ping"})
			_ = conn.WriteJSON(fhMessage{Type: "trade", Data: []fhTrade{
				{S: cmd.Symbol, P: p - 1, T: 1},
				{S: cmd.Symbol, P: p, T: 2},
			}})
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestLastPrices(t *testing.T) {
	srv := tradeServer(t, map[string]float64{"AAPL": 190.5, "MSFT": 410})
	defer srv.Close()

	c := New("secret", wsURL(srv), time.Second)
	got, err := c.LastPrices(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 190.5, "MSFT": 410}, got)
}

func TestLastPrices_MissingSymbolTimesOut(t *testing.T) {
	srv := tradeServer(t, map[string]float64{"AAPL": 190.5})
	defer srv.Close()

	c := New("secret", wsURL(srv), 100*time.Millisecond)
	got, err := c.LastPrices(context.Background(), []string{"AAPL", "NOPE"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 190.5}, got)
}

func TestLastPrices_Empty(t *testing.T) {
	c := New("secret", "ws://127.0.0.1:1", time.Second)
	got, err := c.LastPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLastPrices_DialFailure(t *testing.T) {
	c := New("secret", "ws://127.0.0.1:1", time.Second)
	_, err := c.LastPrices(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}
