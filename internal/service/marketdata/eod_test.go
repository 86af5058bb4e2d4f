package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domrepo "FinCast/internal/domain/repository"
	xhttp "FinCast/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC) }

func TestEODProvider_GetHistoricalData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eod/AAPL.US", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api_token"))
		assert.Equal(t, "2024-02-15", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-03-15", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`[
			{"date":"2024-03-01","open":10,"high":12,"low":9,"close":10,"adjusted_close":5},
			{"date":"2024-02-29","open":9,"high":10,"low":8,"close":9,"adjusted_close":9},
			{"date":"bad","close":1},
			{"date":"2024-03-04","open":1,"high":1,"low":1,"close":0}
		]`))
	}))
	defer srv.Close()

	p := NewEODProvider(srv.URL, "key", "US", WithClock(fixedNow))
	series, err := p.GetHistoricalData(context.Background(), " aapl ", domrepo.Period1mo)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, "AAPL", series.Symbol)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), series.Bars[0].Date)
	assert.InDelta(t, 5.0, series.Bars[1].Close, 1e-12)
	assert.InDelta(t, 6.0, series.Bars[1].High, 1e-12)
}

func TestEODProvider_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/eod/GONE.US" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewEODProvider(srv.URL, "key", "US", WithClock(fixedNow))
	for _, sym := range []string{"GONE", "EMPTY"} {
		_, err := p.GetHistoricalData(context.Background(), sym, domrepo.Period1y)
		assert.True(t, errors.Is(err, domrepo.ErrNoData), sym)
		var te *domrepo.TickerError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, sym, te.Symbol)
	}
}

func TestEODProvider_ServerErrorIsNotNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewEODProvider(srv.URL, "key", "US",
		WithClock(fixedNow),
		WithClient(xhttp.NewClient(xhttp.WithRetry(1, time.Millisecond))),
	)
	_, err := p.GetHistoricalData(context.Background(), "AAPL", domrepo.Period1y)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domrepo.ErrNoData))
}

func TestEODProvider_QualifiedSymbol(t *testing.T) {
	p := NewEODProvider("http://x", "", "US")
	assert.Equal(t, "AAPL.US", p.qualified("AAPL"))
	assert.Equal(t, "VOD.LSE", p.qualified("VOD.LSE"))
	assert.Equal(t, "AAPL", NewEODProvider("http://x", "", "").qualified("AAPL"))
}
