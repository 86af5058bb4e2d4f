package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	xhttp "FinCast/pkg/http"
	"FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// EODProvider fetches daily bars from an end-of-day HTTP price API
// (EODHD compatible: GET {base}/eod/{SYMBOL}.{EXCHANGE}).
type EODProvider struct {
	baseURL  string
	apiKey   string
	exchange string
	client   *xhttp.Client
	log      *logger.Logger
	now      func() time.Time
}

// Option configures EODProvider.
type Option func(*EODProvider)

// WithClient replaces the HTTP client.
func WithClient(c *xhttp.Client) Option {
	return func(p *EODProvider) { p.client = c }
}

// WithLogger sets the provider logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *EODProvider) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides the clock used to resolve periods.
func WithClock(now func() time.Time) Option {
	return func(p *EODProvider) { p.now = now }
}

// NewEODProvider creates the provider.
func NewEODProvider(baseURL, apiKey, exchange string, opts ...Option) *EODProvider {
	p := &EODProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		exchange: exchange,
		client:   xhttp.NewClient(),
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type eodBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
}

// GetHistoricalData returns the bars of symbol over period, oldest first.
func (p *EODProvider) GetHistoricalData(ctx context.Context, symbol string, period domrepo.Period) (*models.PriceSeries, error) {
	symbol = util.NormalizeTicker(symbol)
	if symbol == "" {
		return nil, &domrepo.TickerError{Symbol: symbol, Err: domrepo.ErrNoData}
	}
	from, to, err := period.Range(p.now())
	if err != nil {
		return nil, err
	}

	q := map[string][]string{
		"api_token": {p.apiKey},
		"fmt":       {"json"},
		"period":    {"d"},
		"to":        {to.Format(util.DateLayout)},
	}
	if period != domrepo.PeriodMax {
		q["from"] = []string{from.Format(util.DateLayout)}
	}

	var raw []eodBar
	err = p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         fmt.Sprintf("%s/eod/%s", p.baseURL, p.qualified(symbol)),
		QueryParams: q,
	}, &raw)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, &domrepo.TickerError{Symbol: symbol, Err: domrepo.ErrNoData}
		}
		return nil, fmt.Errorf("eod %s: %w", symbol, err)
	}

	series := &models.PriceSeries{Symbol: symbol, Bars: toBars(raw)}
	if series.Len() == 0 {
		return nil, &domrepo.TickerError{Symbol: symbol, Err: domrepo.ErrNoData}
	}
	p.log.Debug("eod bars fetched",
		logger.String("symbol", symbol),
		logger.String("period", string(period)),
		logger.Int("bars", series.Len()),
	)
	return series, nil
}

func (p *EODProvider) qualified(symbol string) string {
	if p.exchange == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + "." + p.exchange
}

// toBars drops unparsable or non-positive rows, scales OHLC to the
// adjusted close and orders by date.
func toBars(raw []eodBar) []models.Bar {
	out := make([]models.Bar, 0, len(raw))
	for _, r := range raw {
		d, err := time.Parse(util.DateLayout, r.Date)
		if err != nil || r.Close <= 0 {
			continue
		}
		adj := 1.0
		if r.AdjustedClose > 0 {
			adj = r.AdjustedClose / r.Close
		}
		out = append(out, models.Bar{
			Date:  d.UTC(),
			Open:  r.Open * adj,
			High:  r.High * adj,
			Low:   r.Low * adj,
			Close: r.Close * adj,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
