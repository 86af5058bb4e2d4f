package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyPortfolio is returned when a run has no assets at all.
	ErrEmptyPortfolio = errors.New("portfolio has no assets")
	// ErrInvalidParams is returned for non-positive path or step counts.
	ErrInvalidParams = errors.New("invalid simulation parameters")
)

// Default simulator parameters.
const (
	DefaultNoiseScale = 2.0
	DefaultNoiseCap   = 5.0
	DefaultPriceFloor = 0.01
)

// stepCheckInterval is how often a long path polls for cancellation.
const stepCheckInterval = 256

// SimulatorConfig holds the path generation parameters.
type SimulatorConfig struct {
	Lookback       int
	VolWindow      int
	PeriodsPerYear float64
	// BufferLen bounds each rolling buffer; zero means 2*(Lookback+VolWindow).
	BufferLen  int
	Noise      NoisePolicy
	PriceFloor float64
	Workers    int
}

// SimulationInput is one run's data. Histories and Models are shared
// read-only by every path.
type SimulationInput struct {
	Holdings  []models.Holding
	Histories map[string][]models.Bar
	Models    map[string]domsvc.Model
	Paths     int
	Steps     int
	Seed      uint64
}

// Simulator generates Monte Carlo portfolio value paths.
type Simulator struct {
	cfg SimulatorConfig
	log *logger.Logger
}

// NewSimulator builds a simulator, filling unset parameters with defaults.
func NewSimulator(cfg SimulatorConfig, log *logger.Logger) *Simulator {
	if cfg.VolWindow <= 0 {
		cfg.VolWindow = features.DefaultVolWindow
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = features.TradingDaysPerYear
	}
	if cfg.BufferLen <= 0 {
		cfg.BufferLen = 2 * (cfg.Lookback + cfg.VolWindow)
	}
	if need := cfg.Lookback + cfg.VolWindow; cfg.BufferLen < need {
		cfg.BufferLen = need
	}
	if cfg.PriceFloor <= 0 {
		cfg.PriceFloor = DefaultPriceFloor
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Simulator{cfg: cfg, log: log}
}

// Config returns the effective configuration.
func (s *Simulator) Config() SimulatorConfig { return s.cfg }

type position struct {
	ticker string
	qty    float64
}

// Run generates in.Paths independent paths of in.Steps steps each.
func (s *Simulator) Run(ctx context.Context, in SimulationInput) (*models.SimulationResult, error) {
	positions, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	if ff := ForwardFilled(in); len(ff) > 0 {
		s.log.Info("Forward-filling assets without a model", logger.Strings("tickers", ff))
	}
	seed := in.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	paths := make([][]float64, in.Paths)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for p := 0; p < in.Paths; p++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := s.runPath(gctx, positions, in, seed, p)
			if err != nil {
				return err
			}
			paths[p] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := Aggregate(paths, in.Steps)
	if err != nil {
		return nil, err
	}
	res.Method = models.MethodRegression
	s.log.Debug("Simulation finished",
		logger.Int("paths", in.Paths),
		logger.Int("steps", in.Steps),
		logger.Float64("initial_value", res.InitialValue),
	)
	return res, nil
}

func validateInput(in SimulationInput) ([]position, error) {
	if len(in.Holdings) == 0 {
		return nil, ErrEmptyPortfolio
	}
	if in.Paths < 1 || in.Steps < 1 {
		return nil, fmt.Errorf("%w: paths=%d steps=%d", ErrInvalidParams, in.Paths, in.Steps)
	}
	qty := make(map[string]float64, len(in.Holdings))
	for _, h := range in.Holdings {
		if h.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity for %s", ErrInvalidParams, h.Ticker)
		}
		qty[h.Ticker] += float64(h.Quantity)
	}
	out := make([]position, 0, len(qty))
	for _, t := range sortedKeys(qty) {
		out = append(out, position{ticker: t, qty: qty[t]})
	}
	return out, nil
}

// assetState is one path's private view of an asset.
type assetState struct {
	position
	model  domsvc.Model
	buf    *RollingBuffer
	price  float64
	priced bool
}

func (s *Simulator) runPath(ctx context.Context, positions []position, in SimulationInput, seed uint64, idx int) ([]float64, error) {
	rng := pathRNG(seed, idx)
	assets := make([]assetState, len(positions))
	for i, pos := range positions {
		st := assetState{position: pos}
		if hist := in.Histories[pos.ticker]; len(hist) > 0 {
			st.price = hist[len(hist)-1].Close
			st.priced = true
			if m := in.Models[pos.ticker]; m != nil {
				st.model = m
				st.buf = NewRollingBuffer(hist, s.cfg.BufferLen, s.cfg.VolWindow, s.cfg.PeriodsPerYear)
			}
		}
		assets[i] = st
	}

	path := make([]float64, in.Steps+1)
	path[0] = portfolioValue(assets)
	for t := 1; t <= in.Steps; t++ {
		if t%stepCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for i := range assets {
			s.step(&assets[i], rng)
		}
		path[t] = portfolioValue(assets)
	}
	return path, nil
}

// step advances one asset by one day; assets without a usable model keep
// their previous price.
func (s *Simulator) step(a *assetState, rng *rand.Rand) {
	if a.model == nil || a.buf == nil {
		return
	}
	x, err := features.LatestPredictors(a.buf.Features(), s.cfg.Lookback)
	if err != nil {
		return
	}
	last, _ := a.buf.LastClose()
	delta := a.model.Predict(x) + s.cfg.Noise.Draw(rng, a.buf.LastDailyChange())
	next := last + delta
	if !(next > 0) || math.IsInf(next, 0) {
		next = s.cfg.PriceFloor
	}
	a.buf.AppendClose(next)
	a.price = next
}

func portfolioValue(assets []assetState) float64 {
	total := 0.0
	for _, a := range assets {
		if a.priced {
			total += a.qty * a.price
		}
	}
	return total
}

// ForwardFilled lists the held tickers that have history but no model; their
// price stays at the last close on every path.
func ForwardFilled(in SimulationInput) []string {
	var out []string
	for _, t := range sortedKeys(holdingSet(in.Holdings)) {
		if len(in.Histories[t]) > 0 && in.Models[t] == nil {
			out = append(out, t)
		}
	}
	return out
}

func holdingSet(holdings []models.Holding) map[string]struct{} {
	set := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		set[h.Ticker] = struct{}{}
	}
	return set
}
