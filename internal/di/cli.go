package di

import (
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/usecase"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

// CLI bundles the use cases the command line drives directly.
type CLI struct {
	Log        *applogger.Logger
	Simulation *usecase.SimulationUseCase
	Portfolio  *usecase.PortfolioUseCase
	History    *usecase.HistoryUseCase
}

// ProvideNoPublisher is used where results are printed instead of published.
func ProvideNoPublisher() domrepo.ResultPublisher { return nil }

// ProvideCLI assembles the CLI and the cleanup closing its clients.
func ProvideCLI(
	l *applogger.Logger,
	sim *usecase.SimulationUseCase,
	portfolio *usecase.PortfolioUseCase,
	history *usecase.HistoryUseCase,
	ch *pkgch.Client,
	caches *Caches,
) (*CLI, func()) {
	cleanup := func() {
		if ch != nil {
			if err := ch.Close(); err != nil {
				l.Warn("clickhouse close", applogger.Error(err))
			}
		}
		if err := caches.Close(); err != nil {
			l.Warn("cache close", applogger.Error(err))
		}
	}
	return &CLI{Log: l, Simulation: sim, Portfolio: portfolio, History: history}, cleanup
}
