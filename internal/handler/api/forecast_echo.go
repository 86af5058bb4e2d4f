package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	models "FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	svcmetrics "FinCast/internal/service/metrics"
	"FinCast/internal/services/forecast"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler exposes simulations, portfolio bookkeeping and price
// history over Echo.
type ForecastEchoHandler struct {
	logger    *xlogger.Logger
	sim       *usecase.SimulationUseCase
	portfolio *usecase.PortfolioUseCase
	history   *usecase.HistoryUseCase
}

func NewForecastEchoHandler(
	logger *xlogger.Logger,
	sim *usecase.SimulationUseCase,
	portfolio *usecase.PortfolioUseCase,
	history *usecase.HistoryUseCase,
) *ForecastEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	svcmetrics.Register()
	return &ForecastEchoHandler{logger: logger, sim: sim, portfolio: portfolio, history: history}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/simulations", h.Simulate)
	g.GET("/portfolio", h.Portfolio)
	g.POST("/portfolio/assets", h.AddAsset)
	g.GET("/portfolio/assets/:ticker", h.GetAsset)
	g.DELETE("/portfolio/assets/:ticker", h.RemoveAsset)
	g.GET("/portfolio/calculations", h.Calculations)
	g.GET("/history", h.History)
}

func (h *ForecastEchoHandler) Simulate(c echo.Context) error {
	defer observe("simulate", time.Now())
	req := &models.SimulationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "simulate", verr)
	}

	res, err := h.sim.Simulate(c.Request().Context(), usecase.ParamsFromRequest(req))
	if err != nil {
		return h.fail(c, "simulate", err)
	}
	return xhttp.CreatedResponse(c, res)
}

type portfolioView struct {
	Assets []models.Asset `json:"assets"`
	Value  float64        `json:"value"`
}

func (h *ForecastEchoHandler) Portfolio(c echo.Context) error {
	defer observe("portfolio", time.Now())
	ctx := c.Request().Context()

	assets, err := h.portfolio.ListAssets(ctx)
	if err != nil {
		return h.fail(c, "portfolio", err)
	}
	value, err := h.portfolio.PortfolioValue(ctx)
	if err != nil {
		return h.fail(c, "portfolio", err)
	}
	return xhttp.SuccessResponse(c, portfolioView{Assets: assets, Value: value})
}

func (h *ForecastEchoHandler) AddAsset(c echo.Context) error {
	defer observe("add_asset", time.Now())
	req := &models.AddAssetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "add_asset", verr)
	}

	a, err := h.portfolio.AddAsset(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "add_asset", err)
	}
	return xhttp.CreatedResponse(c, a)
}

type assetView struct {
	models.Asset
	Weight string `json:"weight"`
}

func (h *ForecastEchoHandler) GetAsset(c echo.Context) error {
	defer observe("get_asset", time.Now())
	ctx := c.Request().Context()

	a, err := h.portfolio.GetAsset(ctx, c.Param("ticker"))
	if err != nil {
		return h.fail(c, "get_asset", err)
	}
	w, err := h.portfolio.Weight(ctx, a.Ticker)
	if err != nil {
		return h.fail(c, "get_asset", err)
	}
	return xhttp.SuccessResponse(c, assetView{Asset: a, Weight: w.Round(3).String()})
}

func (h *ForecastEchoHandler) RemoveAsset(c echo.Context) error {
	defer observe("remove_asset", time.Now())
	if err := h.portfolio.RemoveAsset(c.Request().Context(), c.Param("ticker")); err != nil {
		return h.fail(c, "remove_asset", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *ForecastEchoHandler) Calculations(c echo.Context) error {
	defer observe("calculations", time.Now())
	req := &models.CalculationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "calculations", verr)
	}

	rows, err := h.portfolio.Calculations(c.Request().Context(), req.Option, req.AssetClass, req.Sector)
	if err != nil {
		return h.fail(c, "calculations", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ForecastEchoHandler) History(c echo.Context) error {
	defer observe("history", time.Now())
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "history", verr)
	}

	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{
		Symbol: req.Symbol,
		Period: domrepo.NormalizePeriod(req.Period),
		Limit:  req.Limit,
	})
	if err != nil {
		return h.fail(c, "history", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) badRequest(c echo.Context, endpoint string, verr interface{}) error {
	svcmetrics.EndpointErrors.WithLabelValues(endpoint, strconv.Itoa(http.StatusBadRequest)).Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func (h *ForecastEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	svcmetrics.EndpointErrors.WithLabelValues(endpoint, strconv.Itoa(appErr.Status)).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(endpoint+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, forecast.ErrInvalidParams):
		return xhttp.BadRequestError("ERR_INVALID_PARAMS", err.Error()).WithError(err)
	case errors.Is(err, forecast.ErrEmptyPortfolio):
		return xhttp.BadRequestError("ERR_EMPTY_PORTFOLIO", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrUnknownTicker):
		ae := xhttp.BadRequestError("ERR_UNKNOWN_TICKER", err.Error()).WithError(err)
		ae.Field = "ticker"
		return ae
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_HISTORY", err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrAssetNotFound), errors.Is(err, domrepo.ErrNoData):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.TimeoutError("request timed out").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

func observe(endpoint string, start time.Time) {
	svcmetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
