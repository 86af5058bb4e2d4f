package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

func newSimulateCmd(st *state) *cobra.Command {
	var (
		assets []string
		asJSON bool
		req    models.SimulationRequest
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate future portfolio values",
		Example: "  fincast simulate --asset AAPL:3 --asset MSFT:2 --simulations 500 --years 1\n" +
			"  fincast simulate --method gaussian --seed 42",
		RunE: func(cmd *cobra.Command, args []string) error {
			holdings, err := parseAssets(assets)
			if err != nil {
				return err
			}
			req.Holdings = holdings
			if err := validator.New().Struct(&req); err != nil {
				return err
			}

			res, err := st.cli.Simulation.Simulate(cmd.Context(), usecase.ParamsFromRequest(&req))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&assets, "asset", nil, "holding as TICKER:QUANTITY, repeatable; default is the stored portfolio")
	f.IntVar(&req.Simulations, "simulations", 100, "number of paths")
	f.Float64Var(&req.Years, "years", 1, "horizon in years of 252 trading days")
	f.IntVar(&req.Lookback, "lookback", 5, "lagged days per feature")
	f.Uint64Var(&req.Seed, "seed", 0, "random seed, 0 for a time based seed")
	f.StringVar(&req.Method, "method", models.MethodRegression, "regression or gaussian")
	f.BoolVar(&req.IncludePaths, "paths", false, "include every path in JSON output")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newHistoryCmd(st *state) *cobra.Command {
	var (
		symbol string
		period string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print daily bars of a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := domrepo.Period(period)
			if !domrepo.IsValidPeriod(p) {
				return fmt.Errorf("unsupported period %q", period)
			}
			res, err := st.cli.History.GetHistory(cmd.Context(), usecase.GetHistoryParams{Symbol: symbol, Period: p, Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tOPEN\tHIGH\tLOW\tCLOSE")
			for _, b := range res.Bars {
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\n", b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close)
			}
			return w.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&symbol, "symbol", "", "ticker symbol")
	f.StringVar(&period, "period", string(domrepo.Period1mo), "5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y or max")
	f.IntVar(&limit, "limit", 0, "most recent bars to print, 0 for the default of 5000")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

// parseAssets reads TICKER:QUANTITY pairs.
func parseAssets(raw []string) ([]models.HoldingInput, error) {
	out := make([]models.HoldingInput, 0, len(raw))
	for _, s := range raw {
		ticker, qty, ok := strings.Cut(s, ":")
		ticker = strings.TrimSpace(ticker)
		if !ok || ticker == "" {
			return nil, fmt.Errorf("asset %q: want TICKER:QUANTITY", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("asset %q: quantity must be a non-negative integer", s)
		}
		out = append(out, models.HoldingInput{Ticker: ticker, Quantity: n})
	}
	return out, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *models.SimulationResult) {
	fmt.Fprintf(w, "run %s (%s), %d steps, initial value %.2f\n", res.ID, res.Method, res.Steps, res.InitialValue)
	if s := res.Summary; s != nil {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATHS\tMEAN\tSTDDEV\tP05\tP50\tP95\tMIN\tMAX")
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			s.Paths, s.Mean, s.StdDev, s.P05, s.P50, s.P95, s.Min, s.Max)
		_ = tw.Flush()
	}
	for _, fb := range res.Fallbacks {
		fmt.Fprintf(w, "fallback %s: %s\n", fb.Ticker, fb.Reason)
	}
}
