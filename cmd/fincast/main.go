package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"FinCast/internal/di"
	"FinCast/pkg/config"

	"github.com/spf13/cobra"
)

// state is filled by the root command before a subcommand runs.
type state struct {
	cli     *di.CLI
	cleanup func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		st         state
	)
	root := &cobra.Command{
		Use:           "fincast",
		Short:         "Monte Carlo forecasts of a stock portfolio",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			// the CLI logs to stderr so stdout stays parseable
			cfg.Logger.Output = "stderr"
			cli, cleanup, err := di.InitializeCLI(cfg)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			st.cli, st.cleanup = cli, cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.cleanup != nil {
				st.cleanup()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	root.AddCommand(newSimulateCmd(&st), newHistoryCmd(&st))
	return root
}

// loadConfig reads path, falling back to defaults plus environment when the
// file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg = config.Default()
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
