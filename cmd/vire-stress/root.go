package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-stress/internal/app"
	"github.com/bobmcallan/vire-stress/internal/common"
)

// cli carries the persistent flags shared by every command.
type cli struct {
	configPath string
	logLevel   string
	dataPath   string
	metrics    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "vire-stress",
		Short: "Vire Stress - portfolio stress testing and risk calculation",
		Long: `Vire Stress applies factor shock scenarios to stored portfolios,
estimates Value-at-Risk and Conditional VaR, and records every scenario
run in a capped history.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file path (default: $VIRE_STRESS_CONFIG, then vire-stress.toml beside the binary)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.dataPath, "data", "", "storage directory override")
	root.PersistentFlags().BoolVar(&c.metrics, "metrics", false, "print Prometheus metrics to stderr when the command finishes")

	root.AddCommand(
		newVersionCmd(),
		newClassifyCmd(c),
		newRelevanceCmd(c),
		newStressCmd(c),
		newVaRCmd(c),
		newPerformanceCmd(c),
		newRunCmd(c),
		newHistoryCmd(c),
		newSeedCmd(c),
	)

	return root
}

// withApp opens the App for the duration of fn. Storage is always closed, and
// metrics are written even when fn fails.
func (c *cli) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()

	runErr := fn(a)
	if c.metrics {
		if err := a.WriteMetrics(cmd.ErrOrStderr()); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (c *cli) open() (*app.App, error) {
	config, err := app.LoadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		config.Logging.Level = c.logLevel
	}
	if c.dataPath != "" {
		config.Storage.Path = c.dataPath
	}
	if c.metrics {
		config.Metrics.Enabled = true
	}

	a, err := app.NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vire-stress %s\n", common.GetFullVersion())
		},
	}
}
