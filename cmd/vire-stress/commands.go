package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/vire-stress/internal/app"
	"github.com/bobmcallan/vire-stress/internal/common"
	"github.com/bobmcallan/vire-stress/internal/models"
	"github.com/bobmcallan/vire-stress/internal/services/relevance"
	"github.com/bobmcallan/vire-stress/internal/services/scenario"
	"github.com/bobmcallan/vire-stress/internal/services/sensitivity"
	"github.com/bobmcallan/vire-stress/internal/services/varengine"
	"github.com/bobmcallan/vire-stress/internal/storage/badger"
)

// classification is the classify command's per-symbol output.
type classification struct {
	*models.AssetMetadata
	Sensitivities models.FactorSensitivities `json:"sensitivities"`
	Factors       []models.Factor            `json:"factors"`
}

func newClassifyCmd(c *cli) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "classify [symbol...]",
		Short: "Classify symbols and show their factor sensitivities",
		Long: `Classify symbols through the hardcoded, provider and heuristic tiers.
With --all, every symbol held in a stored portfolio is classified and the
price cache is warmed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("provide at least one symbol or use --all")
			}
			return c.withApp(cmd, func(a *app.App) error {
				var symbols []string
				var bySymbol map[string]*models.AssetMetadata
				if all {
					warmed, err := a.WarmCache(cmd.Context())
					if err != nil {
						return err
					}
					bySymbol = warmed
					for sym := range warmed {
						symbols = append(symbols, sym)
					}
					sort.Strings(symbols)
				} else {
					symbols = args
					_, bySymbol = a.Classifier.ClassifyBatch(cmd.Context(), symbols)
				}

				out := make([]classification, 0, len(symbols))
				for _, sym := range symbols {
					meta := bySymbol[sym]
					out = append(out, classification{
						AssetMetadata: meta,
						Sensitivities: sensitivity.Compute(meta),
						Factors:       relevance.FactorsFor(meta.AssetType),
					})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "classify every symbol held in stored portfolios")
	return cmd
}

// relevanceReport is the relevance command's output.
type relevanceReport struct {
	PortfolioID string                        `json:"portfolio_id"`
	Composition map[models.AssetClass]float64 `json:"composition"`
	Factors     []models.FactorRelevance      `json:"factors"`
	Validation  *models.ScenarioValidation    `json:"scenario_validation,omitempty"`
}

func newRelevanceCmd(c *cli) *cobra.Command {
	var portfolioID, scenarioID string
	cmd := &cobra.Command{
		Use:   "relevance",
		Short: "Show which risk factors matter for a portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				p, err := a.Storage.PortfolioStorage().GetPortfolio(ctx, portfolioID)
				if err != nil {
					return err
				}

				report := relevanceReport{
					PortfolioID: p.ID,
					Composition: relevance.Normalize(relevance.Composition(p)),
					Factors:     a.Relevance.RelevantFactors(p),
				}

				if scenarioID != "" {
					s, err := a.Storage.ScenarioStorage().GetScenario(ctx, scenarioID)
					if err != nil {
						return err
					}
					factors, err := scenario.ToFactors(s.FactorChanges)
					if err != nil {
						return fmt.Errorf("scenario %s: %w", s.ID, err)
					}
					v := a.Relevance.ValidateScenario(p, factors)
					report.Validation = &v
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "portfolio id")
	cmd.Flags().StringVar(&scenarioID, "scenario", "", "scenario id to validate against the portfolio")
	_ = cmd.MarkFlagRequired("portfolio")
	return cmd
}

func newStressCmd(c *cli) *cobra.Command {
	var portfolioID, scenarioID string
	var shocks map[string]string
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Stress a portfolio without recording a run",
		Long: `Stress a stored portfolio against a stored scenario and/or ad-hoc shocks.
Shocks use scenario units: percent for equity, FX, commodity and volatility;
basis points for rates and credit. Ad-hoc shocks override the scenario's.

  vire-stress stress --portfolio core --scenario gfc
  vire-stress stress --portfolio core --shock equity=-20,rates=150`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioID == "" && len(shocks) == 0 {
				return fmt.Errorf("provide --scenario or at least one --shock")
			}
			adhoc, err := parseShocks(shocks)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				p, err := a.Storage.PortfolioStorage().GetPortfolio(ctx, portfolioID)
				if err != nil {
					return err
				}

				changes := make(map[string]float64)
				if scenarioID != "" {
					s, err := a.Storage.ScenarioStorage().GetScenario(ctx, scenarioID)
					if err != nil {
						return err
					}
					for k, v := range s.FactorChanges {
						changes[k] = v
					}
				}
				factors, err := scenario.ToFactors(changes)
				if err != nil {
					return err
				}
				factors, err = mergeShocks(factors, adhoc)
				if err != nil {
					return err
				}

				result, err := a.Stress.RunStressTest(ctx, p, factors)
				if err != nil {
					return err
				}
				roundStressResult(result)
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "portfolio id")
	cmd.Flags().StringVar(&scenarioID, "scenario", "", "stored scenario id")
	cmd.Flags().StringToStringVar(&shocks, "shock", nil, "ad-hoc shocks as factor=value (aliases accepted)")
	_ = cmd.MarkFlagRequired("portfolio")
	return cmd
}

// parseShocks converts --shock key=value pairs into per-factor shocks. Every
// factor named is kept, explicit zeros included.
func parseShocks(raw map[string]string) (map[models.Factor]float64, error) {
	changes := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("shock %s: %q is not a number", k, v)
		}
		changes[k] = f
	}
	// validates aliases, duplicates and finiteness
	factors, err := scenario.ToFactors(changes)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Factor]float64, len(changes))
	for k := range changes {
		f, _ := scenario.LookupFactor(k)
		out[f] = factors.Shock(f)
	}
	return out, nil
}

// mergeShocks overlays the given factors onto base. A factor present in
// override replaces base's shock even when the override is zero.
func mergeShocks(base models.ScenarioFactors, override map[models.Factor]float64) (models.ScenarioFactors, error) {
	changes := make(map[string]float64, len(models.AllFactors))
	for _, f := range models.AllFactors {
		if v, ok := override[f]; ok {
			changes[string(f)] = v
			continue
		}
		if f == models.FactorVolatility && base.Volatility == nil {
			continue
		}
		changes[string(f)] = base.Shock(f)
	}
	return scenario.ToFactors(changes)
}

func newVaRCmd(c *cli) *cobra.Command {
	var (
		portfolioID  string
		method       string
		params       models.VaRParams
		levels       []float64
		stressPeriod string
	)
	cmd := &cobra.Command{
		Use:   "var",
		Short: "Estimate Value-at-Risk and Conditional VaR",
		Long: `Estimate VaR and CVaR for a stored portfolio. --method all (the default)
reports every methodology. --levels or --stress-period switch to a
multi-confidence report for a single method (parametric when "all").

Stress periods: ` + strings.Join(varengine.StressPeriods(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				p, err := a.Storage.PortfolioStorage().GetPortfolio(ctx, portfolioID)
				if err != nil {
					return err
				}

				if len(levels) > 0 || stressPeriod != "" {
					m := models.VaRParametric
					if method != "all" {
						if m, err = models.ParseVaRMethod(method); err != nil {
							return err
						}
					}
					res, err := a.VaR.ComputeMultiConfidence(ctx, p, m, params, levels, stressPeriod)
					if err != nil {
						return err
					}
					roundMultiConfidence(res)
					return writeJSON(cmd.OutOrStdout(), res)
				}

				if method == "all" {
					results, err := a.VaR.ComputeAll(ctx, p, params)
					if err != nil {
						return err
					}
					for _, r := range results {
						roundVaRResult(r)
					}
					return writeJSON(cmd.OutOrStdout(), results)
				}

				m, err := models.ParseVaRMethod(method)
				if err != nil {
					return err
				}
				res, err := a.VaR.ComputeVaR(ctx, p, m, params)
				if err != nil {
					return err
				}
				roundVaRResult(res)
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "portfolio id")
	cmd.Flags().StringVar(&method, "method", "all", "parametric, historical, monte_carlo or all")
	cmd.Flags().Float64Var(&params.ConfidenceLevel, "confidence", 0, "confidence level in (0,1), default from config")
	cmd.Flags().IntVar(&params.TimeHorizon, "horizon", 0, "time horizon in trading days, default from config")
	cmd.Flags().IntVar(&params.LookbackYears, "lookback", 0, "lookback period in years, default from config")
	cmd.Flags().IntVar(&params.NumSimulations, "simulations", 0, "Monte Carlo simulation count, default from config")
	cmd.Flags().Float64SliceVar(&levels, "levels", nil, "confidence levels for a multi-confidence report")
	cmd.Flags().StringVar(&stressPeriod, "stress-period", "", "historical stress period multiplier")
	_ = cmd.MarkFlagRequired("portfolio")
	return cmd
}

func newPerformanceCmd(c *cli) *cobra.Command {
	var (
		portfolioID string
		lookback    int
	)
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Measure historical return and risk ratios",
		Long: `Measure a stored portfolio at its current weights over daily history:
annual return, volatility, Sharpe and Sortino ratios, beta against the
configured benchmark, maximum drawdown and downside deviation. Needs an
EODHD key; holdings without history are proxied by the benchmark.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				p, err := a.Storage.PortfolioStorage().GetPortfolio(ctx, portfolioID)
				if err != nil {
					return err
				}
				res, err := a.Performance.Analyze(ctx, p, lookback)
				if err != nil {
					return err
				}
				roundPerformance(res)
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "portfolio id")
	cmd.Flags().IntVar(&lookback, "lookback", 0, "lookback period in years, default from config")
	_ = cmd.MarkFlagRequired("portfolio")
	return cmd
}

func newRunCmd(c *cli) *cobra.Command {
	var portfolioID, scenarioID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a stored scenario against a portfolio and record it in history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				common.PrintBanner(cmd.ErrOrStderr(), a.Config, "run", a.Logger)

				run, err := a.Scenarios.RunScenario(cmd.Context(), scenarioID, portfolioID)
				if run != nil {
					roundStressResult(run.Results)
					if werr := writeJSON(cmd.OutOrStdout(), run); werr != nil && err == nil {
						err = werr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "portfolio id")
	cmd.Flags().StringVar(&scenarioID, "scenario", "", "scenario id")
	_ = cmd.MarkFlagRequired("portfolio")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	var purge bool
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded scenario runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				ctx := cmd.Context()
				switch {
				case purge:
					n, err := a.Storage.PurgeRunHistory(ctx)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), map[string]int{"purged": n})
				case len(args) == 1:
					run, err := a.Scenarios.GetRun(ctx, args[0])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), run)
				}

				runs, err := a.Scenarios.History(ctx, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 for all retained)")
	cmd.Flags().BoolVar(&purge, "purge", false, "delete all recorded runs")
	return cmd
}

func newSeedCmd(c *cli) *cobra.Command {
	var warm bool
	cmd := &cobra.Command{
		Use:   "seed PATH",
		Short: "Load portfolios and scenarios from a TOML file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				common.PrintBanner(cmd.ErrOrStderr(), a.Config, "seed", a.Logger)

				counts, err := badger.SeedFromPath(cmd.Context(), a.Logger, a.Storage, args[0])
				if err != nil {
					return err
				}
				if counts.Portfolios == 0 && counts.Scenarios == 0 && counts.Skipped > 0 {
					return errors.New("seed wrote no records, see log for skipped entries")
				}
				if warm {
					if _, err := a.WarmCache(cmd.Context()); err != nil {
						return err
					}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int{
					"portfolios": counts.Portfolios,
					"scenarios":  counts.Scenarios,
					"skipped":    counts.Skipped,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", false, "classify seeded holdings after loading")
	return cmd
}
