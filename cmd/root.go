package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kyleking/kanon/cmd/render"
	"github.com/kyleking/kanon/internal/config"
	"github.com/kyleking/kanon/internal/errors"
	"github.com/kyleking/kanon/internal/kanon"
	"github.com/kyleking/kanon/internal/loader"
	"github.com/kyleking/kanon/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "kanon",
	Short: "Anonymize a tabular dataset to satisfy k-anonymity",
	Long: `kanon generalizes a delimited table's quasi-identifier columns until every
row is indistinguishable from at least k-1 others, searching either
exhaustively (mg) or with a genetic algorithm (ga), and minimizing a
configurable distortion metric along the way.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnonymize,
}

func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.Flags()
	flags.String("mode", "", "search mode: mg or ga (required)")
	flags.String("input", "", "path to the input table (required)")
	flags.String("sensitivities", "", "per-column sensitivity CSV: q|i|s (required)")
	flags.String("domains", "", "path to a hierarchy file")
	flags.String("delim", "", "field delimiter (default: guess from tab/space/comma)")
	flags.String("types", "", "per-column type CSV: s|i")
	flags.String("weights", "", "per-column weight CSV")
	flags.String("metric", "md", "scoring metric: md or c")
	flags.Int("k", 2, "minimum equivalence-class size")
	flags.Int64("iterations", -1, "state/generation budget (default: unbounded for mg, 1000 for ga)")
	flags.Int("population", 100, "ga population size")
	flags.Int("mutation-rate", 10, "ga mutation rate")
	flags.Bool("single-thread", false, "run the search on the calling thread with no live progress")
	flags.Bool("no-cache", false, "disable the metric and match caches")
	flags.Bool("verbose", false, "enable debug logging")
}

func runAnonymize(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	mode, _ := flags.GetString("mode")
	input, _ := flags.GetString("input")
	sensitivities, _ := flags.GetString("sensitivities")

	if mode != "mg" && mode != "ga" {
		return errors.Newf(errors.ErrTypeConfig, "--mode must be one of mg, ga (got %q)", mode)
	}

	if input == "" {
		return errors.New(errors.ErrTypeConfig, "--input is required")
	}

	if sensitivities == "" {
		return errors.New(errors.ErrTypeConfig, "--sensitivities is required")
	}

	verbose, _ := flags.GetBool("verbose")
	noCache, _ := flags.GetBool("no-cache")
	k, _ := flags.GetInt("k")
	metric, _ := flags.GetString("metric")
	population, _ := flags.GetInt("population")
	mutationRate, _ := flags.GetInt("mutation-rate")
	singleThread, _ := flags.GetBool("single-thread")
	iterations, _ := flags.GetInt64("iterations")

	cfg, err := config.LoadConfigWithOverrides(map[string]interface{}{
		"k":             k,
		"metric":        metric,
		"population":    population,
		"mutation-rate": mutationRate,
		"verbose":       verbose,
		"no-cache":      noCache,
	})
	if err == nil && verbose {
		cfg.Logging.Level = "debug"
	}

	if err != nil {
		logging.SetupFallbackLogger()
		logging.ErrorWithErr("falling back to default logger", err)
	} else if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.ErrorWithErr("falling back to default logger", err)
	}

	runID := uuid.New()
	logging.WithField("run", runID).Infof("starting %s search", mode)

	domains, _ := flags.GetString("domains")
	delim, _ := flags.GetString("delim")
	types, _ := flags.GetString("types")
	weights, _ := flags.GetString("weights")

	hierarchies, err := loader.LoadHierarchies(domains)
	if err != nil {
		return err
	}

	table, err := loader.LoadTable(input, loader.TableOptions{
		Delim:         delim,
		Types:         types,
		Weights:       weights,
		Sensitivities: sensitivities,
		Hierarchies:   hierarchies,
	})
	if err != nil {
		return err
	}

	interactive := !singleThread && render.IsInteractive()
	if interactive {
		fmt.Fprint(os.Stderr, render.Banner(mode))
	}

	metricValue := kanon.ParseMetric(metric)

	result, cache, err := runSearch(cmd.Context(), mode, table, searchParams{
		K:            k,
		Metric:       metricValue,
		Iterations:   iterations,
		Population:   population,
		MutationRate: mutationRate,
		SingleThread: singleThread || !interactive,
		NoCache:      noCache,
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		logging.Warn(w)
		fmt.Printf("WARNING: %s\n", w)
	}

	for _, tbl := range result.Tables {
		tbl.UpdateWidths()
		fmt.Println(tbl.Render())
	}

	printStats(mode, result, cache)

	logging.WithField("run", runID).Infof("finished %s search in %s", mode, result.Duration)

	return nil
}

type searchParams struct {
	K            int
	Metric       kanon.Metric
	Iterations   int64
	Population   int
	MutationRate int
	SingleThread bool
	NoCache      bool
}

func runSearch(
	ctx context.Context,
	mode string,
	table *kanon.Table,
	p searchParams,
) (*kanon.Result, *kanon.MetricCache, error) {
	switch mode {
	case "ga":
		maxGen := uint64(1000)
		if p.Iterations >= 0 {
			maxGen = uint64(p.Iterations)
		}

		ga := kanon.NewGeneticAlgorithm(table, kanon.GeneticAlgorithmOptions{
			K:              p.K,
			Metric:         p.Metric,
			Population:     p.Population,
			MutationRate:   p.MutationRate,
			MaxGenerations: maxGen,
			SingleThreaded: p.SingleThread,
			NoCache:        p.NoCache,
		})

		if !p.SingleThread {
			progress := render.NewProgress(ga.Observer())
			progress.Start()
			defer progress.Stop()
		}

		result, err := ga.Run(ctx)

		return result, ga.Cache(), err
	default:
		var maxStates uint64
		if p.Iterations >= 0 {
			maxStates = uint64(p.Iterations)
		}

		mg := kanon.NewMinGen(table, kanon.MinGenOptions{
			K:              p.K,
			Metric:         p.Metric,
			MaxStates:      maxStates,
			SingleThreaded: p.SingleThread,
			NoCache:        p.NoCache,
		})

		if !p.SingleThread {
			progress := render.NewProgress(mg.Observer())
			progress.Start()
			defer progress.Stop()
		}

		result, err := mg.Run(ctx)

		return result, mg.Cache(), err
	}
}

func printStats(mode string, result *kanon.Result, cache *kanon.MetricCache) {
	fmt.Println()
	fmt.Printf("mode:             %s\n", mode)
	fmt.Printf("states explored:  %d\n", result.States)

	if result.Total != kanon.Unbounded {
		fmt.Printf("search space:     %d\n", result.Total)

		if mode == "mg" && result.States > 0 {
			pruning := float64(result.Total) / float64(result.States)
			fmt.Printf("pruning factor:   %.2f\n", pruning)
		}
	} else {
		fmt.Println("search space:     unbounded")
	}

	fmt.Printf("elapsed time:     %s\n", result.Duration)

	if result.States > 0 {
		speed := result.Duration.Nanoseconds() / int64(result.States) //nolint:gosec
		fmt.Printf("speed:            %d ns/state\n", speed)
	}

	if cache != nil {
		scoreStats := cache.Score.Stats()
		matchStats := cache.Match.Stats()
		fmt.Printf("score cache:      %d hits, %d misses (%.1f%% hit rate)\n",
			scoreStats.Hits, scoreStats.Misses, scoreStats.HitRate*100)
		fmt.Printf("match cache:      %d hits, %d misses (%.1f%% hit rate)\n",
			matchStats.Hits, matchStats.Misses, matchStats.HitRate*100)
	}

	fmt.Printf("final score:      %v\n", result.Best)
	fmt.Printf("tied-best size:   %d\n", len(result.Tables))
}
