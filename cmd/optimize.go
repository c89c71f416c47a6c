package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang-algotrade/internal/dto"

	"github.com/spf13/cobra"
)

var (
	optimizeCandles  candleFlags
	optimizeStrategy string
	optimizeParams   string
	optimizeCapital  float64
	optimizeGA       dto.GAConfig
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search strategy parameters with a genetic algorithm",
	RunE:  RunOptimize,
}

func init() {
	optimizeCandles.register(optimizeCmd)
	f := optimizeCmd.Flags()
	f.StringVar(&optimizeStrategy, "strategy", "", "path to a YAML or JSON strategy")
	f.StringVar(&optimizeParams, "params", "", "path to the parameter ranges")
	f.Float64Var(&optimizeCapital, "capital", 0, "initial capital, 0 uses the configured default")
	f.IntVar(&optimizeGA.PopulationSize, "population", 0, "population size")
	f.IntVar(&optimizeGA.Generations, "generations", 0, "number of generations")
	f.Float64Var(&optimizeGA.MutationRate, "mutation-rate", 0, "per-gene mutation probability")
	f.Float64Var(&optimizeGA.CrossoverRate, "crossover-rate", 0, "crossover probability")
	f.Float64Var(&optimizeGA.ElitismPct, "elitism", 0, "fraction of the population kept as elites")
	f.IntVar(&optimizeGA.MaxWorkers, "workers", 0, "parallel evaluations")
	f.Int64Var(&optimizeGA.Seed, "seed", 0, "random seed, 0 seeds from the clock")
	_ = optimizeCmd.MarkFlagRequired("strategy")
	_ = optimizeCmd.MarkFlagRequired("params")
}

func RunOptimize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return err
	}
	defer appDep.Close()

	strategy, err := appDep.repo.FileRepo.LoadStrategy(optimizeStrategy)
	if err != nil {
		return err
	}
	params, err := appDep.repo.FileRepo.LoadParams(optimizeParams)
	if err != nil {
		return err
	}
	query, err := optimizeCandles.query()
	if err != nil {
		return err
	}

	ga := mergeGAFlags(cmd, appDep.services.OptimizerService.DefaultGAConfig())
	result, err := appDep.services.OptimizerService.Optimize(ctx, dto.OptimizeRequest{
		Candles:        query,
		Strategy:       strategy,
		InitialCapital: optimizeCapital,
		Parameters:     params,
		GA:             &ga,
	})
	if err != nil {
		return err
	}
	if result.Cancelled {
		appDep.log.Warn("Optimization interrupted, printing the best result so far")
	}
	return printJSON(cmd, result)
}

// mergeGAFlags overrides the configured defaults with the flags the user set.
func mergeGAFlags(cmd *cobra.Command, ga dto.GAConfig) dto.GAConfig {
	f := cmd.Flags()
	if f.Changed("population") {
		ga.PopulationSize = optimizeGA.PopulationSize
	}
	if f.Changed("generations") {
		ga.Generations = optimizeGA.Generations
	}
	if f.Changed("mutation-rate") {
		ga.MutationRate = optimizeGA.MutationRate
	}
	if f.Changed("crossover-rate") {
		ga.CrossoverRate = optimizeGA.CrossoverRate
	}
	if f.Changed("elitism") {
		ga.ElitismPct = optimizeGA.ElitismPct
	}
	if f.Changed("workers") {
		ga.MaxWorkers = optimizeGA.MaxWorkers
	}
	if f.Changed("seed") {
		ga.Seed = optimizeGA.Seed
	}
	return ga
}
