// Command skipbench is the thin external front end described by the
// benchmark harness's configuration object: it maps flags (optionally
// bound to a config file) onto bench.Config, runs one measured workload,
// and prints counters and throughput.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"skiplab/bench"
	"skiplab/keyrange"
)

var (
	variant      string
	numThreads   int
	timeInterval float64
	nPrefill     int
	insertP      float64
	containP     float64
	strategy     string
	overlap      string
	seed         uint64
	keyMin       int
	keyMax       int
	levels       int
	prob         float64
	repetitions  int
	perWorker    bool
	cfgFile      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skipbench",
		Short: "Benchmark concurrent skip-list variants under a configurable workload",
		RunE:  runBenchmark,
	}

	flags := root.Flags()
	flags.StringVar(&variant, "variant", "SEQ", "implementation: SEQ, COARSE, FINE, LOCK_FREE")
	flags.IntVar(&numThreads, "threads", 1, "worker count (SEQ forces 1)")
	flags.Float64Var(&timeInterval, "interval", 1.0, "measurement duration, seconds")
	flags.IntVar(&nPrefill, "prefill", 1000, "distinct keys inserted before measurement")
	flags.Float64Var(&insertP, "insert-p", 0.34, "insert probability")
	flags.Float64Var(&containP, "contain-p", 0.33, "contains probability")
	flags.StringVar(&strategy, "strategy", "RANDOM", "key selection: RANDOM, UNIQUE, SUCCESSIVE")
	flags.StringVar(&overlap, "overlap", "COMMON", "key range partitioning: COMMON, DISJOINT")
	flags.Uint64Var(&seed, "seed", 1, "RNG seed")
	flags.IntVar(&keyMin, "key-min", 0, "inclusive lower key bound")
	flags.IntVar(&keyMax, "key-max", 1_000_000, "inclusive upper key bound")
	flags.IntVar(&levels, "levels", 16, "maximum level count, 1..32")
	flags.Float64Var(&prob, "prob", 0.5, "per-level promotion probability")
	flags.IntVar(&repetitions, "repetitions", 1, "number of prefill+measure cycles to average")
	flags.BoolVar(&perWorker, "per-worker", false, "include per-worker counters in the printed result")
	flags.StringVar(&cfgFile, "config", "", "optional config file (yaml/json/toml) overriding flag defaults")

	return root
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding config to flags: %w", err)
	}

	cfg := bench.Config{
		Variant:           parseVariant(v.GetString("variant")),
		NumThreads:        v.GetInt("threads"),
		TimeIntervalS:     v.GetFloat64("interval"),
		NPrefill:          v.GetInt("prefill"),
		OpMix:             bench.OpMix{Insert: v.GetFloat64("insert-p"), Contain: v.GetFloat64("contain-p")},
		Strategy:          parseStrategy(v.GetString("strategy")),
		Overlap:           parseOverlap(v.GetString("overlap")),
		Seed:              uint64(v.GetInt64("seed")),
		KeyRange:          keyrange.Range{Min: v.GetInt("key-min"), Max: v.GetInt("key-max")},
		Levels:            v.GetInt("levels"),
		Prob:              v.GetFloat64("prob"),
		Repetitions:       v.GetInt("repetitions"),
		PerWorkerCounters: v.GetBool("per-worker"),
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	result, err := bench.Run(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	printResult(cfg, *result)
	return nil
}

func printResult(cfg bench.Config, r bench.Result) {
	fmt.Printf("variant            %s\n", cfg.Variant)
	fmt.Printf("elapsed_seconds    %.6f\n", r.ElapsedSeconds)
	fmt.Printf("successful_adds    %d\n", r.SuccessfulAdds)
	fmt.Printf("failed_adds        %d\n", r.FailedAdds)
	fmt.Printf("successful_contains %d\n", r.SuccessfulContains)
	fmt.Printf("failed_contains    %d\n", r.FailedContains)
	fmt.Printf("successful_removes %d\n", r.SuccessfulRemoves)
	fmt.Printf("failed_removes     %d\n", r.FailedRemoves)
	fmt.Printf("throughput_ops_s   %.2f\n", r.Throughput())

	for i, c := range r.PerWorker {
		fmt.Printf("worker[%d] adds=%d/%d contains=%d/%d removes=%d/%d\n",
			i, c.SuccessfulAdds, c.FailedAdds, c.SuccessfulContains, c.FailedContains,
			c.SuccessfulRemoves, c.FailedRemoves)
	}
}

func parseVariant(s string) bench.Variant {
	switch s {
	case "COARSE":
		return bench.COARSE
	case "FINE":
		return bench.FINE
	case "LOCK_FREE":
		return bench.LOCK_FREE
	default:
		return bench.SEQ
	}
}

func parseStrategy(s string) bench.Strategy {
	switch s {
	case "UNIQUE":
		return bench.UNIQUE
	case "SUCCESSIVE":
		return bench.SUCCESSIVE
	default:
		return bench.RANDOM
	}
}

func parseOverlap(s string) bench.Overlap {
	switch s {
	case "DISJOINT":
		return bench.DISJOINT
	case "PER_THREAD":
		return bench.OverlapPerThread
	default:
		return bench.COMMON
	}
}
