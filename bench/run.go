package bench

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skiplab/keyrange"
	"skiplab/keysel"
	"skiplab/skipset"
)

// Run executes one measured workload against a freshly constructed list
// and returns the aggregated result. It validates cfg before doing
// anything else, so an invalid configuration never spawns a goroutine.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Repetitions > 1 {
		return runRepeated(ctx, cfg, logger)
	}
	return runOnce(ctx, cfg, logger)
}

func runRepeated(ctx context.Context, cfg Config, logger *zap.Logger) (*Result, error) {
	reps := cfg.Repetitions
	agg := &Result{}
	var elapsedSum float64

	for r := 0; r < reps; r++ {
		repCfg := cfg
		repCfg.Seed = cfg.Seed + uint64(r)
		res, err := runOnce(ctx, repCfg, logger)
		if err != nil {
			return nil, err
		}
		agg.Counters.add(res.Counters)
		elapsedSum += res.ElapsedSeconds
		logger.Info("repetition complete",
			zap.Int("repetition", r),
			zap.Float64("elapsed_seconds", res.ElapsedSeconds))
	}

	agg.ElapsedSeconds = elapsedSum / float64(reps)
	return agg, nil
}

func runOnce(ctx context.Context, cfg Config, logger *zap.Logger) (*Result, error) {
	set, err := newSet(cfg)
	if err != nil {
		return nil, err
	}

	prefillRNG := keysel.NewLCG48(cfg.Seed + 1)
	prefill(set, cfg, prefillRNG)
	logger.Info("prefill complete", zap.Int("n_prefill", cfg.NPrefill))

	numThreads := cfg.effectiveThreads()
	deadline := time.Now().Add(time.Duration(cfg.TimeIntervalS * float64(time.Second)))
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	perWorker := make([]Counters, numThreads)
	elapsed := make([]float64, numThreads)

	for tid := 0; tid < numThreads; tid++ {
		tid := tid
		g.Go(func() error {
			wr := workerRange(cfg, tid, numThreads)
			rng := keysel.NewLCG48(cfg.Seed + uint64(tid))

			var keyIter *keysel.UniqueKeyIterator
			if cfg.Strategy == UNIQUE {
				keyIter = keysel.NewUniqueKeyIterator(wr.Size(), rng)
			}

			start := time.Now()
			counters := runWorker(gctx, set, cfg, wr, rng, keyIter)
			elapsed[tid] = time.Since(start).Seconds()
			perWorker[tid] = counters
			return nil
		})
	}
	// errgroup's context cancellation via the deadline is the only
	// termination signal workers observe; gctx.Done() fires at deadline
	// and every worker loop exits on its next iteration.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	var maxElapsed float64
	for i, c := range perWorker {
		result.Counters.add(c)
		if elapsed[i] > maxElapsed {
			maxElapsed = elapsed[i]
		}
	}
	result.ElapsedSeconds = maxElapsed
	if cfg.PerWorkerCounters {
		result.PerWorker = perWorker
	}

	logger.Info("run complete",
		zap.String("variant", cfg.Variant.String()),
		zap.Int("num_threads", numThreads),
		zap.Float64("elapsed_seconds", result.ElapsedSeconds),
		zap.Float64("throughput", result.Throughput()))

	return result, nil
}

// prefill deterministically populates set with cfg.NPrefill distinct keys
// drawn from the configured strategy, using a single RNG seeded from
// base_seed+1 shared across the whole prefill pass.
func prefill(set skipset.Set, cfg Config, rng *keysel.LCG48) {
	kr := cfg.KeyRange
	switch cfg.Strategy {
	case SUCCESSIVE:
		for i := 0; i < cfg.NPrefill; i++ {
			set.Add(kr.Min+i, i)
		}
	default:
		it := keysel.NewUniqueKeyIterator(kr.Size(), rng)
		for i := 0; i < cfg.NPrefill; i++ {
			set.Add(kr.Min+it.Next(), i)
		}
	}
}

// workerRange derives a worker's effective key range from cfg.Overlap.
func workerRange(cfg Config, tid, numThreads int) keyrange.Range {
	switch cfg.Overlap {
	case DISJOINT:
		return cfg.KeyRange.Partition(numThreads, tid)
	case OverlapPerThread:
		width := cfg.PerThreadRangeWidth
		min := cfg.KeyRange.Min + tid*width
		max := min + width - 1
		if max > cfg.KeyRange.Max {
			max = cfg.KeyRange.Max
		}
		return keyrange.Range{Min: min, Max: max}
	default: // COMMON
		return cfg.KeyRange
	}
}

// runWorker chooses keys and operations until gctx is done (the
// measurement deadline has passed), accumulating thread-local counters.
func runWorker(gctx context.Context, set skipset.Set, cfg Config, wr keyrange.Range, rng *keysel.LCG48, keyIter *keysel.UniqueKeyIterator) Counters {
	var c Counters
	successive := wr.Min

	for {
		select {
		case <-gctx.Done():
			return c
		default:
		}

		var key int
		switch cfg.Strategy {
		case UNIQUE:
			key = wr.Min + keyIter.Next()
		case SUCCESSIVE:
			key = successive
			successive++
			if successive > wr.Max {
				successive = wr.Min
			}
		default: // RANDOM
			key = wr.Min + rng.Intn(wr.Size())
		}

		u := rng.Float64()
		switch {
		case u < cfg.OpMix.Insert:
			if set.Add(key, key) {
				c.SuccessfulAdds++
			} else {
				c.FailedAdds++
			}
		case u < cfg.OpMix.Insert+cfg.OpMix.Contain:
			if set.Contains(key) {
				c.SuccessfulContains++
			} else {
				c.FailedContains++
			}
		default:
			if _, ok := set.Remove(key); ok {
				c.SuccessfulRemoves++
			} else {
				c.FailedRemoves++
			}
		}
	}
}
