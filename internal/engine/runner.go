package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trade-setup-engine/internal/trigger"
)

// Runner evaluates many symbols concurrently. Symbols are fully
// independent: each gets its own runtime cache, and no mutable state is
// shared between workers.
type Runner struct {
	engine  *Engine
	workers int
	log     zerolog.Logger

	mu     sync.Mutex
	caches map[string]*trigger.RuntimeCache
}

// NewRunner creates a runner with a bounded worker pool
func NewRunner(e *Engine, workers int, logger zerolog.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		engine:  e,
		workers: workers,
		log:     logger.With().Str("component", "runner").Logger(),
		caches:  make(map[string]*trigger.RuntimeCache),
	}
}

// EvaluateAll evaluates every input concurrently and returns reports in
// input order. Inputs sharing a symbol are evaluated sequentially by
// one worker, so the per-symbol runtime cache is never touched by two
// goroutines at once. A failed symbol fails the batch; evaluation is
// pure, so partial results carry no cleanup burden.
func (r *Runner) EvaluateAll(ctx context.Context, inputs []EvaluateInput) ([]*EvaluationReport, error) {
	reports := make([]*EvaluationReport, len(inputs))

	order := make([]string, 0, len(inputs))
	bySymbol := make(map[string][]int, len(inputs))
	for i, in := range inputs {
		if in.Snapshot == nil {
			return nil, ErrNilSnapshot
		}
		sym := in.Snapshot.Symbol
		if _, ok := bySymbol[sym]; !ok {
			order = append(order, sym)
		}
		bySymbol[sym] = append(bySymbol[sym], i)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, sym := range order {
		sym := sym
		indices := bySymbol[sym]
		cache := r.cacheFor(sym)
		g.Go(func() error {
			for _, i := range indices {
				if err := ctx.Err(); err != nil {
					return err
				}
				report, err := r.engine.Evaluate(inputs[i], cache)
				if err != nil {
					r.log.Error().Err(err).Str("symbol", sym).Msg("evaluation failed")
					return err
				}
				reports[i] = report
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// cacheFor returns the persistent per-symbol runtime cache, creating
// it on first use. EvaluateAll routes all of a symbol's inputs through
// one worker, so the cache itself needs no locking.
func (r *Runner) cacheFor(symbol string) *trigger.RuntimeCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[symbol]
	if !ok {
		c = trigger.NewRuntimeCache(r.engine.cfg.Trigger.CacheTTL())
		r.caches[symbol] = c
	}
	return c
}
