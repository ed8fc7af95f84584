// Package worker runs a function over a slice of inputs on a fixed number of
// goroutines and returns the outputs in input order.
package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Options configures a pool run
type Options struct {
	// Workers is the maximum number of items processed at the same time
	Workers int

	// RateLimitRPS is a global start rate across all workers. Set to <=0 to disable.
	RateLimitRPS float64
}

// Result holds the output for one input item
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// ProcessAll runs processor over every item and returns one Result per item,
// in the same order as items. Every item is attempted; a failing item never
// stops the others. Only limiter waits observe ctx, so a cancelled context
// surfaces as per-item errors rather than missing results.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	processor func(context.Context, In) (Out, error),
	opts Options,
) []Result[In, Out] {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	out := make([]Result[In, Out], len(items))
	if len(items) == 0 {
		return out
	}

	type job struct {
		idx int
		in  In
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := min(opts.Workers, len(items))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each worker owns the slot it writes, so no lock is needed.
				out[j.idx] = processOne(ctx, j.in, processor, limiter)
			}
		}()
	}

	for i, item := range items {
		jobs <- job{idx: i, in: item}
	}
	close(jobs)
	wg.Wait()

	return out
}

func processOne[In any, Out any](
	ctx context.Context,
	item In,
	processor func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
) Result[In, Out] {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Result[In, Out]{Input: item, Err: err}
		}
	}
	res, err := processor(ctx, item)
	return Result[In, Out]{
		Input:  item,
		Output: res,
		Err:    err,
	}
}
